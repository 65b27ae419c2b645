package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	domainbilling "github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/notification"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/cache"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/persistence"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubDispatcher struct {
	channel  dispatch.Channel
	result   dispatch.Result
	attempts []dispatch.Payload
}

func (d *stubDispatcher) Channel() dispatch.Channel { return d.channel }

func (d *stubDispatcher) Attempt(_ context.Context, _ dispatch.Target, payload dispatch.Payload) dispatch.Outcome {
	d.attempts = append(d.attempts, payload)
	return dispatch.Outcome{Result: d.result, Provider: "stub"}
}

type publishRecord struct {
	recipientID uuid.UUID
	kind        notification.Kind
	body        string
}

type stubNotifier struct {
	published []publishRecord
}

func (n *stubNotifier) Publish(_ context.Context, recipientID uuid.UUID, kind notification.Kind, _ string, body string, _ notification.Payload) (*notification.Notification, error) {
	n.published = append(n.published, publishRecord{recipientID: recipientID, kind: kind, body: body})
	return nil, nil
}

type stubVisitCanceller struct {
	cancelled []uuid.UUID
}

func (v *stubVisitCanceller) CancelOpenVisits(_ context.Context, customerID uuid.UUID, _ string) (int, error) {
	v.cancelled = append(v.cancelled, customerID)
	return 1, nil
}

type commissionCall struct {
	collectorID uuid.UUID
	collected   decimal.Decimal
}

type stubCommissionPayer struct {
	calls []commissionCall
}

func (p *stubCommissionPayer) PayCommission(_ context.Context, collectorID uuid.UUID, collected decimal.Decimal) error {
	p.calls = append(p.calls, commissionCall{collectorID: collectorID, collected: collected})
	return nil
}

type billingFixture struct {
	svc        *Service
	customers  *persistence.GormCustomerRepository
	invoices   *persistence.GormInvoiceRepository
	payments   *persistence.GormPaymentRepository
	villages   *persistence.GormVillageRepository
	sms        *stubDispatcher
	notifier   *stubNotifier
	visits     *stubVisitCanceller
	commission *stubCommissionPayer
}

func setupBilling(t *testing.T) *billingFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.CustomerModel{}, &models.InvoiceModel{}, &models.PaymentModel{},
		&models.VillageModel{}))

	idempotency := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { idempotency.Close() })

	f := &billingFixture{
		customers:  persistence.NewGormCustomerRepository(db),
		invoices:   persistence.NewGormInvoiceRepository(db),
		payments:   persistence.NewGormPaymentRepository(db),
		villages:   persistence.NewGormVillageRepository(db),
		sms:        &stubDispatcher{channel: dispatch.ChannelSMS, result: dispatch.ResultDelivered},
		notifier:   &stubNotifier{},
		visits:     &stubVisitCanceller{},
		commission: &stubCommissionPayer{},
	}
	cfg := config.BillingConfig{
		DueDay:             25,
		EarlyReminderDays:  7,
		FinalNoticeDays:    3,
		FieldDispatchAfter: 24 * time.Hour,
		Currency:           "RWF",
	}
	f.svc = NewService(f.customers, f.invoices, f.payments, f.villages, idempotency,
		nil, nil, f.sms, f.notifier, f.visits, f.commission, nil, cfg, zap.NewNop())
	return f
}

func seedCustomer(t *testing.T, f *billingFixture, phone, account, fee string) *domainbilling.Customer {
	t.Helper()
	cust, err := domainbilling.NewCustomer(uuid.New(), "Jane Mukamana", phone, account, decimal.RequireFromString(fee))
	require.NoError(t, err)
	require.NoError(t, f.customers.Save(context.Background(), cust))
	return cust
}

func seedInvoice(t *testing.T, f *billingFixture, cust *domainbilling.Customer, year int, month time.Month) *domainbilling.Invoice {
	t.Helper()
	inv, err := domainbilling.NewInvoice(cust, year, month)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Save(context.Background(), inv))
	return inv
}

func TestGenerateMonthly(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()
	asOf := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)

	seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	seedCustomer(t, f, "+250788123457", "HP-0002", "8000")
	free := seedCustomer(t, f, "+250788123458", "HP-0003", "0")

	created, err := f.svc.GenerateMonthly(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	t.Run("rerun creates nothing", func(t *testing.T) {
		created, err := f.svc.GenerateMonthly(ctx, asOf)
		require.NoError(t, err)
		assert.Zero(t, created)
	})

	t.Run("zero-fee customers are skipped", func(t *testing.T) {
		inv, err := f.invoices.FindByPeriod(ctx, free.ID, 2026, time.March)
		require.NoError(t, err)
		assert.Nil(t, inv)
	})

	t.Run("next period generates again", func(t *testing.T) {
		created, err := f.svc.GenerateMonthly(ctx, asOf.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Equal(t, 2, created)
	})
}

func TestApplyPayment_SettlesInvoice(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	p, err := f.svc.ApplyPayment(ctx, ApplyPaymentCommand{
		Reference:  "MTN-001",
		InvoiceUID: inv.UID,
		Amount:     decimal.RequireFromString("5000"),
		Method:     domainbilling.PaymentMethodMoMo,
		ReceivedAt: time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, domainbilling.PaymentStatusSuccessful, p.Status)

	settled, err := f.invoices.FindByUID(ctx, inv.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPaid, settled.Status)
	require.NotNil(t, settled.PaidAt)

	t.Run("open visits are cancelled", func(t *testing.T) {
		assert.Equal(t, []uuid.UUID{cust.ID}, f.visits.cancelled)
	})

	t.Run("customer is thanked", func(t *testing.T) {
		require.Len(t, f.notifier.published, 1)
		assert.Equal(t, cust.PrincipalID, f.notifier.published[0].recipientID)
		assert.Equal(t, notification.KindPaymentReceived, f.notifier.published[0].kind)
		assert.Len(t, f.sms.attempts, 1)
	})

	t.Run("no commission without a collector", func(t *testing.T) {
		assert.Empty(t, f.commission.calls)
	})
}

func TestApplyPayment_DuplicateReference(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	cmd := ApplyPaymentCommand{
		Reference:  "MTN-001",
		InvoiceUID: inv.UID,
		Amount:     decimal.RequireFromString("2000"),
		Method:     domainbilling.PaymentMethodMoMo,
		ReceivedAt: time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
	}
	_, err := f.svc.ApplyPayment(ctx, cmd)
	require.NoError(t, err)

	_, err = f.svc.ApplyPayment(ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrDuplicatePayment)
	assert.True(t, IsDuplicatePayment(err))

	t.Run("ledger applied the amount once", func(t *testing.T) {
		settled, err := f.invoices.FindByUID(ctx, inv.UID)
		require.NoError(t, err)
		assert.True(t, settled.PaidAmount.Equal(decimal.RequireFromString("2000")), "got %s", settled.PaidAmount)
		assert.True(t, settled.PartiallyPaid)
	})
}

func TestApplyPayment_OverpaymentBecomesCredit(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	_, err := f.svc.ApplyPayment(ctx, ApplyPaymentCommand{
		Reference:  "MTN-002",
		InvoiceUID: inv.UID,
		Amount:     decimal.RequireFromString("7000"),
		Method:     domainbilling.PaymentMethodMoMo,
		ReceivedAt: time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	settled, err := f.invoices.FindByUID(ctx, inv.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPaid, settled.Status)
	assert.True(t, settled.PaidAmount.Equal(decimal.RequireFromString("5000")), "paid-amount capped at invoice amount")

	reloaded, err := f.customers.FindByID(ctx, cust.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CreditBalance.Equal(decimal.RequireFromString("2000")), "got %s", reloaded.CreditBalance)
}

func TestApplyPayment_CashPaysCommission(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)
	collectorID := uuid.New()

	_, err := f.svc.ApplyPayment(ctx, ApplyPaymentCommand{
		Reference:   "CASH-001",
		InvoiceUID:  inv.UID,
		Amount:      decimal.RequireFromString("5000"),
		Method:      domainbilling.PaymentMethodCash,
		CollectorID: &collectorID,
		ReceivedAt:  time.Date(2026, 3, 29, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, f.commission.calls, 1)
	assert.Equal(t, collectorID, f.commission.calls[0].collectorID)
	assert.True(t, f.commission.calls[0].collected.Equal(decimal.RequireFromString("5000")))
}

func TestApplyPayment_RetryAfterTransientFailure(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cmd := ApplyPaymentCommand{
		Reference:  "MOMO-RETRY-01",
		PayerPhone: "+250788123456",
		Amount:     decimal.RequireFromString("5000"),
		Method:     domainbilling.PaymentMethodMoMo,
		ReceivedAt: time.Now(),
	}
	_, err := f.svc.ApplyPayment(ctx, cmd)
	require.ErrorIs(t, err, shared.ErrNotFound, "payer not registered yet")

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	p, err := f.svc.ApplyPayment(ctx, cmd)
	require.NoError(t, err, "redelivery after a failed attempt must apply")
	assert.Equal(t, domainbilling.PaymentStatusSuccessful, p.Status)

	settled, err := f.invoices.FindByUID(ctx, inv.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPaid, settled.Status)

	t.Run("second redelivery after success is rejected", func(t *testing.T) {
		_, err := f.svc.ApplyPayment(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrDuplicatePayment)
	})
}

func TestApplyPayment_ResolvesByPhone(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	jan := seedInvoice(t, f, cust, 2026, time.January)
	seedInvoice(t, f, cust, 2026, time.February)

	_, err := f.svc.ApplyPayment(ctx, ApplyPaymentCommand{
		Reference:  "MTN-003",
		PayerPhone: "+250788123456",
		Amount:     decimal.RequireFromString("5000"),
		Method:     domainbilling.PaymentMethodMoMo,
		ReceivedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	settled, err := f.invoices.FindByUID(ctx, jan.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPaid, settled.Status, "oldest open invoice settles first")
}

func TestSettleByReference(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	intent, err := f.svc.InitiatePayment(ctx, cust.ID, "SUB-ABCD1234", decimal.RequireFromString("5000"), domainbilling.PaymentMethodMoMo)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.PaymentStatusPending, intent.Status)

	p, err := f.svc.SettleByReference(ctx, "SUB-ABCD1234", true, "")
	require.NoError(t, err)
	assert.Equal(t, domainbilling.PaymentStatusSuccessful, p.Status)

	settled, err := f.invoices.FindByUID(ctx, inv.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPaid, settled.Status)

	t.Run("redelivered settlement is rejected", func(t *testing.T) {
		_, err := f.svc.SettleByReference(ctx, "SUB-ABCD1234", true, "")
		assert.ErrorIs(t, err, shared.ErrDuplicatePayment)
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := f.svc.SettleByReference(ctx, "SUB-MISSING", true, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestSettleByReference_Failure(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	_, err := f.svc.InitiatePayment(ctx, cust.ID, "SUB-FFFF0000", decimal.RequireFromString("5000"), domainbilling.PaymentMethodMoMo)
	require.NoError(t, err)

	p, err := f.svc.SettleByReference(ctx, "SUB-FFFF0000", false, "payer timeout")
	require.NoError(t, err)
	assert.Equal(t, domainbilling.PaymentStatusFailed, p.Status)
	assert.Equal(t, "payer timeout", p.FailureNote)

	open, err := f.invoices.FindByUID(ctx, inv.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPending, open.Status, "failed settlement leaves the invoice open")
}

func TestConfirmPayment(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	_, err := f.svc.InitiatePayment(ctx, cust.ID, "SUB-11223344", decimal.RequireFromString("5000"), domainbilling.PaymentMethodMoMo)
	require.NoError(t, err)

	p, err := f.svc.ConfirmPayment(ctx, cust.ID, "SUB-11223344", "MP260302.1234.A56789")
	require.NoError(t, err)
	assert.Equal(t, domainbilling.PaymentStatusSuccessful, p.Status)
	assert.Equal(t, "MP260302.1234.A56789", p.ExternalID)

	settled, err := f.invoices.FindByUID(ctx, inv.UID)
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusPaid, settled.Status)

	t.Run("webhook replay after confirmation is rejected", func(t *testing.T) {
		_, err := f.svc.SettleByReference(ctx, "SUB-11223344", true, "")
		assert.ErrorIs(t, err, shared.ErrDuplicatePayment)
	})

	t.Run("another customer cannot confirm the intent", func(t *testing.T) {
		other := seedCustomer(t, f, "+250788999888", "HP-0002", "5000")
		_, err := f.svc.InitiatePayment(ctx, cust.ID, "SUB-55667788", decimal.RequireFromString("5000"), domainbilling.PaymentMethodMoMo)
		require.NoError(t, err)
		_, err = f.svc.ConfirmPayment(ctx, other.ID, "SUB-55667788", "")
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestInitiatePayment_DuplicateReference(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	seedInvoice(t, f, cust, 2026, time.March)

	_, err := f.svc.InitiatePayment(ctx, cust.ID, "SRV-00001111", decimal.RequireFromString("2000"), domainbilling.PaymentMethodMoMo)
	require.NoError(t, err)

	_, err = f.svc.InitiatePayment(ctx, cust.ID, "SRV-00001111", decimal.RequireFromString("2000"), domainbilling.PaymentMethodMoMo)
	assert.ErrorIs(t, err, shared.ErrDuplicatePayment)
}

func TestWriteOff(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	cust := seedCustomer(t, f, "+250788123456", "HP-0001", "5000")
	inv := seedInvoice(t, f, cust, 2026, time.March)

	closed, err := f.svc.WriteOff(ctx, inv.UID, "Customer relocated")
	require.NoError(t, err)
	assert.Equal(t, domainbilling.InvoiceStatusWrittenOff, closed.Status)
	assert.Equal(t, "Customer relocated", closed.WriteOffReason)

	t.Run("closed invoice rejects further write-offs", func(t *testing.T) {
		_, err := f.svc.WriteOff(ctx, inv.UID, "again")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("closed invoice rejects payments", func(t *testing.T) {
		_, err := f.svc.ApplyPayment(ctx, ApplyPaymentCommand{
			Reference:  "MTN-LATE",
			InvoiceUID: inv.UID,
			Amount:     decimal.RequireFromString("5000"),
			Method:     domainbilling.PaymentMethodMoMo,
			ReceivedAt: time.Now(),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})
}

func TestVillageCustomers(t *testing.T) {
	f := setupBilling(t)
	ctx := context.Background()

	village := &domainbilling.Village{
		BaseEntity: shared.NewBaseEntity(),
		Name:       "Kacyiru",
		Cell:       "Kamatamu",
		Sector:     "Kacyiru",
	}
	require.NoError(t, f.villages.Save(ctx, village))

	inVillage := seedCustomer(t, f, "+250788100001", "HP-00001", "5000")
	inVillage.VillageID = &village.ID
	require.NoError(t, f.customers.Save(ctx, inVillage))
	seedCustomer(t, f, "+250788100002", "HP-00002", "5000")

	roster, err := f.svc.VillageCustomers(ctx, village.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, inVillage.ID, roster[0].ID)

	t.Run("lists villages", func(t *testing.T) {
		villages, err := f.svc.Villages(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, villages, 1)
		assert.Equal(t, "Kacyiru", villages[0].Name)
	})

	t.Run("unknown village", func(t *testing.T) {
		_, err := f.svc.VillageCustomers(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
