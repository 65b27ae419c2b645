package collection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	domaincollection "github.com/highprosper/backend/internal/domain/collection"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/notification"
	"github.com/highprosper/backend/internal/domain/shared"
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

type publishRecord struct {
	recipientID uuid.UUID
	kind        notification.Kind
	payload     notification.Payload
}

type stubNotifier struct {
	published []publishRecord
}

func (n *stubNotifier) Publish(_ context.Context, recipientID uuid.UUID, kind notification.Kind, _ string, _ string, payload notification.Payload) (*notification.Notification, error) {
	n.published = append(n.published, publishRecord{recipientID: recipientID, kind: kind, payload: payload})
	return nil, nil
}

type stubPush struct {
	targets []dispatch.Target
}

func (p *stubPush) Channel() dispatch.Channel { return dispatch.ChannelPush }

func (p *stubPush) Attempt(_ context.Context, target dispatch.Target, _ dispatch.Payload) dispatch.Outcome {
	p.targets = append(p.targets, target)
	return dispatch.Outcome{Result: dispatch.ResultDelivered, Provider: "stub"}
}

type collectionFixture struct {
	svc        *Service
	customers  *persistence.GormCustomerRepository
	invoices   *persistence.GormInvoiceRepository
	principals *persistence.GormPrincipalRepository
	orders     *persistence.GormServiceOrderRepository
	notifier   *stubNotifier
	push       *stubPush
}

func setupCollection(t *testing.T) *collectionFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.CustomerModel{}, &models.InvoiceModel{},
		&models.PrincipalModel{}, &models.ServiceOrderModel{}))

	f := &collectionFixture{
		customers:  persistence.NewGormCustomerRepository(db),
		invoices:   persistence.NewGormInvoiceRepository(db),
		principals: persistence.NewGormPrincipalRepository(db),
		orders:     persistence.NewGormServiceOrderRepository(db),
		notifier:   &stubNotifier{},
		push:       &stubPush{},
	}
	cfg := config.DispatchConfig{
		MaxRadiusKm:       15,
		LocationStaleness: 15 * time.Minute,
	}
	f.svc = NewService(f.invoices, f.customers, f.principals, f.orders,
		f.notifier, f.push, nil, cfg, zap.NewNop())
	return f
}

// seedCollector creates an available collector with a fresh location
func (f *collectionFixture) seedCollector(t *testing.T, phone string, lon, lat float64) *identity.Principal {
	t.Helper()
	p, err := identity.NewPrincipal("Collector "+phone, phone, "", identity.RoleCollector)
	require.NoError(t, err)
	require.NoError(t, p.SetCollectorStatus(identity.CollectorStatusAvailable))
	p.UpdateLocation(lon, lat)
	require.NoError(t, f.principals.Save(context.Background(), p))
	return p
}

// seedDebt creates a customer at the given premises with one open invoice
func (f *collectionFixture) seedDebt(t *testing.T, phone, account string, lon, lat float64) (*billing.Customer, *billing.Invoice) {
	t.Helper()
	ctx := context.Background()
	cust, err := billing.NewCustomer(uuid.New(), "Jane Mukamana", phone, account, decimal.RequireFromString("5000"))
	require.NoError(t, err)
	if lon != 0 || lat != 0 {
		cust.SetLocation(lon, lat)
	}
	cust.Version = 1
	require.NoError(t, f.customers.Save(ctx, cust))

	inv, err := billing.NewInvoice(cust, 2026, time.March)
	require.NoError(t, err)
	require.NoError(t, f.invoices.Save(ctx, inv))
	return cust, inv
}

func TestRouteVisit_SelectsNearestCollector(t *testing.T) {
	f := setupCollection(t)
	ctx := context.Background()
	now := time.Now()

	cust, inv := f.seedDebt(t, "+250788123456", "HP-0001", 30.0600, -1.9500)
	near := f.seedCollector(t, "+250788100001", 30.0610, -1.9510)
	f.seedCollector(t, "+250788100002", 30.0900, -1.9800)

	order, err := f.svc.RouteVisit(ctx, inv, cust, now)
	require.NoError(t, err)
	assert.Equal(t, near.ID, order.CollectorID)
	assert.Equal(t, domaincollection.PriorityCritical, order.Priority)
	assert.Equal(t, domaincollection.OrderKindCollection, order.Kind)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("5000")))
	require.NotNil(t, order.InvoiceID)
	assert.Equal(t, inv.ID, *order.InvoiceID)

	t.Run("collector is notified", func(t *testing.T) {
		require.Len(t, f.notifier.published, 1)
		assert.Equal(t, near.ID, f.notifier.published[0].recipientID)
		assert.Equal(t, notification.KindFieldVisit, f.notifier.published[0].kind)
		assert.Equal(t, inv.UID, f.notifier.published[0].payload["invoice_uid"])
		require.Len(t, f.push.targets, 1)
		assert.Equal(t, near.Phone, f.push.targets[0].Phone)
	})

	t.Run("second visit for the same customer is rejected", func(t *testing.T) {
		_, err := f.svc.RouteVisit(ctx, inv, cust, now)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ORDER_ALREADY_OPEN", domainErr.Code)
	})
}

func TestRouteVisit_NoPremisesLocation(t *testing.T) {
	f := setupCollection(t)
	cust, inv := f.seedDebt(t, "+250788123456", "HP-0001", 0, 0)
	f.seedCollector(t, "+250788100001", 30.0610, -1.9510)

	_, err := f.svc.RouteVisit(context.Background(), inv, cust, time.Now())
	assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
}

func TestRouteVisit_NoCollectorInRange(t *testing.T) {
	f := setupCollection(t)
	ctx := context.Background()
	now := time.Now()
	cust, inv := f.seedDebt(t, "+250788123456", "HP-0001", 30.0600, -1.9500)

	t.Run("no collectors at all", func(t *testing.T) {
		_, err := f.svc.RouteVisit(ctx, inv, cust, now)
		assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
	})

	t.Run("only collectors beyond the radius", func(t *testing.T) {
		f.seedCollector(t, "+250788100001", 30.4000, -2.2000)
		_, err := f.svc.RouteVisit(ctx, inv, cust, now)
		assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
	})

	nearby := f.seedCollector(t, "+250788100002", 30.0610, -1.9510)

	t.Run("stale location disqualifies", func(t *testing.T) {
		_, err := f.svc.RouteVisit(ctx, inv, cust, now.Add(time.Hour))
		assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
	})

	t.Run("busy collector disqualifies", func(t *testing.T) {
		require.NoError(t, nearby.SetCollectorStatus(identity.CollectorStatusBusy))
		require.NoError(t, f.principals.Save(ctx, nearby))
		_, err := f.svc.RouteVisit(ctx, inv, cust, now)
		assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
	})
}

func TestRouteVisit_TieBreakByOpenOrders(t *testing.T) {
	f := setupCollection(t)
	ctx := context.Background()
	now := time.Now()

	cust, inv := f.seedDebt(t, "+250788123456", "HP-0001", 30.0600, -1.9500)
	loaded := f.seedCollector(t, "+250788100001", 30.0610, -1.9510)
	free := f.seedCollector(t, "+250788100002", 30.0610, -1.9510)

	// give the first collector an open order elsewhere
	otherCust, otherInv := f.seedDebt(t, "+250788123457", "HP-0002", 30.0700, -1.9600)
	existing, err := domaincollection.NewCollectionOrder(otherCust.ID, otherInv.ID, loaded.ID, decimal.RequireFromString("5000"))
	require.NoError(t, err)
	require.NoError(t, f.orders.Save(ctx, existing))

	order, err := f.svc.RouteVisit(ctx, inv, cust, now)
	require.NoError(t, err)
	assert.Equal(t, free.ID, order.CollectorID, "less-loaded collector wins the tie")
}

func TestCancelOpenVisits(t *testing.T) {
	f := setupCollection(t)
	ctx := context.Background()
	now := time.Now()

	cust, inv := f.seedDebt(t, "+250788123456", "HP-0001", 30.0600, -1.9500)
	collector := f.seedCollector(t, "+250788100001", 30.0610, -1.9510)

	order, err := f.svc.RouteVisit(ctx, inv, cust, now)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelOpenVisits(ctx, cust.ID, "Invoice settled")
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	reloaded, err := f.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domaincollection.OrderStatusCancelled, reloaded.Status)
	assert.Equal(t, "Invoice settled", reloaded.Note)

	t.Run("collector learns about the cancellation", func(t *testing.T) {
		last := f.notifier.published[len(f.notifier.published)-1]
		assert.Equal(t, collector.ID, last.recipientID)
	})

	t.Run("repeat cancel finds nothing", func(t *testing.T) {
		cancelled, err := f.svc.CancelOpenVisits(ctx, cust.ID, "Invoice settled")
		require.NoError(t, err)
		assert.Zero(t, cancelled)
	})
}

func TestOrderLifecycle(t *testing.T) {
	f := setupCollection(t)
	ctx := context.Background()
	now := time.Now()

	cust, inv := f.seedDebt(t, "+250788123456", "HP-0001", 30.0600, -1.9500)
	collector := f.seedCollector(t, "+250788100001", 30.0610, -1.9510)
	stranger := f.seedCollector(t, "+250788100002", 30.0620, -1.9520)

	order, err := f.svc.RouteVisit(ctx, inv, cust, now)
	require.NoError(t, err)
	require.Equal(t, collector.ID, order.CollectorID)

	t.Run("only the assigned collector may start", func(t *testing.T) {
		_, err := f.svc.StartOrder(ctx, order.ID, stranger.ID)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	started, err := f.svc.StartOrder(ctx, order.ID, collector.ID)
	require.NoError(t, err)
	assert.Equal(t, domaincollection.OrderStatusInProgress, started.Status)

	t.Run("open orders include the running visit", func(t *testing.T) {
		open, err := f.svc.OpenOrders(ctx, collector.ID)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, order.ID, open[0].ID)
	})

	completed, err := f.svc.CompleteOrder(ctx, order.ID, collector.ID)
	require.NoError(t, err)
	assert.Equal(t, domaincollection.OrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	t.Run("completed order cannot restart", func(t *testing.T) {
		_, err := f.svc.StartOrder(ctx, order.ID, collector.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})
}
