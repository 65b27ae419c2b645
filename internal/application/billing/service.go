// Package billing implements invoice generation and payment application on
// top of the ledger.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/notification"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/pdf"
	"github.com/highprosper/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// webhookDedupTTL is how long processed external references are remembered in
// the fast-path store. The payment ledger's unique reference remains the
// durable guard.
const webhookDedupTTL = 72 * time.Hour

// Renderer produces the printable invoice copy
type Renderer interface {
	Render(ctx context.Context, doc pdf.InvoiceDocument) ([]byte, error)
}

// VisitCanceller cancels open collection visits once a debt is settled
type VisitCanceller interface {
	CancelOpenVisits(ctx context.Context, customerID uuid.UUID, reason string) (int, error)
}

// CommissionPayer pays a collector their cut of a cash collection
type CommissionPayer interface {
	PayCommission(ctx context.Context, collectorID uuid.UUID, collected decimal.Decimal) error
}

// Notifier is the slice of the notification service billing needs
type Notifier interface {
	Publish(ctx context.Context, recipientID uuid.UUID, kind notification.Kind, title, body string, payload notification.Payload) (*notification.Notification, error)
}

// Service is the invoice-ledger use-case layer
type Service struct {
	customers   billing.CustomerRepository
	invoices    billing.InvoiceRepository
	payments    billing.PaymentRepository
	villages    billing.VillageRepository
	idempotency shared.IdempotencyStore
	renderer    Renderer
	store       storage.ObjectStore
	sms         dispatch.Dispatcher
	notifier    Notifier
	visits      VisitCanceller
	commission  CommissionPayer
	events      shared.EventPublisher
	cfg         config.BillingConfig
	logger      *zap.Logger
}

// NewService creates the billing service. renderer and store may be nil when
// PDF attachment is disabled; sms, visits, commission, and events may be nil
// in jobs that do not dispatch.
func NewService(
	customers billing.CustomerRepository,
	invoices billing.InvoiceRepository,
	payments billing.PaymentRepository,
	villages billing.VillageRepository,
	idempotency shared.IdempotencyStore,
	renderer Renderer,
	store storage.ObjectStore,
	sms dispatch.Dispatcher,
	notifier Notifier,
	visits VisitCanceller,
	commission CommissionPayer,
	events shared.EventPublisher,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		customers:   customers,
		invoices:    invoices,
		payments:    payments,
		villages:    villages,
		idempotency: idempotency,
		renderer:    renderer,
		store:       store,
		sms:         sms,
		notifier:    notifier,
		visits:      visits,
		commission:  commission,
		events:      events,
		cfg:         cfg,
		logger:      logger,
	}
}

// publishEvents flushes recorded aggregate events to the bus after the write
// committed. A publish failure never fails the ledger operation.
func (s *Service) publishEvents(ctx context.Context, aggregates ...shared.AggregateRoot) {
	if s.events == nil {
		return
	}
	for _, agg := range aggregates {
		recorded := agg.GetDomainEvents()
		if len(recorded) == 0 {
			continue
		}
		if err := s.events.Publish(ctx, recorded...); err != nil {
			s.logger.Warn("domain event publish failed", zap.Error(err))
		}
		agg.ClearDomainEvents()
	}
}

// GenerateMonthly creates the invoice for every active customer with a
// positive fee for asOf's month. Rerunning is a no-op for periods that
// already have an invoice.
func (s *Service) GenerateMonthly(ctx context.Context, asOf time.Time) (int, error) {
	year, month := asOf.Year(), asOf.Month()
	customers, err := s.customers.FindActive(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range customers {
		cust := &customers[i]
		if cust.MonthlyFee.LessThanOrEqual(decimal.Zero) {
			continue
		}
		existing, err := s.invoices.FindByPeriod(ctx, cust.ID, year, month)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		inv, err := billing.NewInvoice(cust, year, month)
		if err != nil {
			s.logger.Warn("skipping invoice for customer",
				zap.String("customer_id", cust.ID.String()), zap.Error(err))
			continue
		}
		s.attachPDF(ctx, inv, cust)
		if err := s.invoices.Save(ctx, inv); err != nil {
			return created, err
		}
		s.publishEvents(ctx, inv)
		created++
	}

	s.logger.Info("monthly invoice generation finished",
		zap.Int("year", year), zap.Int("month", int(month)), zap.Int("created", created))
	return created, nil
}

// attachPDF renders and stores the printable copy. Rendering failures do not
// block generation; the invoice simply has no attachment.
func (s *Service) attachPDF(ctx context.Context, inv *billing.Invoice, cust *billing.Customer) {
	if s.renderer == nil || s.store == nil {
		return
	}
	doc := pdf.InvoiceDocument{
		UID:          inv.UID,
		CustomerName: cust.DisplayName,
		AccountCode:  cust.AccountCode,
		Period:       fmt.Sprintf("%s %d", inv.Month, inv.Year),
		Amount:       inv.Amount.StringFixed(0),
		Currency:     s.cfg.Currency,
		DueDate:      inv.DueDate.Format("2 January 2006"),
		IssuedAt:     time.Now().Format("2 January 2006"),
	}
	data, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.logger.Warn("invoice PDF rendering failed", zap.String("uid", inv.UID), zap.Error(err))
		return
	}
	key := storage.InvoiceKey(inv.UID)
	if err := s.store.Upload(ctx, key, data, "application/pdf"); err != nil {
		s.logger.Warn("invoice PDF upload failed", zap.String("uid", inv.UID), zap.Error(err))
		return
	}
	inv.AttachPDF(key)
}

// InitiatePayment mints a pending payment intent against a customer. The
// reference is the idempotency handle the provider webhook settles later.
func (s *Service) InitiatePayment(ctx context.Context, customerID uuid.UUID, reference string, amount decimal.Decimal, method billing.PaymentMethod) (*billing.Payment, error) {
	exists, err := s.payments.ExistsByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrDuplicatePayment
	}
	cust, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	p, err := billing.NewPayment(reference, cust.ID, amount, method, time.Now())
	if err != nil {
		return nil, err
	}
	if open, err := s.invoices.FindOpenByCustomer(ctx, cust.ID); err == nil && len(open) > 0 {
		p.AttachInvoice(open[0].ID)
	}
	if err := s.payments.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyPaymentCommand describes money arriving from any source
type ApplyPaymentCommand struct {
	Reference   string // unique; the webhook replay guard
	ExternalID  string
	InvoiceUID  string // optional; resolved via customer when empty
	PayerPhone  string // E.164, used when no invoice uid is given
	Amount      decimal.Decimal
	Method      billing.PaymentMethod
	CollectorID *uuid.UUID // set for field cash receipts
	ReceivedAt  time.Time
}

// ApplyPayment records a successful payment and applies it to the ledger.
// Applying the same reference twice returns ErrDuplicatePayment and leaves
// the ledger unchanged. Overpayment is accepted; the excess is carried as
// customer credit.
func (s *Service) ApplyPayment(ctx context.Context, cmd ApplyPaymentCommand) (*billing.Payment, error) {
	// the store is a read-only fast path here; the reference is marked
	// processed only after the ledger commit so a failed attempt stays
	// retryable on the provider's next delivery
	if s.idempotency != nil {
		done, err := s.idempotency.IsProcessed(ctx, "payment_"+cmd.Reference)
		if err != nil {
			s.logger.Warn("idempotency store unavailable, relying on ledger dedup", zap.Error(err))
		} else if done {
			return nil, shared.ErrDuplicatePayment
		}
	}
	exists, err := s.payments.ExistsByReference(ctx, cmd.Reference)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrDuplicatePayment
	}

	inv, cust, err := s.resolveTarget(ctx, cmd)
	if err != nil {
		return nil, err
	}

	p, err := billing.NewPayment(cmd.Reference, cust.ID, cmd.Amount, cmd.Method, cmd.ReceivedAt)
	if err != nil {
		return nil, err
	}
	p.ExternalID = cmd.ExternalID
	if cmd.CollectorID != nil {
		p.AttachCollector(*cmd.CollectorID)
	}
	if err := s.settle(ctx, p, inv, cust); err != nil {
		return nil, err
	}
	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, "payment_"+cmd.Reference, webhookDedupTTL); err != nil {
			s.logger.Warn("failed to record processed payment reference", zap.Error(err))
		}
	}
	return p, nil
}

// SettleByReference finalizes a pending payment intent from a provider
// webhook. Settling an already-successful reference returns
// ErrDuplicatePayment.
func (s *Service) SettleByReference(ctx context.Context, reference string, success bool, note string) (*billing.Payment, error) {
	p, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case billing.PaymentStatusSuccessful:
		return nil, shared.ErrDuplicatePayment
	case billing.PaymentStatusFailed:
		return nil, shared.NewDomainError("INVALID_STATE", "Payment already failed")
	}

	if !success {
		if err := p.MarkFailed(note); err != nil {
			return nil, err
		}
		if err := s.payments.Save(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return s.settlePending(ctx, p)
}

// ConfirmPayment settles a pending intent on the paying customer's say-so,
// recording the provider transaction id for later reconciliation. A provider
// webhook replaying the same reference afterwards deduplicates like any other
// duplicate.
func (s *Service) ConfirmPayment(ctx context.Context, customerID uuid.UUID, reference, externalID string) (*billing.Payment, error) {
	p, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if p.CustomerID != customerID {
		return nil, shared.ErrForbidden
	}
	switch p.Status {
	case billing.PaymentStatusSuccessful:
		return nil, shared.ErrDuplicatePayment
	case billing.PaymentStatusFailed:
		return nil, shared.NewDomainError("INVALID_STATE", "Payment already failed")
	}
	if externalID != "" {
		p.ExternalID = externalID
	}
	return s.settlePending(ctx, p)
}

// settlePending resolves the invoice a pending intent applies to and settles
// it. An intent without an attached invoice lands on the customer's oldest
// open one.
func (s *Service) settlePending(ctx context.Context, p *billing.Payment) (*billing.Payment, error) {
	cust, err := s.customers.FindByID(ctx, p.CustomerID)
	if err != nil {
		return nil, err
	}
	var inv *billing.Invoice
	if p.InvoiceID != nil {
		if inv, err = s.invoices.FindByID(ctx, *p.InvoiceID); err != nil {
			return nil, err
		}
	} else {
		inv, err = s.oldestOpenInvoice(ctx, cust.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := s.settle(ctx, p, inv, cust); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveTarget finds the invoice and customer a payment applies to
func (s *Service) resolveTarget(ctx context.Context, cmd ApplyPaymentCommand) (*billing.Invoice, *billing.Customer, error) {
	if cmd.InvoiceUID != "" {
		inv, err := s.invoices.FindByUID(ctx, cmd.InvoiceUID)
		if err != nil {
			return nil, nil, err
		}
		cust, err := s.customers.FindByID(ctx, inv.CustomerID)
		if err != nil {
			return nil, nil, err
		}
		return inv, cust, nil
	}

	cust, err := s.customers.FindByPhone(ctx, cmd.PayerPhone)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.oldestOpenInvoice(ctx, cust.ID)
	if err != nil {
		return nil, nil, err
	}
	return inv, cust, nil
}

// oldestOpenInvoice returns the customer's oldest unsettled invoice, nil when
// everything is paid (the payment then lands entirely as credit).
func (s *Service) oldestOpenInvoice(ctx context.Context, customerID uuid.UUID) (*billing.Invoice, error) {
	open, err := s.invoices.FindOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}
	return &open[0], nil
}

// settle applies a payment to its invoice (when any), persists everything,
// and runs the post-payment effects.
func (s *Service) settle(ctx context.Context, p *billing.Payment, inv *billing.Invoice, cust *billing.Customer) error {
	credit := p.Amount
	if inv != nil {
		var err error
		credit, err = inv.Apply(p.Amount, p.ReceivedAt)
		if err != nil {
			return err
		}
		if err := s.invoices.Save(ctx, inv); err != nil {
			return err
		}
		p.AttachInvoice(inv.ID)
	}

	if err := p.MarkSuccessful(); err != nil {
		return err
	}
	if err := s.payments.Save(ctx, p); err != nil {
		return err
	}
	s.publishEvents(ctx, p)
	if inv != nil {
		s.publishEvents(ctx, inv)
	}

	if credit.GreaterThan(decimal.Zero) {
		// AmountExceedsBalance is a warning, not an error
		s.logger.Warn("payment exceeds outstanding balance, carried as credit",
			zap.String("reference", p.Reference),
			zap.String("credit", credit.String()))
		if err := cust.AddCredit(credit); err == nil {
			if err := s.customers.Save(ctx, cust); err != nil {
				return err
			}
		}
	}

	s.afterSettlement(ctx, p, inv, cust)
	return nil
}

// afterSettlement runs the best-effort side effects of a settled payment:
// cancelling pending collection attempts, thanking the customer, and paying
// the collecting agent. None of these may fail the ledger write.
func (s *Service) afterSettlement(ctx context.Context, p *billing.Payment, inv *billing.Invoice, cust *billing.Customer) {
	paidInFull := inv != nil && inv.Status == billing.InvoiceStatusPaid

	if paidInFull && s.visits != nil {
		if _, err := s.visits.CancelOpenVisits(ctx, cust.ID, "Invoice settled"); err != nil {
			s.logger.Warn("failed to cancel open visits after payment", zap.Error(err))
		}
	}

	if s.notifier != nil {
		balance := decimal.Zero
		if b, err := s.invoices.OutstandingForCustomer(ctx, cust.ID); err == nil {
			balance = b
		}
		params := map[string]string{
			"name":     cust.DisplayName,
			"amount":   p.Amount.StringFixed(0),
			"currency": s.cfg.Currency,
			"balance":  balance.StringFixed(0),
		}
		locale := channelsLocale(cust)
		body := channels.Render(locale, channels.TemplatePaymentThanks, params)
		if _, err := s.notifier.Publish(ctx, cust.PrincipalID, notification.KindPaymentReceived,
			"Payment received", body, notification.Payload{
				"reference": p.Reference,
				"amount":    p.Amount.String(),
			}); err != nil {
			s.logger.Warn("failed to publish payment notification", zap.Error(err))
		}
		if s.sms != nil {
			outcome := s.sms.Attempt(ctx, dispatch.Target{Phone: cust.Phone, Locale: locale}, dispatch.Payload{
				TemplateKey: channels.TemplatePaymentThanks,
				Params:      params,
			})
			if !outcome.Succeeded() {
				s.logger.Warn("payment thanks SMS failed", zap.String("reason", outcome.Reason))
			}
		}
	}

	if s.commission != nil && p.Method == billing.PaymentMethodCash && p.CollectorID != nil {
		if err := s.commission.PayCommission(ctx, *p.CollectorID, p.Amount); err != nil {
			s.logger.Error("commission payout failed, surfaced to operators",
				zap.String("collector_id", p.CollectorID.String()), zap.Error(err))
		}
	}
}

func channelsLocale(cust *billing.Customer) string {
	return identity.LocaleForPhone(cust.Phone)
}

// InvoiceByUID returns one invoice by its opaque identifier
func (s *Service) InvoiceByUID(ctx context.Context, uid string) (*billing.Invoice, error) {
	return s.invoices.FindByUID(ctx, uid)
}

// OutstandingForCustomer sums the open balance across a customer's invoices
func (s *Service) OutstandingForCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	return s.invoices.OutstandingForCustomer(ctx, customerID)
}

// CustomerInvoices lists a customer's invoices
func (s *Service) CustomerInvoices(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]billing.Invoice, error) {
	return s.invoices.FindByCustomer(ctx, customerID, filter)
}

// Customers lists billing customers with their total count for pagination
func (s *Service) Customers(ctx context.Context, filter shared.Filter) ([]billing.Customer, int64, error) {
	items, err := s.customers.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.customers.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CustomerByID finds one billing customer
func (s *Service) CustomerByID(ctx context.Context, id uuid.UUID) (*billing.Customer, error) {
	return s.customers.FindByID(ctx, id)
}

// CustomerByPrincipal finds the billing customer behind an authenticated
// principal
func (s *Service) CustomerByPrincipal(ctx context.Context, principalID uuid.UUID) (*billing.Customer, error) {
	return s.customers.FindByPrincipalID(ctx, principalID)
}

// CustomerByPhone finds the billing customer behind a phone number
func (s *Service) CustomerByPhone(ctx context.Context, phone string) (*billing.Customer, error) {
	return s.customers.FindByPhone(ctx, phone)
}

// Villages lists the geographic groupings customers belong to
func (s *Service) Villages(ctx context.Context, filter shared.Filter) ([]billing.Village, error) {
	return s.villages.FindAll(ctx, filter)
}

// VillageCustomers lists one village's customers, the roster a collector
// works through on a routine round
func (s *Service) VillageCustomers(ctx context.Context, villageID uuid.UUID) ([]billing.Customer, error) {
	if _, err := s.villages.FindByID(ctx, villageID); err != nil {
		return nil, err
	}
	return s.customers.FindByVillage(ctx, villageID)
}

// WriteOff closes an invoice without payment
func (s *Service) WriteOff(ctx context.Context, uid, reason string) (*billing.Invoice, error) {
	inv, err := s.invoices.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := inv.WriteOff(reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// IsDuplicatePayment reports whether an error is the replay rejection
func IsDuplicatePayment(err error) bool {
	return errors.Is(err, shared.ErrDuplicatePayment)
}
