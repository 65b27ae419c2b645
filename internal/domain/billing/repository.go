package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerRepository persists billing customers
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByPrincipalID(ctx context.Context, principalID uuid.UUID) (*Customer, error)
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	FindByAccountCode(ctx context.Context, code string) (*Customer, error)
	FindActive(ctx context.Context) ([]Customer, error)
	FindByVillage(ctx context.Context, villageID uuid.UUID) ([]Customer, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, error)
	Save(ctx context.Context, c *Customer) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// InvoiceRepository persists invoices and serves the escalation sweeps
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByUID(ctx context.Context, uid string) (*Invoice, error)
	// FindByPeriod returns the invoice for a (customer, period), nil when absent
	FindByPeriod(ctx context.Context, customerID uuid.UUID, year int, month time.Month) (*Invoice, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Invoice, error)
	// FindOpen returns all invoices whose status is not PAID or WRITTEN_OFF
	FindOpen(ctx context.Context) ([]Invoice, error)
	// FindOpenByCustomer returns the customer's unsettled invoices, oldest period first
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]Invoice, error)
	// FindVoiceInFlight returns OVERDUE invoices with an unresolved voice attempt
	FindVoiceInFlight(ctx context.Context) ([]Invoice, error)
	// OutstandingForCustomer sums the open balance across a customer's invoices
	OutstandingForCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	Save(ctx context.Context, inv *Invoice) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// PaymentRepository persists the payment ledger
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByReference(ctx context.Context, reference string) (*Payment, error)
	// ExistsByReference is the replay guard for webhook deliveries
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]Payment, error)
	FindByCollector(ctx context.Context, collectorID uuid.UUID, since time.Time) ([]Payment, error)
	Save(ctx context.Context, p *Payment) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// VillageRepository persists villages
type VillageRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Village, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Village, error)
	Save(ctx context.Context, v *Village) error
}
