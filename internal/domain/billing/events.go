package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the billing context
const (
	EventTypeInvoiceCreated   = "billing.invoice.created"
	EventTypeInvoiceOverdue   = "billing.invoice.overdue"
	EventTypeInvoiceEscalated = "billing.invoice.escalated"
	EventTypeInvoicePaid      = "billing.invoice.paid"
	EventTypePaymentRecorded  = "billing.payment.recorded"
)

// InvoiceCreatedEvent is raised when a monthly invoice is generated
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceUID string          `json:"invoice_uid"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    time.Time       `json:"due_date"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", inv.ID),
		InvoiceUID:      inv.UID,
		CustomerID:      inv.CustomerID,
		Amount:          inv.Amount,
		DueDate:         inv.DueDate,
	}
}

// InvoiceOverdueEvent is raised when the final notice goes out
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceUID     string          `json:"invoice_uid"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice, prev InvoiceStatus) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, "Invoice", inv.ID),
		InvoiceUID:      inv.UID,
		CustomerID:      inv.CustomerID,
		Outstanding:     inv.Outstanding(),
		PreviousStatus:  prev,
	}
}

// InvoiceEscalatedEvent is raised when an invoice moves up the dunning ladder
type InvoiceEscalatedEvent struct {
	shared.BaseDomainEvent
	InvoiceUID     string          `json:"invoice_uid"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Stage          EscalationStage `json:"stage"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
	NewStatus      InvoiceStatus   `json:"new_status"`
}

// NewInvoiceEscalatedEvent creates a new InvoiceEscalatedEvent
func NewInvoiceEscalatedEvent(inv *Invoice, prev InvoiceStatus, stage EscalationStage) *InvoiceEscalatedEvent {
	return &InvoiceEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceEscalated, "Invoice", inv.ID),
		InvoiceUID:      inv.UID,
		CustomerID:      inv.CustomerID,
		Stage:           stage,
		PreviousStatus:  prev,
		NewStatus:       inv.Status,
	}
}

// InvoicePaidEvent is raised when an invoice is settled in full
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceUID     string          `json:"invoice_uid"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, prev InvoiceStatus) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, "Invoice", inv.ID),
		InvoiceUID:      inv.UID,
		CustomerID:      inv.CustomerID,
		Amount:          inv.Amount,
		PreviousStatus:  prev,
	}
}

// PaymentRecordedEvent is raised when a payment is accepted into the ledger
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	Reference  string          `json:"reference"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", p.ID),
		Reference:       p.Reference,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount,
		Method:          p.Method,
	}
}
