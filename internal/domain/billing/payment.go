package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod identifies how money arrived
type PaymentMethod string

const (
	PaymentMethodMoMo      PaymentMethod = "momo"       // mobile money webhook
	PaymentMethodIrembo    PaymentMethod = "irembo"     // government payment portal
	PaymentMethodCash      PaymentMethod = "cash"       // field collector cash receipt
	PaymentMethodDroneCash PaymentMethod = "drone_cash" // cash handed to a delivery drone courier
	PaymentMethodHPC       PaymentMethod = "hpc"        // prepaid credit redemption
	PaymentMethodCard      PaymentMethod = "card"       // card via payment processor
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodMoMo, PaymentMethodIrembo, PaymentMethodCash,
		PaymentMethodDroneCash, PaymentMethodHPC, PaymentMethodCard:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Payment is one ledger entry of money received from a customer. The
// Reference is unique across the ledger and is the idempotency key for
// webhook replays.
type Payment struct {
	shared.BaseAggregateRoot
	Reference   string          `json:"reference"` // provider transaction reference, unique
	ExternalID  string          `json:"external_id,omitempty"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	InvoiceID   *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Status      PaymentStatus   `json:"status"`
	CollectorID *uuid.UUID      `json:"collector_id,omitempty"` // set for cash receipts
	ReceivedAt  time.Time       `json:"received_at"`
	FailureNote string          `json:"failure_note,omitempty"`
}

// NewPayment records money received from a customer
func NewPayment(reference string, customerID uuid.UUID, amount decimal.Decimal, method PaymentMethod, receivedAt time.Time) (*Payment, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Unknown payment method")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		CustomerID:        customerID,
		Amount:            amount,
		Method:            method,
		Status:            PaymentStatusPending,
		ReceivedAt:        receivedAt,
	}, nil
}

// AttachInvoice links the payment to the invoice it settled
func (p *Payment) AttachInvoice(invoiceID uuid.UUID) {
	p.InvoiceID = &invoiceID
	p.UpdatedAt = time.Now()
}

// AttachCollector records the field collector who took the cash
func (p *Payment) AttachCollector(collectorID uuid.UUID) {
	p.CollectorID = &collectorID
	p.UpdatedAt = time.Now()
}

// MarkSuccessful settles the payment
func (p *Payment) MarkSuccessful() error {
	if p.Status == PaymentStatusFailed {
		return shared.NewDomainError("INVALID_STATE", "Cannot settle a failed payment")
	}
	if p.Status == PaymentStatusSuccessful {
		return nil
	}
	p.Status = PaymentStatusSuccessful
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentRecordedEvent(p))
	return nil
}

// MarkFailed records a failed settlement attempt
func (p *Payment) MarkFailed(note string) error {
	if p.Status == PaymentStatusSuccessful {
		return shared.NewDomainError("INVALID_STATE", "Cannot fail a settled payment")
	}
	p.Status = PaymentStatusFailed
	p.FailureNote = note
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}
