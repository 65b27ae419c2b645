package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the reconciliation state of a commission payout
type PayoutStatus string

const (
	PayoutStatusInitiated PayoutStatus = "initiated" // provider returned 202
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// IsTerminal reports whether the payout needs no further reconciliation
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

// PayoutKeyPrefix namespaces client idempotency keys sent to the provider
const PayoutKeyPrefix = "COMM-"

// NewPayoutKey mints the client idempotency key. Resubmitting the same key to
// the provider must not double-pay.
func NewPayoutKey() string {
	return PayoutKeyPrefix + uuid.NewString()
}

// Payout is a commission disbursement to a field collector over mobile money.
type Payout struct {
	shared.BaseAggregateRoot
	IdempotencyKey string          `json:"idempotency_key"` // COMM-<uuid>, unique
	CollectorID    uuid.UUID       `json:"collector_id"`
	Phone          string          `json:"phone"` // E.164 payout destination
	Amount         decimal.Decimal `json:"amount"`
	Status         PayoutStatus    `json:"status"`
	ProviderRef    string          `json:"provider_ref,omitempty"`
	InitiatedAt    time.Time       `json:"initiated_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
}

// NewPayout creates a payout in Initiated state with a fresh idempotency key
func NewPayout(collectorID uuid.UUID, phone string, amount decimal.Decimal) (*Payout, error) {
	if collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COLLECTOR", "Collector ID is required")
	}
	if !strings.HasPrefix(phone, "+") {
		return nil, shared.NewDomainError("INVALID_PHONE", "Payout phone must be E.164")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payout amount must be positive")
	}

	return &Payout{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		IdempotencyKey:    NewPayoutKey(),
		CollectorID:       collectorID,
		Phone:             phone,
		Amount:            amount,
		Status:            PayoutStatusInitiated,
		InitiatedAt:       time.Now(),
	}, nil
}

// Complete settles the payout from a provider webhook or a reconciliation poll
func (p *Payout) Complete(providerRef string, at time.Time) error {
	if p.Status == PayoutStatusCompleted {
		return nil
	}
	if p.Status == PayoutStatusFailed {
		return shared.NewDomainError("INVALID_STATE", "Cannot complete a failed payout")
	}
	p.Status = PayoutStatusCompleted
	p.ProviderRef = providerRef
	p.ResolvedAt = &at
	p.UpdatedAt = at
	p.IncrementVersion()
	return nil
}

// Fail records a terminal provider rejection
func (p *Payout) Fail(reason string, at time.Time) error {
	if p.Status == PayoutStatusFailed {
		return nil
	}
	if p.Status == PayoutStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Cannot fail a completed payout")
	}
	p.Status = PayoutStatusFailed
	p.FailureReason = reason
	p.ResolvedAt = &at
	p.UpdatedAt = at
	p.IncrementVersion()
	return nil
}

// StaleAfter reports whether an Initiated payout is old enough for the
// reconciliation sweep to re-query the provider.
func (p *Payout) StaleAfter(age time.Duration, now time.Time) bool {
	return p.Status == PayoutStatusInitiated && now.Sub(p.InitiatedAt) >= age
}

// PayoutRepository persists payouts
type PayoutRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payout, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Payout, error)
	FindByProviderRef(ctx context.Context, ref string) (*Payout, error)
	// FindStaleInitiated returns Initiated payouts older than the given age
	FindStaleInitiated(ctx context.Context, olderThan time.Time) ([]Payout, error)
	FindByCollector(ctx context.Context, collectorID uuid.UUID, filter shared.Filter) ([]Payout, error)
	Save(ctx context.Context, p *Payout) error
}
