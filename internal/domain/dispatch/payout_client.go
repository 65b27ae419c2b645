package dispatch

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProviderPayoutStatus is the provider-side state of a disbursement
type ProviderPayoutStatus string

const (
	ProviderPayoutAccepted  ProviderPayoutStatus = "accepted" // 202, still processing
	ProviderPayoutCompleted ProviderPayoutStatus = "completed"
	ProviderPayoutFailed    ProviderPayoutStatus = "failed"
)

// ProviderPayoutResult is the provider's answer to an initiate or query call
type ProviderPayoutResult struct {
	Status ProviderPayoutStatus
	Ref    string // provider transaction reference, when known
	Reason string // failure detail, when failed
}

// PayoutClient talks to the mobile-money disbursement API. Initiate must be
// safe to resubmit with the same idempotency key; the provider deduplicates
// on it.
type PayoutClient interface {
	Initiate(ctx context.Context, idempotencyKey, phone string, amount decimal.Decimal, currency string) (ProviderPayoutResult, error)
	// Query re-reads the state of a previously initiated disbursement. Used
	// by the reconciliation sweep for stale Initiated payouts.
	Query(ctx context.Context, idempotencyKey string) (ProviderPayoutResult, error)
}
