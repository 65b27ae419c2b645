// Package payout disburses collector commissions over mobile money and keeps
// them reconciled against the provider.
package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommissionRate is the collector's cut of cash they bring in
var CommissionRate = decimal.NewFromFloat(0.05)

// Service runs the payout pipeline: initiate with a client idempotency key,
// record Initiated on 202, reconcile later from webhooks or the stale sweep.
type Service struct {
	payouts    dispatch.PayoutRepository
	principals identity.PrincipalRepository
	client     dispatch.PayoutClient
	currency   string
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewService creates the payout service
func NewService(
	payouts dispatch.PayoutRepository,
	principals identity.PrincipalRepository,
	client dispatch.PayoutClient,
	billingCfg config.BillingConfig,
	dispatchCfg config.DispatchConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		payouts:    payouts,
		principals: principals,
		client:     client,
		currency:   billingCfg.Currency,
		staleAfter: dispatchCfg.PayoutStaleAfter,
		logger:     logger,
	}
}

// PayCommission disburses the collector's share of a cash collection. The
// payout row is written before the provider call so a crash between the two
// is resolved by reconciliation, never by double-paying.
func (s *Service) PayCommission(ctx context.Context, collectorID uuid.UUID, collected decimal.Decimal) error {
	amount := collected.Mul(CommissionRate).Round(0)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	collector, err := s.principals.FindByID(ctx, collectorID)
	if err != nil {
		return err
	}

	p, err := dispatch.NewPayout(collectorID, collector.Phone, amount)
	if err != nil {
		return err
	}
	if err := s.payouts.Save(ctx, p); err != nil {
		return err
	}
	return s.submit(ctx, p)
}

// submit sends the payout to the provider and records the immediate result
func (s *Service) submit(ctx context.Context, p *dispatch.Payout) error {
	result, err := s.client.Initiate(ctx, p.IdempotencyKey, p.Phone, p.Amount, s.currency)
	if err != nil {
		// provider unreachable: the payout stays Initiated and the
		// reconciliation sweep re-queries it
		s.logger.Warn("payout initiation did not complete, left for reconciliation",
			zap.String("key", p.IdempotencyKey), zap.Error(err))
		return nil
	}
	return s.applyResult(ctx, p, result)
}

func (s *Service) applyResult(ctx context.Context, p *dispatch.Payout, result dispatch.ProviderPayoutResult) error {
	now := time.Now()
	switch result.Status {
	case dispatch.ProviderPayoutCompleted:
		if err := p.Complete(result.Ref, now); err != nil {
			return err
		}
	case dispatch.ProviderPayoutFailed:
		if err := p.Fail(result.Reason, now); err != nil {
			return err
		}
		s.logger.Error("payout failed",
			zap.String("key", p.IdempotencyKey),
			zap.String("reason", result.Reason))
	default:
		// accepted for processing; webhook or sweep resolves it
		if result.Ref != "" {
			p.ProviderRef = result.Ref
		}
	}
	return s.payouts.Save(ctx, p)
}

// HandleWebhook reconciles a payout from a provider status callback.
// Redelivered webhooks are idempotent: completing a completed payout is a
// no-op.
func (s *Service) HandleWebhook(ctx context.Context, idempotencyKey, status, providerRef, reason string) error {
	p, err := s.payouts.FindByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return err
	}
	now := time.Now()
	switch status {
	case "SUCCESSFUL":
		if err := p.Complete(providerRef, now); err != nil {
			return err
		}
	case "FAILED":
		if err := p.Fail(reason, now); err != nil {
			return err
		}
	default:
		return nil
	}
	return s.payouts.Save(ctx, p)
}

// Reconcile re-queries the provider for payouts stuck in Initiated longer
// than the staleness window.
func (s *Service) Reconcile(ctx context.Context, now time.Time) error {
	stale, err := s.payouts.FindStaleInitiated(ctx, now.Add(-s.staleAfter))
	if err != nil {
		return err
	}
	for i := range stale {
		p := &stale[i]
		result, err := s.client.Query(ctx, p.IdempotencyKey)
		if err != nil {
			s.logger.Warn("payout query failed during reconciliation",
				zap.String("key", p.IdempotencyKey), zap.Error(err))
			continue
		}
		if err := s.applyResult(ctx, p, result); err != nil {
			s.logger.Error("failed to apply reconciled payout state",
				zap.String("key", p.IdempotencyKey), zap.Error(err))
		}
	}
	return nil
}

// ForCollector lists a collector's payouts
func (s *Service) ForCollector(ctx context.Context, collectorID uuid.UUID, filter shared.Filter) ([]dispatch.Payout, error) {
	return s.payouts.FindByCollector(ctx, collectorID, filter)
}
