// Package jobs maps scheduled job kinds onto the application services that
// run them.
package jobs

import (
	"context"
	"fmt"

	"github.com/highprosper/backend/internal/application/billing"
	"github.com/highprosper/backend/internal/application/dunning"
	"github.com/highprosper/backend/internal/application/payout"
	"github.com/highprosper/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// Executor dispatches each periodic job to its service. Every job body is
// idempotent, so the scheduler is free to retry.
type Executor struct {
	billing *billing.Service
	dunning *dunning.Service
	payouts *payout.Service
	logger  *zap.Logger
}

// NewExecutor creates the job executor
func NewExecutor(billing *billing.Service, dunning *dunning.Service, payouts *payout.Service, logger *zap.Logger) *Executor {
	return &Executor{billing: billing, dunning: dunning, payouts: payouts, logger: logger}
}

// Execute runs one job body
func (e *Executor) Execute(ctx context.Context, job *scheduler.Job) error {
	switch job.Kind {
	case scheduler.JobGenerateMonthlyInvoices:
		created, err := e.billing.GenerateMonthly(ctx, job.AsOf)
		if err != nil {
			return err
		}
		e.logger.Info("invoice generation job done",
			zap.String("job_id", job.ID.String()), zap.Int("created", created))
		return nil
	case scheduler.JobSendInvoiceReminders:
		return e.dunning.Sweep(ctx, job.AsOf)
	case scheduler.JobSendVoiceReminders:
		return e.dunning.SendVoiceReminders(ctx, job.AsOf)
	case scheduler.JobExpireVoiceAttempts:
		return e.dunning.ExpireVoiceAttempts(ctx, job.AsOf)
	case scheduler.JobReconcilePayouts:
		return e.payouts.Reconcile(ctx, job.AsOf)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

var _ scheduler.JobExecutor = (*Executor)(nil)
