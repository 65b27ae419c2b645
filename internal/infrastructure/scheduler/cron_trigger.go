package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CronTriggerConfig holds the timing of the periodic jobs
type CronTriggerConfig struct {
	// GenerationDay/Hour fire monthly invoice generation (1st at 02:00)
	GenerationDay  int
	GenerationHour int
	// SweepHour fires the daily reminder sweep (08:00 local, when phones
	// are on and shops are open)
	SweepHour int
	// VoiceExpiryInterval re-checks unresolved voice attempts
	VoiceExpiryInterval time.Duration
	// ReconcileInterval re-queries stale payouts
	ReconcileInterval time.Duration
	// CheckInterval is how often the clock is inspected
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns the standard timing
func DefaultCronTriggerConfig(cfg config.SchedulerConfig) CronTriggerConfig {
	return CronTriggerConfig{
		GenerationDay:       1,
		GenerationHour:      2,
		SweepHour:           8,
		VoiceExpiryInterval: time.Minute,
		ReconcileInterval:   cfg.ReconcileInterval,
		CheckInterval:       30 * time.Second,
	}
}

// CronTrigger submits the periodic jobs to the scheduler on their cadence.
// Every job is idempotent, so a trigger that fires twice across restarts
// does no harm.
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastGenerationMonth string
	lastSweepDate       string
	lastVoiceExpiry     time.Time
	lastReconcile       time.Time
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(cfg CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	return &CronTrigger{
		config:    cfg,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts the trigger loop
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("generation_day", c.config.GenerationDay),
		zap.Int("sweep_hour", c.config.SweepHour),
		zap.Duration("voice_expiry_interval", c.config.VoiceExpiryInterval),
		zap.Duration("reconcile_interval", c.config.ReconcileInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.check(time.Now())
		}
	}
}

// check inspects the clock once and submits whatever is due
func (c *CronTrigger) check(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	month := now.Format("2006-01")
	if now.Day() == c.config.GenerationDay &&
		now.Hour() == c.config.GenerationHour &&
		c.lastGenerationMonth != month {
		c.lastGenerationMonth = month
		c.submit(JobGenerateMonthlyInvoices)
	}

	date := now.Format("2006-01-02")
	if now.Hour() == c.config.SweepHour && c.lastSweepDate != date {
		c.lastSweepDate = date
		c.submit(JobSendInvoiceReminders)
		c.submit(JobSendVoiceReminders)
	}

	if now.Sub(c.lastVoiceExpiry) >= c.config.VoiceExpiryInterval {
		c.lastVoiceExpiry = now
		c.submit(JobExpireVoiceAttempts)
	}

	if now.Sub(c.lastReconcile) >= c.config.ReconcileInterval {
		c.lastReconcile = now
		c.submit(JobReconcilePayouts)
	}
}

func (c *CronTrigger) submit(kind JobKind) {
	if err := c.scheduler.SubmitKind(kind); err != nil {
		c.logger.Error("Failed to submit scheduled job",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
