// Command jobs runs one periodic job to completion and exits, for operators
// and cron environments that do not run the in-process scheduler.
//
//	jobs generate_monthly_invoices [--as-of 2026-03-01]
//	jobs send_invoice_reminders
//	jobs send_voice_reminders
//	jobs expire_voice_attempts
//	jobs reconcile_payouts
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	appbilling "github.com/highprosper/backend/internal/application/billing"
	appcollection "github.com/highprosper/backend/internal/application/collection"
	appdunning "github.com/highprosper/backend/internal/application/dunning"
	appjobs "github.com/highprosper/backend/internal/application/jobs"
	appnotify "github.com/highprosper/backend/internal/application/notify"
	apppayout "github.com/highprosper/backend/internal/application/payout"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/cache"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/logger"
	"github.com/highprosper/backend/internal/infrastructure/persistence"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"github.com/highprosper/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

func main() {
	asOfFlag := flag.String("as-of", "", "instant the job reasons about, RFC3339 or 2006-01-02 (default now)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: jobs [--as-of TIME] <kind>\nkinds:\n")
		for _, kind := range scheduler.AllJobKinds() {
			fmt.Fprintf(os.Stderr, "  %s\n", kind)
		}
		os.Exit(2)
	}
	kind := scheduler.JobKind(flag.Arg(0))

	asOf := time.Now()
	if *asOfFlag != "" {
		parsed, err := parseAsOf(*asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --as-of: %v\n", err)
			os.Exit(2)
		}
		asOf = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer log.Sync()

	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	executor := buildExecutor(cfg, db, log)
	job := scheduler.NewJob(kind, asOf, 0)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.JobTimeout)
	defer cancel()

	if err := executor.Execute(ctx, job); err != nil {
		log.Error("job failed", zap.String("kind", string(kind)), zap.Error(err))
		os.Exit(1)
	}
	log.Info("job finished", zap.String("kind", string(kind)), zap.Time("as_of", asOf))
}

func parseAsOf(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// buildExecutor wires the job executor the same way the server does, minus
// the HTTP surface. The realtime hub exists so notifications publish cleanly
// into the void.
func buildExecutor(cfg *config.Config, db *persistence.Database, log *zap.Logger) *appjobs.Executor {
	customers := persistence.NewGormCustomerRepository(db.DB)
	invoices := persistence.NewGormInvoiceRepository(db.DB)
	payments := persistence.NewGormPaymentRepository(db.DB)
	villages := persistence.NewGormVillageRepository(db.DB)
	payouts := persistence.NewGormPayoutRepository(db.DB)
	principals := persistence.NewGormPrincipalRepository(db.DB)
	orders := persistence.NewGormServiceOrderRepository(db.DB)
	notifications := persistence.NewGormNotificationRepository(db.DB)

	hub := realtime.NewHub(log)
	notifySvc := appnotify.NewService(notifications, hub, log)

	sms := channels.NewSMSDispatcher(cfg.Channels, log)
	voice := channels.NewVoiceDispatcher(cfg.Channels, log)
	whatsapp := channels.NewWhatsAppDispatcher(cfg.Channels, log)
	push := channels.NewPushDispatcher(cfg.Channels, log)
	momo := channels.NewMoMoClient(cfg.Channels, log)

	payoutSvc := apppayout.NewService(payouts, principals, momo, cfg.Billing, cfg.Dispatch, log)
	collectionSvc := appcollection.NewService(invoices, customers, principals, orders, notifySvc, push, nil, cfg.Dispatch, log)
	field := channels.NewFieldVisitDispatcher(collectionSvc.NotifyFieldVisit, log)

	idempotency := cache.NewInMemoryIdempotencyStore()
	billingSvc := appbilling.NewService(customers, invoices, payments, villages, idempotency,
		nil, nil, sms, notifySvc, collectionSvc, payoutSvc, nil, cfg.Billing, log)

	dispatchers := map[dispatch.Channel]dispatch.Dispatcher{
		dispatch.ChannelSMS:      sms,
		dispatch.ChannelVoice:    voice,
		dispatch.ChannelWhatsApp: whatsapp,
		dispatch.ChannelPush:     push,
		dispatch.ChannelField:    field,
	}
	dunningSvc := appdunning.NewService(invoices, customers, dispatchers, nil, cfg.Billing, log)

	return appjobs.NewExecutor(billingSvc, dunningSvc, payoutSvc, log)
}
