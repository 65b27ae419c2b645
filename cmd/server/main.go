package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appbilling "github.com/highprosper/backend/internal/application/billing"
	appchat "github.com/highprosper/backend/internal/application/chat"
	appcollection "github.com/highprosper/backend/internal/application/collection"
	appdunning "github.com/highprosper/backend/internal/application/dunning"
	appidentity "github.com/highprosper/backend/internal/application/identity"
	appjobs "github.com/highprosper/backend/internal/application/jobs"
	appnotify "github.com/highprosper/backend/internal/application/notify"
	apppayout "github.com/highprosper/backend/internal/application/payout"
	appussd "github.com/highprosper/backend/internal/application/ussd"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/auth"
	"github.com/highprosper/backend/internal/infrastructure/cache"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/event"
	"github.com/highprosper/backend/internal/infrastructure/logger"
	"github.com/highprosper/backend/internal/infrastructure/pdf"
	"github.com/highprosper/backend/internal/infrastructure/persistence"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"github.com/highprosper/backend/internal/infrastructure/scheduler"
	"github.com/highprosper/backend/internal/infrastructure/storage"
	"github.com/highprosper/backend/internal/interfaces/http/handler"
	"github.com/highprosper/backend/internal/interfaces/http/router"
	"github.com/highprosper/backend/internal/interfaces/ws"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer log.Sync()
	log.Info("starting highprosper backend",
		zap.String("version", version),
		zap.String("env", cfg.App.Env))

	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	// ephemeral state lives in redis; a missing redis degrades to in-process
	// stores, which is fine for a single instance
	var sessions shared.SessionStore
	var idempotency shared.IdempotencyStore
	if redisClient, err := cache.NewRedisClient(cfg.Redis); err != nil {
		log.Warn("redis unavailable, using in-memory session and idempotency stores", zap.Error(err))
		sessions = cache.NewInMemorySessionStore()
		idempotency = cache.NewInMemoryIdempotencyStore()
	} else {
		defer redisClient.Close()
		sessions = cache.NewRedisSessionStore(redisClient, cfg.App.Name)
		idempotency = cache.NewRedisIdempotencyStore(redisClient, cfg.App.Name)
	}

	// repositories
	customers := persistence.NewGormCustomerRepository(db.DB)
	invoices := persistence.NewGormInvoiceRepository(db.DB)
	payments := persistence.NewGormPaymentRepository(db.DB)
	villages := persistence.NewGormVillageRepository(db.DB)
	payouts := persistence.NewGormPayoutRepository(db.DB)
	principals := persistence.NewGormPrincipalRepository(db.DB)
	orders := persistence.NewGormServiceOrderRepository(db.DB)
	notifications := persistence.NewGormNotificationRepository(db.DB)
	chatMessages := persistence.NewGormChatMessageRepository(db.DB)

	// identity
	jwtService := auth.NewJWTService(cfg.JWT)
	resolver := appidentity.NewResolver(jwtService, principals, log)
	authService := appidentity.NewAuthService(jwtService, principals, log)

	// realtime fan-out and its consumers
	hub := realtime.NewHub(log)
	notifySvc := appnotify.NewService(notifications, hub, log)
	chatSvc := appchat.NewService(chatMessages, hub, log)

	// domain events fan out to the ops activity and per-payment streams
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewStreamHandler(hub, log))
	bus.Subscribe(event.NewPaymentStreamHandler(hub, log))

	// outbound channels
	sms := channels.NewSMSDispatcher(cfg.Channels, log)
	voice := channels.NewVoiceDispatcher(cfg.Channels, log)
	whatsapp := channels.NewWhatsAppDispatcher(cfg.Channels, log)
	push := channels.NewPushDispatcher(cfg.Channels, log)
	momo := channels.NewMoMoClient(cfg.Channels, log)

	payoutSvc := apppayout.NewService(payouts, principals, momo, cfg.Billing, cfg.Dispatch, log)
	collectionSvc := appcollection.NewService(invoices, customers, principals, orders, notifySvc, push, bus, cfg.Dispatch, log)
	field := channels.NewFieldVisitDispatcher(collectionSvc.NotifyFieldVisit, log)

	// invoice PDF rendering is optional; without Chrome invoices simply have
	// no attachment
	var renderer appbilling.Renderer
	if r, err := pdf.NewInvoiceRenderer(os.Getenv("HP_CHROME_URL"), cfg.Channels.MoMoPayCode, log); err != nil {
		log.Warn("invoice renderer unavailable", zap.Error(err))
	} else {
		renderer = r
		defer r.Close()
	}
	objectStore, err := newObjectStore(cfg, log)
	if err != nil {
		log.Warn("object store unavailable, invoice PDFs disabled", zap.Error(err))
	}

	billingSvc := appbilling.NewService(customers, invoices, payments, villages, idempotency,
		renderer, objectStore, sms, notifySvc, collectionSvc, payoutSvc, bus, cfg.Billing, log)

	dispatchers := map[dispatch.Channel]dispatch.Dispatcher{
		dispatch.ChannelSMS:      sms,
		dispatch.ChannelVoice:    voice,
		dispatch.ChannelWhatsApp: whatsapp,
		dispatch.ChannelPush:     push,
		dispatch.ChannelField:    field,
	}
	dunningSvc := appdunning.NewService(invoices, customers, dispatchers, bus, cfg.Billing, log)

	ussdController := appussd.NewController(sessions, billingSvc, cfg.USSD, cfg.Billing, cfg.Channels, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go chatSvc.Run(rootCtx)

	// background jobs
	var sched *scheduler.Scheduler
	var trigger *scheduler.CronTrigger
	if cfg.Scheduler.Enabled {
		executor := appjobs.NewExecutor(billingSvc, dunningSvc, payoutSvc, log)
		sched = scheduler.NewScheduler(cfg.Scheduler, executor, log)
		if err := sched.Start(rootCtx); err != nil {
			log.Fatal("scheduler start failed", zap.Error(err))
		}
		trigger = scheduler.NewCronTrigger(scheduler.DefaultCronTriggerConfig(cfg.Scheduler), sched, log)
		if err := trigger.Start(rootCtx); err != nil {
			log.Fatal("cron trigger start failed", zap.Error(err))
		}
	}

	// HTTP and websocket surface
	handlers := router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Invoices:      handler.NewInvoiceHandler(billingSvc),
		Customers:     handler.NewCustomerHandler(billingSvc),
		Payments:      handler.NewPaymentHandler(billingSvc, payoutSvc),
		Orders:        handler.NewOrderHandler(collectionSvc),
		Notifications: handler.NewNotificationHandler(notifySvc),
		Chat:          handler.NewChatHandler(chatSvc),
		Streams:       handler.NewStreamHandler(hub),
		Webhooks:      handler.NewWebhookHandler(billingSvc, dunningSvc, payoutSvc, cfg.Channels),
		USSD:          handler.NewUSSDHandler(ussdController),
		System:        handler.NewSystemHandler(db.DB, hub, version),
	}
	engine := router.New(cfg, jwtService, handlers, log)

	gateway := ws.NewGateway(rootCtx, resolver, hub, chatSvc, cfg.Realtime, log)
	gateway.Register(engine)
	go gateway.RunStatsBroadcaster(rootCtx, cfg.Realtime.PingInterval)

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Scheduler.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if trigger != nil {
		_ = trigger.Stop(shutdownCtx)
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("scheduler shutdown incomplete", zap.Error(err))
		}
	}
	rootCancel()
	log.Info("bye")
}

// newObjectStore builds the invoice attachment store from configuration
func newObjectStore(cfg *config.Config, log *zap.Logger) (storage.ObjectStore, error) {
	if cfg.Storage.Driver == "s3" {
		store, err := storage.NewS3Store(&cfg.Storage, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := storage.NewLocalStore(cfg.Storage.LocalDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}
