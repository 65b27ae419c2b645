// Package router wires the HTTP surface together
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/highprosper/backend/internal/infrastructure/auth"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/logger"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
	"github.com/highprosper/backend/internal/interfaces/http/handler"
	"github.com/highprosper/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers collects everything the router mounts
type Handlers struct {
	Auth          *handler.AuthHandler
	Invoices      *handler.InvoiceHandler
	Customers     *handler.CustomerHandler
	Payments      *handler.PaymentHandler
	Orders        *handler.OrderHandler
	Notifications *handler.NotificationHandler
	Chat          *handler.ChatHandler
	Streams       *handler.StreamHandler
	Webhooks      *handler.WebhookHandler
	USSD          *handler.USSDHandler
	System        *handler.SystemHandler
}

// New builds the gin engine with all middleware and routes
func New(cfg *config.Config, jwtService *auth.JWTService, h Handlers, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidators()
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(logger.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORS(cfg.HTTP))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// provider-facing surface, authenticated by signature or not at all
	engine.GET("/health", h.System.Health)
	engine.POST("/ussd", h.USSD.Handle)
	engine.POST("/voice/status", h.Webhooks.VoiceStatus)
	engine.POST("/payments/webhook/momo", h.Webhooks.MoMo)
	engine.POST("/webhook/stripe", h.Webhooks.Stripe)
	engine.POST("/webhook/whatsapp", h.Webhooks.WhatsAppStatus)
	engine.POST("/webhook/payouts", h.Webhooks.PayoutStatus)

	api := engine.Group("/api/v1")
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/register", h.Auth.Register)

	authed := api.Group("")
	authed.Use(middleware.JWTAuth(middleware.JWTConfig{Service: jwtService}))
	{
		me := authed.Group("/me")
		{
			me.GET("/invoices", h.Invoices.MyInvoices)
			me.GET("/balance", h.Invoices.MyBalance)
			me.GET("/payouts", middleware.RequireRole("collector"), h.Payments.MyPayouts)
		}

		staff := middleware.RequireRole("manager", "admin", "ceo")
		invoices := authed.Group("/invoices")
		{
			invoices.GET("/:uid", h.Invoices.Get)
			invoices.POST("/:uid/write-off", staff, h.Invoices.WriteOff)
		}
		customers := authed.Group("/customers", staff)
		{
			customers.GET("", h.Customers.List)
			customers.GET("/:id", h.Customers.Get)
			customers.GET("/:id/outstanding", h.Customers.Outstanding)
			customers.GET("/:id/invoices", h.Invoices.CustomerInvoices)
		}
		villages := authed.Group("/villages", middleware.RequireRole("collector", "manager", "admin", "ceo"))
		{
			villages.GET("", h.Customers.Villages)
			villages.GET("/:id/customers", h.Customers.VillageCustomers)
		}

		payments := authed.Group("/payments")
		{
			payments.POST("/initiate", h.Payments.Initiate)
			payments.POST("/confirm", h.Payments.Confirm)
			payments.POST("/cash", middleware.RequireRole("collector"), h.Payments.RecordCash)
		}

		orders := authed.Group("/orders", middleware.RequireRole("collector"))
		{
			orders.GET("/open", h.Orders.Open)
			orders.POST("/:id/start", h.Orders.Start)
			orders.POST("/:id/complete", h.Orders.Complete)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", h.Notifications.Feed)
			notifications.GET("/unread-count", h.Notifications.UnreadCount)
			notifications.POST("/mark-all-read", h.Notifications.MarkAllRead)
		}

		chat := authed.Group("/chat")
		{
			chat.GET("/unread", h.Chat.UnreadSummary)
			chat.GET("/:id/messages", h.Chat.History)
		}

		authed.POST("/streams/:topic", staff, h.Streams.Publish)
		authed.GET("/system/stats", staff, h.System.Stats)
	}

	return engine
}
