package channels

import (
	"context"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// WhatsAppDispatcher sends template messages through the WhatsApp Business
// API. Templates are pre-approved provider-side; we pass the key and params.
type WhatsAppDispatcher struct {
	provider config.ProviderConfig
	client   *providerClient
	logger   *zap.Logger
}

// NewWhatsAppDispatcher creates the WhatsApp channel adapter
func NewWhatsAppDispatcher(cfg config.ChannelsConfig, logger *zap.Logger) *WhatsAppDispatcher {
	return &WhatsAppDispatcher{
		provider: cfg.WhatsApp,
		client:   newProviderClient(cfg.HTTPTimeout),
		logger:   logger,
	}
}

// Channel returns the channel identifier
func (d *WhatsAppDispatcher) Channel() dispatch.Channel { return dispatch.ChannelWhatsApp }

type whatsappRequest struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Language string            `json:"language"`
	Params   map[string]string `json:"params,omitempty"`
}

// Attempt sends one template message
func (d *WhatsAppDispatcher) Attempt(ctx context.Context, target dispatch.Target, payload dispatch.Payload) dispatch.Outcome {
	status, _, err := d.client.postJSON(ctx, d.provider, "/messages", whatsappRequest{
		To:       target.Phone,
		Template: payload.TemplateKey,
		Language: target.Locale,
		Params:   payload.Params,
	}, nil)
	if err != nil {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: d.provider.Name, Reason: err.Error()}
	}

	ok, deferred := classify(status)
	switch {
	case deferred:
		return dispatch.Outcome{Result: dispatch.ResultDeferred, Provider: d.provider.Name}
	case ok:
		return dispatch.Outcome{Result: dispatch.ResultDelivered, Provider: d.provider.Name}
	default:
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: d.provider.Name, Reason: statusReason(status)}
	}
}

var _ dispatch.Dispatcher = (*WhatsAppDispatcher)(nil)
