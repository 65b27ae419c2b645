package channels

import (
	"context"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// PushDispatcher sends mobile push notifications through the push gateway,
// addressed by the customer's phone number (the gateway owns the device
// token mapping).
type PushDispatcher struct {
	provider config.ProviderConfig
	client   *providerClient
	logger   *zap.Logger
}

// NewPushDispatcher creates the push channel adapter
func NewPushDispatcher(cfg config.ChannelsConfig, logger *zap.Logger) *PushDispatcher {
	return &PushDispatcher{
		provider: cfg.Push,
		client:   newProviderClient(cfg.HTTPTimeout),
		logger:   logger,
	}
}

// Channel returns the channel identifier
func (d *PushDispatcher) Channel() dispatch.Channel { return dispatch.ChannelPush }

type pushRequest struct {
	Phone string            `json:"phone"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Attempt sends one push notification
func (d *PushDispatcher) Attempt(ctx context.Context, target dispatch.Target, payload dispatch.Payload) dispatch.Outcome {
	body := Render(target.Locale, payload.TemplateKey, payload.Params)
	if body == "" {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Reason: "unknown template " + payload.TemplateKey}
	}

	data := map[string]string{}
	if payload.InvoiceUID != "" {
		data["invoice_uid"] = payload.InvoiceUID
	}

	status, _, err := d.client.postJSON(ctx, d.provider, "/push", pushRequest{
		Phone: target.Phone,
		Title: "High Prosper",
		Body:  body,
		Data:  data,
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

var _ dispatch.Dispatcher = (*PushDispatcher)(nil)
