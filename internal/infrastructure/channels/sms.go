package channels

import (
	"context"
	"net/http"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SMSDispatcher sends text messages through a primary gateway with one
// optional fallback. At most two provider calls happen per attempt.
type SMSDispatcher struct {
	primary  config.ProviderConfig
	fallback config.ProviderConfig
	client   *providerClient
	logger   *zap.Logger
}

// NewSMSDispatcher creates the SMS channel adapter
func NewSMSDispatcher(cfg config.ChannelsConfig, logger *zap.Logger) *SMSDispatcher {
	return &SMSDispatcher{
		primary:  cfg.SMSPrimary,
		fallback: cfg.SMSFallback,
		client:   newProviderClient(cfg.HTTPTimeout),
		logger:   logger,
	}
}

// Channel returns the channel identifier
func (d *SMSDispatcher) Channel() dispatch.Channel { return dispatch.ChannelSMS }

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// Attempt renders the localized message and sends it. The fallback gateway
// is tried only when the primary is unreachable or answers 5xx; a 4xx means
// the request itself is bad and would fail identically on the fallback.
func (d *SMSDispatcher) Attempt(ctx context.Context, target dispatch.Target, payload dispatch.Payload) dispatch.Outcome {
	text := Render(target.Locale, payload.TemplateKey, payload.Params)
	if text == "" {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Reason: "unknown template " + payload.TemplateKey}
	}

	outcome, retryable := d.send(ctx, d.primary, target.Phone, text)
	if outcome.Succeeded() || !retryable || d.fallback.BaseURL == "" {
		return outcome
	}

	d.logger.Warn("sms primary failed, trying fallback",
		zap.String("primary", d.primary.Name),
		zap.String("fallback", d.fallback.Name),
		zap.String("reason", outcome.Reason))
	outcome, _ = d.send(ctx, d.fallback, target.Phone, text)
	return outcome
}

// send reports the outcome plus whether a failure was transport-level
// (network error or 5xx), the only kind worth retrying elsewhere.
func (d *SMSDispatcher) send(ctx context.Context, provider config.ProviderConfig, phone, text string) (dispatch.Outcome, bool) {
	status, _, err := d.client.postJSON(ctx, provider, "/messages", smsRequest{
		To:   phone,
		From: provider.SenderID,
		Text: text,
	}, nil)
	if err != nil {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: provider.Name, Reason: err.Error()}, true
	}

	ok, deferred := classify(status)
	switch {
	case deferred:
		return dispatch.Outcome{Result: dispatch.ResultDeferred, Provider: provider.Name}, false
	case ok:
		return dispatch.Outcome{Result: dispatch.ResultDelivered, Provider: provider.Name}, false
	default:
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: provider.Name, Reason: statusReason(status)},
			status >= http.StatusInternalServerError
	}
}

var _ dispatch.Dispatcher = (*SMSDispatcher)(nil)
