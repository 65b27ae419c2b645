package channels

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// VoiceDispatcher initiates automated reminder calls. It only starts the
// call; the call result arrives later on the status callback carrying the
// invoice uid, or the in-flight deadline sweep resolves it.
type VoiceDispatcher struct {
	provider    config.ProviderConfig
	callbackURL string
	secret      string
	client      *providerClient
	logger      *zap.Logger
}

// NewVoiceDispatcher creates the voice channel adapter
func NewVoiceDispatcher(cfg config.ChannelsConfig, logger *zap.Logger) *VoiceDispatcher {
	return &VoiceDispatcher{
		provider:    cfg.Voice,
		callbackURL: cfg.VoiceCallbackURL,
		secret:      cfg.VoiceSecret,
		client:      newProviderClient(cfg.HTTPTimeout),
		logger:      logger,
	}
}

// SignCallback computes the hex HMAC a voice status callback must carry.
// The dispatcher and the status webhook share it so the URL built here
// verifies there.
func SignCallback(secret, invoiceUID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(invoiceUID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Channel returns the channel identifier
func (d *VoiceDispatcher) Channel() dispatch.Channel { return dispatch.ChannelVoice }

type voiceRequest struct {
	To          string `json:"to"`
	From        string `json:"from,omitempty"`
	Script      string `json:"script"`
	Language    string `json:"language"`
	CallbackURL string `json:"callback_url"`
}

// Attempt places the call request. A successful initiate is always reported
// as deferred: delivery is only known once the callback lands.
func (d *VoiceDispatcher) Attempt(ctx context.Context, target dispatch.Target, payload dispatch.Payload) dispatch.Outcome {
	script := Render(target.Locale, payload.TemplateKey, payload.Params)
	if script == "" {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Reason: "unknown template " + payload.TemplateKey}
	}

	status, _, err := d.client.postJSON(ctx, d.provider, "/calls", voiceRequest{
		To:          target.Phone,
		From:        d.provider.SenderID,
		Script:      script,
		Language:    target.Locale,
		CallbackURL: d.statusURL(payload.InvoiceUID),
	}, nil)
	if err != nil {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: d.provider.Name, Reason: err.Error()}
	}

	if ok, _ := classify(status); !ok {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: d.provider.Name, Reason: statusReason(status)}
	}
	return dispatch.Outcome{Result: dispatch.ResultDeferred, Provider: d.provider.Name}
}

// statusURL builds the callback URL the provider posts CallStatus to. With a
// secret configured the invoice uid is signed; the webhook rejects callbacks
// whose signature does not verify.
func (d *VoiceDispatcher) statusURL(invoiceUID string) string {
	u := fmt.Sprintf("%s?invoice_uid=%s", d.callbackURL, url.QueryEscape(invoiceUID))
	if d.secret != "" {
		u += "&sig=" + SignCallback(d.secret, invoiceUID)
	}
	return u
}

func statusReason(status int) string {
	return fmt.Sprintf("provider returned HTTP %d", status)
}

var _ dispatch.Dispatcher = (*VoiceDispatcher)(nil)
