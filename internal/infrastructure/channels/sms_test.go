package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func smsConfig(primary, fallback string) config.ChannelsConfig {
	return config.ChannelsConfig{
		HTTPTimeout: 2 * time.Second,
		SMSPrimary:  config.ProviderConfig{Name: "primary", BaseURL: primary, SenderID: "HIPROSPER"},
		SMSFallback: config.ProviderConfig{Name: "fallback", BaseURL: fallback},
	}
}

func reminderPayload() dispatch.Payload {
	return dispatch.Payload{
		TemplateKey: TemplateDueReminder,
		Params:      map[string]string{"name": "Jane", "amount": "5000", "currency": "RWF"},
	}
}

func TestSMSDispatcher_Attempt(t *testing.T) {
	target := dispatch.Target{Phone: "+250788123456", Locale: "rw"}

	t.Run("primary 200 is delivered", func(t *testing.T) {
		var got smsRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		d := NewSMSDispatcher(smsConfig(srv.URL, ""), zap.NewNop())
		outcome := d.Attempt(context.Background(), target, reminderPayload())

		assert.Equal(t, dispatch.ResultDelivered, outcome.Result)
		assert.Equal(t, "primary", outcome.Provider)
		assert.Equal(t, "+250788123456", got.To)
		assert.Contains(t, got.Text, "Jane")
		assert.Contains(t, got.Text, "*775#", "localized body")
	})

	t.Run("primary 202 is deferred and counts as success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		d := NewSMSDispatcher(smsConfig(srv.URL, ""), zap.NewNop())
		outcome := d.Attempt(context.Background(), target, reminderPayload())

		assert.Equal(t, dispatch.ResultDeferred, outcome.Result)
		assert.True(t, outcome.Succeeded())
	})

	t.Run("primary failure falls back once", func(t *testing.T) {
		primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer primary.Close()

		var fallbackCalls int
		fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fallbackCalls++
			w.WriteHeader(http.StatusOK)
		}))
		defer fallback.Close()

		d := NewSMSDispatcher(smsConfig(primary.URL, fallback.URL), zap.NewNop())
		outcome := d.Attempt(context.Background(), target, reminderPayload())

		assert.Equal(t, dispatch.ResultDelivered, outcome.Result)
		assert.Equal(t, "fallback", outcome.Provider)
		assert.Equal(t, 1, fallbackCalls)
	})

	t.Run("primary 4xx does not fall back", func(t *testing.T) {
		primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer primary.Close()

		var fallbackCalls int
		fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fallbackCalls++
			w.WriteHeader(http.StatusOK)
		}))
		defer fallback.Close()

		d := NewSMSDispatcher(smsConfig(primary.URL, fallback.URL), zap.NewNop())
		outcome := d.Attempt(context.Background(), target, reminderPayload())

		assert.Equal(t, dispatch.ResultFailed, outcome.Result)
		assert.Equal(t, "primary", outcome.Provider, "a rejected request stays with the primary")
		assert.Zero(t, fallbackCalls)
	})

	t.Run("both providers down is failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		d := NewSMSDispatcher(smsConfig(srv.URL, srv.URL), zap.NewNop())
		outcome := d.Attempt(context.Background(), target, reminderPayload())

		assert.Equal(t, dispatch.ResultFailed, outcome.Result)
		assert.False(t, outcome.Succeeded())
		assert.NotEmpty(t, outcome.Reason)
	})

	t.Run("unknown template fails without a provider call", func(t *testing.T) {
		d := NewSMSDispatcher(smsConfig("http://127.0.0.1:0", ""), zap.NewNop())
		outcome := d.Attempt(context.Background(), target, dispatch.Payload{TemplateKey: "no.such.key"})
		assert.Equal(t, dispatch.ResultFailed, outcome.Result)
	})
}

func TestVoiceDispatcher_Attempt(t *testing.T) {
	t.Run("initiate carries the invoice uid on the callback url", func(t *testing.T) {
		var got voiceRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		cfg := config.ChannelsConfig{
			HTTPTimeout:      2 * time.Second,
			Voice:            config.ProviderConfig{Name: "voice", BaseURL: srv.URL},
			VoiceCallbackURL: "https://api.highprosper.rw/voice/status",
		}
		d := NewVoiceDispatcher(cfg, zap.NewNop())

		outcome := d.Attempt(context.Background(),
			dispatch.Target{Phone: "+250788123456", Locale: "rw"},
			dispatch.Payload{
				TemplateKey: TemplateVoiceScript,
				Params:      map[string]string{"amount": "5000", "currency": "RWF"},
				InvoiceUID:  "INV-0AF31B22C4D5E6F7",
			})

		assert.Equal(t, dispatch.ResultDeferred, outcome.Result, "initiate-only channel never reports delivered")
		assert.Contains(t, got.CallbackURL, "invoice_uid=INV-0AF31B22C4D5E6F7")
		assert.Equal(t, "rw", got.Language)
	})

	t.Run("configured secret signs the callback url", func(t *testing.T) {
		var got voiceRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		cfg := config.ChannelsConfig{
			HTTPTimeout:      2 * time.Second,
			Voice:            config.ProviderConfig{Name: "voice", BaseURL: srv.URL},
			VoiceCallbackURL: "https://api.highprosper.rw/voice/status",
			VoiceSecret:      "voice-callback-key",
		}
		d := NewVoiceDispatcher(cfg, zap.NewNop())

		d.Attempt(context.Background(),
			dispatch.Target{Phone: "+250788123456", Locale: "rw"},
			dispatch.Payload{
				TemplateKey: TemplateVoiceScript,
				Params:      map[string]string{"amount": "5000", "currency": "RWF"},
				InvoiceUID:  "INV-0AF31B22C4D5E6F7",
			})

		assert.Contains(t, got.CallbackURL,
			"&sig="+SignCallback("voice-callback-key", "INV-0AF31B22C4D5E6F7"))
	})

	t.Run("provider rejection is failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		cfg := config.ChannelsConfig{Voice: config.ProviderConfig{Name: "voice", BaseURL: srv.URL}}
		d := NewVoiceDispatcher(cfg, zap.NewNop())

		outcome := d.Attempt(context.Background(),
			dispatch.Target{Phone: "+250788123456", Locale: "en"},
			dispatch.Payload{TemplateKey: TemplateVoiceScript})
		assert.Equal(t, dispatch.ResultFailed, outcome.Result)
	})
}
