package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func postVoiceStatus(t *testing.T, h *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPost, "/voice/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	h.VoiceStatus(c)
	return rec
}

func TestVoiceStatus_SignatureGate(t *testing.T) {
	const secret = "voice-callback-key"
	h := NewWebhookHandler(nil, nil, nil, config.ChannelsConfig{VoiceSecret: secret})

	t.Run("missing signature is rejected", func(t *testing.T) {
		rec := postVoiceStatus(t, h, url.Values{
			"CallStatus":  {"completed"},
			"invoice_uid": {"INV-0AF31B22C4D5E6F7"},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("forged signature is rejected", func(t *testing.T) {
		rec := postVoiceStatus(t, h, url.Values{
			"CallStatus":  {"completed"},
			"invoice_uid": {"INV-0AF31B22C4D5E6F7"},
			"sig":         {"deadbeef"},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("signature minted for another invoice is rejected", func(t *testing.T) {
		rec := postVoiceStatus(t, h, url.Values{
			"CallStatus":  {"completed"},
			"invoice_uid": {"INV-0AF31B22C4D5E6F7"},
			"sig":         {channels.SignCallback(secret, "INV-FFFFFFFFFFFFFFFF")},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing fields stay a bad request", func(t *testing.T) {
		rec := postVoiceStatus(t, h, url.Values{"CallStatus": {"completed"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
