package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/highprosper/backend/internal/application/billing"
	appdunning "github.com/highprosper/backend/internal/application/dunning"
	apppayout "github.com/highprosper/backend/internal/application/payout"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// WebhookHandler receives provider callbacks. Every endpoint here is
// unauthenticated at the JWT layer and must be replay safe; payments
// deduplicate on reference, payouts on idempotency key.
type WebhookHandler struct {
	BaseHandler
	billing *appbilling.Service
	dunning *appdunning.Service
	payouts *apppayout.Service
	cfg     config.ChannelsConfig
}

// NewWebhookHandler creates the webhook handler
func NewWebhookHandler(billing *appbilling.Service, dunning *appdunning.Service, payouts *apppayout.Service, cfg config.ChannelsConfig) *WebhookHandler {
	return &WebhookHandler{billing: billing, dunning: dunning, payouts: payouts, cfg: cfg}
}

// momoCallback is the mobile-money collection notification
type momoCallback struct {
	Status            string `json:"status"` // SUCCESSFUL or FAILED
	ExternalID        string `json:"externalId"`
	FinancialTransID  string `json:"financialTransactionId"`
	ExternalReference string `json:"externalReference"` // our intent reference, when set
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Reason            string `json:"reason"`
	Payer             struct {
		PartyIDType string `json:"partyIdType"`
		PartyID     string `json:"partyId"` // MSISDN
	} `json:"payer"`
}

// MoMo handles POST /payments/webhook/momo. A callback carrying our intent reference
// settles that intent; a spontaneous collection is applied against the
// payer's oldest open invoice. Duplicate deliveries are acknowledged with 200
// so the provider stops retrying.
func (h *WebhookHandler) MoMo(c *gin.Context) {
	var cb momoCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		h.BadRequest(c, err)
		return
	}
	success := strings.EqualFold(cb.Status, "SUCCESSFUL")

	var err error
	if cb.ExternalReference != "" {
		_, err = h.billing.SettleByReference(c.Request.Context(), cb.ExternalReference, success, cb.Reason)
	} else if success {
		var amount decimal.Decimal
		amount, err = decimal.NewFromString(cb.Amount)
		if err != nil {
			h.BadRequest(c, err)
			return
		}
		_, err = h.billing.ApplyPayment(c.Request.Context(), appbilling.ApplyPaymentCommand{
			Reference:  cb.ExternalID,
			ExternalID: cb.FinancialTransID,
			PayerPhone: "+" + strings.TrimPrefix(cb.Payer.PartyID, "+"),
			Amount:     amount,
			Method:     billing.PaymentMethodMoMo,
			ReceivedAt: time.Now(),
		})
	} else {
		// failed collection with no intent attached, nothing to settle
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err != nil {
		if appbilling.IsDuplicatePayment(err) {
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
			return
		}
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

// VoiceStatus handles POST /voice/status, the telephony provider's
// call-completion callback. The provider expects a plaintext body. The
// invoice uid and signature arrive in the callback URL the dispatcher
// built; a callback whose signature does not verify is rejected.
func (h *WebhookHandler) VoiceStatus(c *gin.Context) {
	callStatus := c.PostForm("CallStatus")
	invoiceUID := c.Request.FormValue("invoice_uid")
	if callStatus == "" || invoiceUID == "" {
		c.String(http.StatusBadRequest, "Missing CallStatus or invoice_uid")
		return
	}
	if !h.verifyVoiceSignature(c.Request.FormValue("sig"), invoiceUID) {
		c.String(http.StatusForbidden, "Signature verification failed")
		return
	}
	if err := h.dunning.HandleVoiceStatus(c.Request.Context(), invoiceUID, callStatus, time.Now()); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && (domainErr.Code == "UNKNOWN_INVOICE" || domainErr.Code == "NOT_FOUND") {
			c.String(http.StatusNotFound, "Unknown invoice")
			return
		}
		logger.FromGin(c).Error("voice status handling failed",
			zap.String("invoice_uid", invoiceUID), zap.Error(err))
		c.String(http.StatusInternalServerError, "Error")
		return
	}
	c.String(http.StatusOK, "OK")
}

// payoutCallback is the disbursement provider's status notification
type payoutCallback struct {
	ExternalID  string `json:"externalId"` // our COMM-<uuid> idempotency key
	Status      string `json:"status"`     // SUCCESSFUL or FAILED
	ProviderRef string `json:"financialTransactionId"`
	Reason      string `json:"reason"`
}

// PayoutStatus handles POST /webhook/payouts
func (h *WebhookHandler) PayoutStatus(c *gin.Context) {
	var cb payoutCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		h.BadRequest(c, err)
		return
	}
	if err := h.payouts.HandleWebhook(c.Request.Context(), cb.ExternalID, cb.Status, cb.ProviderRef, cb.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stripe handles POST /webhook/stripe. The signature header is verified
// against the endpoint secret before anything is parsed.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.StripeSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payment intent"})
			return
		}
		reference := intent.Metadata["reference"]
		if reference == "" {
			logger.FromGin(c).Warn("stripe intent without reference metadata", zap.String("intent", intent.ID))
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		success := event.Type == "payment_intent.succeeded"
		if _, err := h.billing.SettleByReference(c.Request.Context(), reference, success, string(intent.Status)); err != nil {
			if appbilling.IsDuplicatePayment(err) {
				c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
				return
			}
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "applied"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

// whatsAppStatus is one delivery receipt in the WhatsApp status callback
type whatsAppStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"` // sent, delivered, read, failed
	RecipientID string `json:"recipient_id"`
}

// WhatsAppStatus handles POST /webhook/whatsapp, the template delivery
// receipts. Receipts only feed the log; dunning state never advances on
// delivery confirmation, only on dispatch acceptance.
func (h *WebhookHandler) WhatsAppStatus(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	if !h.verifyWhatsAppSignature(c.GetHeader("X-Hub-Signature-256"), payload) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return
	}

	var body struct {
		Statuses []whatsAppStatus `json:"statuses"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	log := logger.FromGin(c)
	for _, st := range body.Statuses {
		if st.Status == "failed" {
			log.Warn("whatsapp delivery failed",
				zap.String("message_id", st.ID), zap.String("recipient", st.RecipientID))
			continue
		}
		log.Debug("whatsapp delivery receipt",
			zap.String("message_id", st.ID), zap.String("status", st.Status))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WebhookHandler) verifyVoiceSignature(sig, invoiceUID string) bool {
	if h.cfg.VoiceSecret == "" {
		return true
	}
	expected := channels.SignCallback(h.cfg.VoiceSecret, invoiceUID)
	return hmac.Equal([]byte(sig), []byte(expected))
}

func (h *WebhookHandler) verifyWhatsAppSignature(header string, payload []byte) bool {
	if h.cfg.WhatsAppSecret == "" {
		return true
	}
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(h.cfg.WhatsAppSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}
