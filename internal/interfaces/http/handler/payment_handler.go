package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	appbilling "github.com/highprosper/backend/internal/application/billing"
	apppayout "github.com/highprosper/backend/internal/application/payout"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
	"github.com/highprosper/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// PaymentHandler exposes payment recording and collector payouts
type PaymentHandler struct {
	BaseHandler
	billing *appbilling.Service
	payouts *apppayout.Service
}

// NewPaymentHandler creates the payment handler
func NewPaymentHandler(billing *appbilling.Service, payouts *apppayout.Service) *PaymentHandler {
	return &PaymentHandler{billing: billing, payouts: payouts}
}

// CashReceiptRequest records money a collector took in the field. The
// reference is minted on the collector's device so a retried submission is
// deduplicated server side.
type CashReceiptRequest struct {
	Reference  string `json:"reference" binding:"required"`
	InvoiceUID string `json:"invoice_uid" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

// RecordCash handles POST /api/v1/payments/cash
func (h *PaymentHandler) RecordCash(c *gin.Context) {
	var req CashReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, err)
		return
	}
	collectorID := middleware.GetPrincipalID(c)
	p, err := h.billing.ApplyPayment(c.Request.Context(), appbilling.ApplyPaymentCommand{
		Reference:   req.Reference,
		InvoiceUID:  req.InvoiceUID,
		Amount:      amount,
		Method:      billing.PaymentMethodCash,
		CollectorID: &collectorID,
		ReceivedAt:  time.Now(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// InitiateRequest mints a pending payment intent for the authenticated
// customer
type InitiateRequest struct {
	Reference string `json:"reference" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required,oneof=momo irembo card hpc"`
}

// Initiate handles POST /api/v1/payments/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, err)
		return
	}
	cust, err := h.billing.CustomerByPrincipal(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.billing.InitiatePayment(c.Request.Context(), cust.ID, req.Reference, amount, billing.PaymentMethod(req.Method))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// ConfirmRequest settles a previously initiated intent. The external id is
// the provider transaction id from the payer's handset, kept for
// reconciliation.
type ConfirmRequest struct {
	Reference  string `json:"reference" binding:"required"`
	ExternalID string `json:"external_id"`
}

// Confirm handles POST /api/v1/payments/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	cust, err := h.billing.CustomerByPrincipal(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.billing.ConfirmPayment(c.Request.Context(), cust.ID, req.Reference, req.ExternalID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// MyPayouts handles GET /api/v1/me/payouts, the collector's commission
// history.
func (h *PaymentHandler) MyPayouts(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	payouts, err := h.payouts.ForCollector(c.Request.Context(), middleware.GetPrincipalID(c), filterFrom(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payouts)
}
