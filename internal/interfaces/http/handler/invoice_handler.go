package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/highprosper/backend/internal/application/billing"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
	"github.com/highprosper/backend/internal/interfaces/http/middleware"
)

// InvoiceHandler exposes the invoice ledger
type InvoiceHandler struct {
	BaseHandler
	billing *appbilling.Service
}

// NewInvoiceHandler creates the invoice handler
func NewInvoiceHandler(billing *appbilling.Service) *InvoiceHandler {
	return &InvoiceHandler{billing: billing}
}

// UIDRequest is a request with an invoice uid path parameter
type UIDRequest struct {
	UID string `uri:"uid" binding:"required"`
}

// WriteOffRequest carries the reason an invoice is being closed unpaid
type WriteOffRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Get handles GET /api/v1/invoices/:uid
func (h *InvoiceHandler) Get(c *gin.Context) {
	var req UIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	inv, err := h.billing.InvoiceByUID(c.Request.Context(), req.UID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// WriteOff handles POST /api/v1/invoices/:uid/write-off
func (h *InvoiceHandler) WriteOff(c *gin.Context) {
	var uri UIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	var req WriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	inv, err := h.billing.WriteOff(c.Request.Context(), uri.UID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// MyInvoices handles GET /api/v1/me/invoices, the authenticated customer's
// own statements.
func (h *InvoiceHandler) MyInvoices(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	cust, err := h.billing.CustomerByPrincipal(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	invoices, err := h.billing.CustomerInvoices(c.Request.Context(), cust.ID, filterFrom(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}

// MyBalance handles GET /api/v1/me/balance
func (h *InvoiceHandler) MyBalance(c *gin.Context) {
	cust, err := h.billing.CustomerByPrincipal(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	outstanding, err := h.billing.OutstandingForCustomer(c.Request.Context(), cust.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"account_code": cust.AccountCode,
		"outstanding":  outstanding.StringFixed(0),
		"credit":       cust.CreditBalance.StringFixed(0),
	})
}

// CustomerInvoices handles GET /api/v1/customers/:id/invoices for staff
func (h *InvoiceHandler) CustomerInvoices(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	customerID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, shared.ErrInvalidInput)
		return
	}
	invoices, err := h.billing.CustomerInvoices(c.Request.Context(), customerID, filterFrom(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoices)
}
