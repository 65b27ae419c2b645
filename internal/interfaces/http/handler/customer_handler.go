package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/highprosper/backend/internal/application/billing"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
)

// CustomerHandler exposes the customer register to staff
type CustomerHandler struct {
	BaseHandler
	billing *appbilling.Service
}

// NewCustomerHandler creates the customer handler
func NewCustomerHandler(billing *appbilling.Service) *CustomerHandler {
	return &CustomerHandler{billing: billing}
}

// List handles GET /api/v1/customers
func (h *CustomerHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	filter := filterFrom(req)
	customers, total, err := h.billing.Customers(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, customers, total, filter.Page, filter.PageSize)
}

// Get handles GET /api/v1/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	customerID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	cust, err := h.billing.CustomerByID(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cust)
}

// Villages handles GET /api/v1/villages
func (h *CustomerHandler) Villages(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	villages, err := h.billing.Villages(c.Request.Context(), filterFrom(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, villages)
}

// VillageCustomers handles GET /api/v1/villages/:id/customers, the roster a
// collector works through on a routine round
func (h *CustomerHandler) VillageCustomers(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	villageID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	roster, err := h.billing.VillageCustomers(c.Request.Context(), villageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, roster)
}

// Outstanding handles GET /api/v1/customers/:id/outstanding
func (h *CustomerHandler) Outstanding(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	customerID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	outstanding, err := h.billing.OutstandingForCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"customer_id": customerID, "outstanding": outstanding.StringFixed(0)})
}
