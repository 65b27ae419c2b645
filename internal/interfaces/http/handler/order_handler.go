package handler

import (
	"github.com/gin-gonic/gin"
	appcollection "github.com/highprosper/backend/internal/application/collection"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
	"github.com/highprosper/backend/internal/interfaces/http/middleware"
)

// OrderHandler exposes the collector's visit-order workflow
type OrderHandler struct {
	BaseHandler
	collection *appcollection.Service
}

// NewOrderHandler creates the order handler
func NewOrderHandler(collection *appcollection.Service) *OrderHandler {
	return &OrderHandler{collection: collection}
}

// Open handles GET /api/v1/orders/open, the collector's work queue
func (h *OrderHandler) Open(c *gin.Context) {
	orders, err := h.collection.OpenOrders(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// Start handles POST /api/v1/orders/:id/start
func (h *OrderHandler) Start(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	orderID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	order, err := h.collection.StartOrder(c.Request.Context(), orderID, middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Complete handles POST /api/v1/orders/:id/complete
func (h *OrderHandler) Complete(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	orderID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	order, err := h.collection.CompleteOrder(c.Request.Context(), orderID, middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
