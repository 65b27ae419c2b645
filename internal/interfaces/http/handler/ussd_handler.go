package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appussd "github.com/highprosper/backend/internal/application/ussd"
	"github.com/highprosper/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// USSDHandler bridges the aggregator's form POSTs to the session controller.
// The aggregator speaks plaintext: a CON prefix keeps the session open, END
// closes it.
type USSDHandler struct {
	controller *appussd.Controller
}

// NewUSSDHandler creates the USSD handler
func NewUSSDHandler(controller *appussd.Controller) *USSDHandler {
	return &USSDHandler{controller: controller}
}

// Handle handles POST /ussd
func (h *USSDHandler) Handle(c *gin.Context) {
	phoneNumber := c.PostForm("phoneNumber")
	text := c.PostForm("text")
	if phoneNumber == "" {
		c.String(http.StatusBadRequest, "Missing phoneNumber")
		return
	}

	reply, err := h.controller.Handle(c.Request.Context(), phoneNumber, text)
	if err != nil {
		logger.FromGin(c).Error("ussd session handling failed",
			zap.String("phone", phoneNumber), zap.Error(err))
		c.String(http.StatusOK, "END Service temporarily unavailable. Please try again later.")
		return
	}
	c.String(http.StatusOK, reply)
}
