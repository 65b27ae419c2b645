package handler

import (
	"github.com/gin-gonic/gin"
	appnotify "github.com/highprosper/backend/internal/application/notify"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
	"github.com/highprosper/backend/internal/interfaces/http/middleware"
)

// NotificationHandler exposes the principal's notification feed
type NotificationHandler struct {
	BaseHandler
	notify *appnotify.Service
}

// NewNotificationHandler creates the notification handler
func NewNotificationHandler(notify *appnotify.Service) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

// Feed handles GET /api/v1/notifications
func (h *NotificationHandler) Feed(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	items, err := h.notify.Feed(c.Request.Context(), middleware.GetPrincipalID(c), filterFrom(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notify.UnreadCount(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"unread_count": count})
}

// MarkAllRead handles POST /api/v1/notifications/mark-all-read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	changed, err := h.notify.MarkAllRead(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"marked_read": changed})
}
