package handler

import (
	"github.com/gin-gonic/gin"
	appchat "github.com/highprosper/backend/internal/application/chat"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
	"github.com/highprosper/backend/internal/interfaces/http/middleware"
)

// ChatHandler exposes chat history over REST. Live traffic rides the
// websocket endpoints; these routes let a client backfill after reconnect.
type ChatHandler struct {
	BaseHandler
	chat *appchat.Service
}

// NewChatHandler creates the chat handler
func NewChatHandler(chat *appchat.Service) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// History handles GET /api/v1/chat/:id/messages, the conversation with one
// other principal.
func (h *ChatHandler) History(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, err)
		return
	}
	otherID, err := parseUUID(uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	messages, err := h.chat.History(c.Request.Context(), middleware.GetPrincipalID(c), otherID, filterFrom(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, messages)
}

// UnreadSummary handles GET /api/v1/chat/unread
func (h *ChatHandler) UnreadSummary(c *gin.Context) {
	total, byRoom, err := h.chat.UnreadSummary(c.Request.Context(), middleware.GetPrincipalID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"total_unread": total, "by_room": byRoom})
}
