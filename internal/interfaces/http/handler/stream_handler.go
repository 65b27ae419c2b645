package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
)

// StreamHandler accepts domain stream pings and fans them out to realtime
// topic groups. The platform does no processing on these; collector apps,
// warehouse and fleet systems produce them and dashboards consume them live.
type StreamHandler struct {
	BaseHandler
	hub *realtime.Hub
}

// NewStreamHandler creates the stream handler
func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// fixed topics plus the per-entity collector_ and fleet_ families. The ops
// activity and payment groups are bus-fed and not open to producers.
var streamTopics = map[string]struct{}{
	realtime.GroupCollectorUpdates: {},
	realtime.GroupStockUpdates:     {},
	realtime.GroupWarehouseUpdates: {},
	realtime.GroupTransferUpdates:  {},
}

func validTopic(topic string) bool {
	if _, ok := streamTopics[topic]; ok {
		return true
	}
	return strings.HasPrefix(topic, "collector_") || strings.HasPrefix(topic, "fleet_")
}

// Publish handles POST /api/v1/streams/:topic. The body must be a JSON
// object; it is forwarded verbatim to the topic group.
func (h *StreamHandler) Publish(c *gin.Context) {
	topic := c.Param("topic")
	if !validTopic(topic) {
		h.HandleError(c, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Unknown stream topic %q", topic)))
		return
	}
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(payload) {
		h.HandleError(c, shared.NewDomainError("INVALID_INPUT", "Stream payload must be valid JSON"))
		return
	}
	h.hub.Publish(topic, payload)
	h.Success(c, gin.H{"topic": topic, "listeners": h.hub.GroupSize(topic)})
}
