package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Group naming conventions used across the platform. Formatting helpers live
// next to the hub so producers and endpoints agree on names.
const (
	// GroupOpsActivity carries the live domain-event feed for operator
	// dashboards. Produced by the event bus bridge, never by clients.
	GroupOpsActivity = "ops_activity"
	// GroupCollectorUpdates carries location pings from collector apps to
	// dispatch dashboards.
	GroupCollectorUpdates = "collector_updates"
	// Pass-through domain streams. External systems produce them over the
	// streams endpoint; the platform only fans them out.
	GroupStockUpdates     = "stock_updates"
	GroupWarehouseUpdates = "warehouse_updates"
	GroupTransferUpdates  = "transfer_updates"
)

// Hub fans messages out to named groups of websocket connections. Membership
// changes and publishes are O(1) per member; publishes hold the hub lock
// exclusively, so every member of a group observes the same publish order.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Join adds a client to a group, creating the group on first use
func (h *Hub) Join(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
}

// Leave removes a client from a group, dropping the group when it empties
func (h *Hub) Leave(group string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Remove detaches a client from every group it joined
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for group, members := range h.groups {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Publish enqueues a message to every member of a group. Concurrent
// publishers are serialized by the write lock; all members observe one
// publish order. A member whose outbound buffer is full is dropped rather
// than allowed to stall the group: slow clients lose their connection, not
// everyone else's ordering.
func (h *Hub) Publish(group string, message []byte) {
	h.mu.Lock()
	members := h.groups[group]
	var slow []*Client
	for c := range members {
		if !c.enqueue(message) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client",
			zap.String("group", group),
			zap.String("client", c.ID()))
		c.Close()
		h.Remove(c)
	}
}

// GroupSize reports current membership, used by tests and the stats endpoint
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
