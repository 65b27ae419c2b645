package event

import (
	"context"
	"encoding/json"

	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"go.uber.org/zap"
)

// GroupPublisher is the slice of the realtime hub the stream bridges need
type GroupPublisher interface {
	Publish(group string, message []byte)
}

// activityFrame is the wire shape pushed to stream groups
type activityFrame struct {
	Type  string             `json:"type"`
	Event shared.DomainEvent `json:"event"`
}

// StreamHandler forwards domain events to the ops activity group so connected
// dashboards see ledger and escalation activity as it happens. Subscribed as
// a wildcard handler; delivery to absent dashboards is a cheap no-op.
type StreamHandler struct {
	hub    GroupPublisher
	logger *zap.Logger
}

// NewStreamHandler creates the ops stream bridge
func NewStreamHandler(hub GroupPublisher, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: logger}
}

// Handle encodes the event and pushes it to the ops activity group
func (h *StreamHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	data, err := json.Marshal(activityFrame{Type: e.EventType(), Event: e})
	if err != nil {
		h.logger.Error("failed to encode domain event for the ops stream",
			zap.String("event_type", e.EventType()), zap.Error(err))
		return err
	}
	h.hub.Publish(realtime.GroupOpsActivity, data)
	return nil
}

// EventTypes returns an empty list, subscribing the handler to every event
func (h *StreamHandler) EventTypes() []string { return nil }

// PaymentStreamHandler pushes settlement outcomes to the payment's own group
// so a client waiting on a MoMo reference sees the result without polling.
type PaymentStreamHandler struct {
	hub    GroupPublisher
	logger *zap.Logger
}

// NewPaymentStreamHandler creates the per-payment stream bridge
func NewPaymentStreamHandler(hub GroupPublisher, logger *zap.Logger) *PaymentStreamHandler {
	return &PaymentStreamHandler{hub: hub, logger: logger}
}

// Handle pushes a recorded payment to its reference group
func (h *PaymentStreamHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	recorded, ok := e.(*billing.PaymentRecordedEvent)
	if !ok {
		return nil
	}
	data, err := json.Marshal(activityFrame{Type: e.EventType(), Event: e})
	if err != nil {
		h.logger.Error("failed to encode payment event",
			zap.String("reference", recorded.Reference), zap.Error(err))
		return err
	}
	h.hub.Publish(realtime.PaymentGroup(recorded.Reference), data)
	return nil
}

// EventTypes limits the subscription to recorded payments
func (h *PaymentStreamHandler) EventTypes() []string {
	return []string{billing.EventTypePaymentRecorded}
}

var (
	_ shared.EventHandler = (*StreamHandler)(nil)
	_ shared.EventHandler = (*PaymentStreamHandler)(nil)
)
