package channels

import (
	"context"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"go.uber.org/zap"
)

// FieldNotifier delivers a field-visit instruction to the assigned collector.
// The collection application wires it to the notification feed and the
// realtime hub; this adapter only gives field dispatch the same Outcome shape
// as the wire channels.
type FieldNotifier func(ctx context.Context, target dispatch.Target, payload dispatch.Payload) error

// FieldVisitDispatcher adapts collector routing into the channel dispatcher
// contract used by the escalation sweep.
type FieldVisitDispatcher struct {
	notify FieldNotifier
	logger *zap.Logger
}

// NewFieldVisitDispatcher creates the field-visit channel adapter
func NewFieldVisitDispatcher(notify FieldNotifier, logger *zap.Logger) *FieldVisitDispatcher {
	return &FieldVisitDispatcher{notify: notify, logger: logger}
}

// Channel returns the channel identifier
func (d *FieldVisitDispatcher) Channel() dispatch.Channel { return dispatch.ChannelField }

// Attempt hands the visit instruction to the notifier. There is no external
// provider here, so success is always delivered, never deferred.
func (d *FieldVisitDispatcher) Attempt(ctx context.Context, target dispatch.Target, payload dispatch.Payload) dispatch.Outcome {
	if err := d.notify(ctx, target, payload); err != nil {
		return dispatch.Outcome{Result: dispatch.ResultFailed, Provider: "field", Reason: err.Error()}
	}
	return dispatch.Outcome{Result: dispatch.ResultDelivered, Provider: "field"}
}

var _ dispatch.Dispatcher = (*FieldVisitDispatcher)(nil)
