package collection

import (
	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the collection context
const (
	EventTypeOrderAssigned  = "collection.order.assigned"
	EventTypeOrderCompleted = "collection.order.completed"
)

// OrderAssignedEvent is raised when a service order is routed to a collector
type OrderAssignedEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID       `json:"customer_id"`
	CollectorID uuid.UUID       `json:"collector_id"`
	Priority    OrderPriority   `json:"priority"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewOrderAssignedEvent creates a new OrderAssignedEvent
func NewOrderAssignedEvent(o *ServiceOrder) *OrderAssignedEvent {
	return &OrderAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderAssigned, "ServiceOrder", o.ID),
		CustomerID:      o.CustomerID,
		CollectorID:     o.CollectorID,
		Priority:        o.Priority,
		Amount:          o.Amount,
	}
}

// OrderCompletedEvent is raised when a collector closes out an order
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID `json:"customer_id"`
	CollectorID uuid.UUID `json:"collector_id"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *ServiceOrder) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCompleted, "ServiceOrder", o.ID),
		CustomerID:      o.CustomerID,
		CollectorID:     o.CollectorID,
	}
}
