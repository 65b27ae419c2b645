package collection

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderPriority ranks how urgently a visit is needed
type OrderPriority string

const (
	PriorityNormal   OrderPriority = "normal"
	PriorityHigh     OrderPriority = "high"
	PriorityCritical OrderPriority = "critical" // urgent collection, one per customer
)

// OrderStatus is the lifecycle of a service order
type OrderStatus string

const (
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsOpen reports whether the order still occupies its collector
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusAssigned || s == OrderStatusInProgress
}

// OrderKind distinguishes collection visits from routine service rounds
type OrderKind string

const (
	OrderKindCollection OrderKind = "collection"
	OrderKindService    OrderKind = "service"
)

// ServiceOrder is a job dispatched to a field collector. Urgent collection
// orders carry the outstanding balance of the invoice that triggered them.
type ServiceOrder struct {
	shared.BaseAggregateRoot
	Kind        OrderKind       `json:"kind"`
	Priority    OrderPriority   `json:"priority"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	InvoiceID   *uuid.UUID      `json:"invoice_id,omitempty"`
	CollectorID uuid.UUID       `json:"collector_id"`
	Amount      decimal.Decimal `json:"amount"` // outstanding balance to collect
	Status      OrderStatus     `json:"status"`
	Note        string          `json:"note,omitempty"`
	AssignedAt  time.Time       `json:"assigned_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewCollectionOrder creates a Critical-priority urgent collection visit
func NewCollectionOrder(customerID, invoiceID, collectorID uuid.UUID, outstanding decimal.Decimal) (*ServiceOrder, error) {
	if customerID == uuid.Nil || collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Customer and collector IDs are required")
	}
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Outstanding amount must be positive")
	}

	order := &ServiceOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              OrderKindCollection,
		Priority:          PriorityCritical,
		CustomerID:        customerID,
		InvoiceID:         &invoiceID,
		CollectorID:       collectorID,
		Amount:            outstanding,
		Status:            OrderStatusAssigned,
		AssignedAt:        time.Now(),
	}
	order.AddDomainEvent(NewOrderAssignedEvent(order))
	return order, nil
}

// NewServiceVisit creates a routine (non-collection) visit
func NewServiceVisit(customerID, collectorID uuid.UUID, note string) (*ServiceOrder, error) {
	if customerID == uuid.Nil || collectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Customer and collector IDs are required")
	}
	order := &ServiceOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              OrderKindService,
		Priority:          PriorityNormal,
		CustomerID:        customerID,
		CollectorID:       collectorID,
		Amount:            decimal.Zero,
		Status:            OrderStatusAssigned,
		Note:              note,
		AssignedAt:        time.Now(),
	}
	order.AddDomainEvent(NewOrderAssignedEvent(order))
	return order, nil
}

// Start moves the order to in-progress
func (o *ServiceOrder) Start() error {
	if o.Status != OrderStatusAssigned {
		return shared.NewDomainError("INVALID_STATE", "Only assigned orders can be started")
	}
	o.Status = OrderStatusInProgress
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// Complete closes the order
func (o *ServiceOrder) Complete() error {
	if !o.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Order is already closed")
	}
	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderCompletedEvent(o))
	return nil
}

// Cancel closes the order without completion (e.g. the invoice was paid)
func (o *ServiceOrder) Cancel(reason string) error {
	if !o.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Order is already closed")
	}
	o.Status = OrderStatusCancelled
	o.Note = reason
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}
