package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/collection"
	"github.com/shopspring/decimal"
)

// ServiceOrderModel is the persistence model for collection.ServiceOrder
type ServiceOrderModel struct {
	AggregateModel
	Kind        string          `gorm:"not null;index"`
	Priority    string          `gorm:"not null;index"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID   *uuid.UUID      `gorm:"type:uuid;index"`
	CollectorID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Status      string          `gorm:"not null;index"`
	Note        string          `gorm:""`
	AssignedAt  time.Time       `gorm:"not null"`
	CompletedAt *time.Time      `gorm:""`
}

// TableName returns the table name for ServiceOrderModel
func (ServiceOrderModel) TableName() string { return "service_orders" }

// ToDomain converts the model to a domain ServiceOrder
func (m *ServiceOrderModel) ToDomain() *collection.ServiceOrder {
	o := &collection.ServiceOrder{
		Kind:        collection.OrderKind(m.Kind),
		Priority:    collection.OrderPriority(m.Priority),
		CustomerID:  m.CustomerID,
		InvoiceID:   m.InvoiceID,
		CollectorID: m.CollectorID,
		Amount:      m.Amount,
		Status:      collection.OrderStatus(m.Status),
		Note:        m.Note,
		AssignedAt:  m.AssignedAt,
		CompletedAt: m.CompletedAt,
	}
	m.PopulateAggregateRoot(&o.BaseAggregateRoot)
	return o
}

// ServiceOrderModelFromDomain converts a domain ServiceOrder to the model
func ServiceOrderModelFromDomain(o *collection.ServiceOrder) *ServiceOrderModel {
	m := &ServiceOrderModel{
		Kind:        string(o.Kind),
		Priority:    string(o.Priority),
		CustomerID:  o.CustomerID,
		InvoiceID:   o.InvoiceID,
		CollectorID: o.CollectorID,
		Amount:      o.Amount,
		Status:      string(o.Status),
		Note:        o.Note,
		AssignedAt:  o.AssignedAt,
		CompletedAt: o.CompletedAt,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	return m
}
