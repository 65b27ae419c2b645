package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/notification"
)

// NotificationModel is the persistence model for notification.Notification
type NotificationModel struct {
	BaseModel
	RecipientID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Kind        string               `gorm:"not null;index"`
	Title       string               `gorm:"not null"`
	Body        string               `gorm:""`
	Payload     notification.Payload `gorm:"type:jsonb"`
	ReadAt      *time.Time           `gorm:"index"`
}

// TableName returns the table name for NotificationModel
func (NotificationModel) TableName() string { return "notifications" }

// ToDomain converts the model to a domain Notification
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		BaseEntity:  m.BaseModel.ToDomain(),
		RecipientID: m.RecipientID,
		Kind:        notification.Kind(m.Kind),
		Title:       m.Title,
		Body:        m.Body,
		Payload:     m.Payload,
		ReadAt:      m.ReadAt,
	}
}

// NotificationModelFromDomain converts a domain Notification to the model
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	m := &NotificationModel{
		RecipientID: n.RecipientID,
		Kind:        string(n.Kind),
		Title:       n.Title,
		Body:        n.Body,
		Payload:     n.Payload,
		ReadAt:      n.ReadAt,
	}
	m.FromDomainBaseEntity(n.BaseEntity)
	return m
}
