package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/chat"
)

// ChatMessageModel is the persistence model for chat.Message
type ChatMessageModel struct {
	BaseModel
	RoomKey     string     `gorm:"not null;index:idx_chat_room_sent,priority:1"`
	SenderID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Body        string     `gorm:"not null"`
	SentAt      time.Time  `gorm:"not null;index:idx_chat_room_sent,priority:2"`
	DeliveredAt *time.Time `gorm:""`
	SeenAt      *time.Time `gorm:"index"`
}

// TableName returns the table name for ChatMessageModel
func (ChatMessageModel) TableName() string { return "chat_messages" }

// ToDomain converts the model to a domain Message
func (m *ChatMessageModel) ToDomain() *chat.Message {
	return &chat.Message{
		BaseEntity:  m.BaseModel.ToDomain(),
		RoomKey:     m.RoomKey,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		SentAt:      m.SentAt,
		DeliveredAt: m.DeliveredAt,
		SeenAt:      m.SeenAt,
	}
}

// ChatMessageModelFromDomain converts a domain Message to the model
func ChatMessageModelFromDomain(msg *chat.Message) *ChatMessageModel {
	m := &ChatMessageModel{
		RoomKey:     msg.RoomKey,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Body:        msg.Body,
		SentAt:      msg.SentAt,
		DeliveredAt: msg.DeliveredAt,
		SeenAt:      msg.SeenAt,
	}
	m.FromDomainBaseEntity(msg.BaseEntity)
	return m
}
