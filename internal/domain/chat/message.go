package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
)

// RoomKey returns the canonical room name for a direct conversation. The two
// participant ids are ordered so both sides compute the same key.
func RoomKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("chat_%s_%s", lo, hi)
}

// Message is one chat message between two principals. Delivery and seen
// receipts are set exactly once; repeated receipts are idempotent no-ops.
type Message struct {
	shared.BaseEntity
	RoomKey     string     `json:"room_key"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	Body        string     `json:"body"`
	SentAt      time.Time  `json:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
}

// NewMessage creates a chat message in the conversation between sender and
// recipient.
func NewMessage(senderID, recipientID uuid.UUID, body string, sentAt time.Time) (*Message, error) {
	if senderID == uuid.Nil || recipientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Sender and recipient are required")
	}
	if senderID == recipientID {
		return nil, shared.NewDomainError("INVALID_PARTY", "Cannot message yourself")
	}
	if body == "" {
		return nil, shared.NewDomainError("EMPTY_MESSAGE", "Message body cannot be empty")
	}
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	return &Message{
		BaseEntity:  shared.NewBaseEntity(),
		RoomKey:     RoomKey(senderID, recipientID),
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		SentAt:      sentAt,
	}, nil
}

// MarkDelivered sets the delivery receipt once. Returns true when the receipt
// was newly set.
func (m *Message) MarkDelivered(at time.Time) bool {
	if m.DeliveredAt != nil {
		return false
	}
	m.DeliveredAt = &at
	m.UpdatedAt = at
	return true
}

// MarkSeen sets the seen receipt once, implying delivery. Returns true when
// the receipt was newly set.
func (m *Message) MarkSeen(at time.Time) bool {
	if m.SeenAt != nil {
		return false
	}
	if m.DeliveredAt == nil {
		m.DeliveredAt = &at
	}
	m.SeenAt = &at
	m.UpdatedAt = at
	return true
}

// IsUnread reports whether the recipient has not yet seen the message
func (m *Message) IsUnread() bool {
	return m.SeenAt == nil
}
