package notification

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
)

// Kind discriminates what produced the notification. New producers add a kind
// here without schema changes.
type Kind string

const (
	KindSystem          Kind = "system"
	KindInvoiceReminder Kind = "invoice_reminder"
	KindPaymentReceived Kind = "payment_received"
	KindFieldVisit      Kind = "field_visit"
	KindHREvent         Kind = "hr_event"
	KindCustomerEvent   Kind = "customer_event"
)

// Payload carries kind-specific structured data, stored as JSONB
type Payload map[string]any

// Value implements driver.Valuer for JSONB storage
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = Payload{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Payload: unsupported type")
	}
	if len(bytes) == 0 {
		*p = Payload{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// Notification is one item in a principal's notification feed. A single
// entity serves all producers; Kind tells the client how to render it.
type Notification struct {
	shared.BaseEntity
	RecipientID uuid.UUID  `json:"recipient_id"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Payload     Payload    `json:"payload,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// New creates a notification for a principal's feed
func New(recipientID uuid.UUID, kind Kind, title, body string, payload Payload) (*Notification, error) {
	if recipientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Recipient is required")
	}
	if kind == "" {
		return nil, shared.NewDomainError("INVALID_KIND", "Notification kind is required")
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Notification title is required")
	}

	return &Notification{
		BaseEntity:  shared.NewBaseEntity(),
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Body:        body,
		Payload:     payload,
	}, nil
}

// MarkRead stamps the read receipt once
func (n *Notification) MarkRead(at time.Time) bool {
	if n.ReadAt != nil {
		return false
	}
	n.ReadAt = &at
	n.UpdatedAt = at
	return true
}

// IsUnread reports whether the recipient has not opened the notification
func (n *Notification) IsUnread() bool {
	return n.ReadAt == nil
}
