package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
)

// Repository persists notifications
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// FindByRecipient returns the feed newest first
	FindByRecipient(ctx context.Context, recipientID uuid.UUID, filter shared.Filter) ([]Notification, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
	// MarkAllRead stamps every unread item, returning how many changed
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	Save(ctx context.Context, n *Notification) error
}
