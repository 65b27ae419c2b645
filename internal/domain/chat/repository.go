package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
)

// MessageRepository persists chat messages
type MessageRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// FindByRoom returns the room's messages ordered by sent-at ascending
	FindByRoom(ctx context.Context, roomKey string, filter shared.Filter) ([]Message, error)
	// LatestInRoom returns the newest message in a room, nil when empty
	LatestInRoom(ctx context.Context, roomKey string) (*Message, error)
	// UnreadCount counts messages addressed to the principal with no seen receipt
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
	// UnreadCountByRoom breaks the unread count down per conversation
	UnreadCountByRoom(ctx context.Context, recipientID uuid.UUID) (map[string]int64, error)
	// MarkRoomSeen stamps every unread message in the room for the recipient,
	// returning the ids that were newly marked
	MarkRoomSeen(ctx context.Context, roomKey string, recipientID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	Save(ctx context.Context, m *Message) error
}
