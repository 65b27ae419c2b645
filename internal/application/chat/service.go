// Package chat persists two-party conversations and keeps room members and
// sidebars in sync over the realtime layer.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/chat"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"go.uber.org/zap"
)

// commandBuffer bounds the applier queue; socket read loops block here when
// the applier falls behind, which is the intended backpressure.
const commandBuffer = 256

type commandKind string

const (
	cmdSend      commandKind = "chat.message"
	cmdDelivered commandKind = "delivered"
	cmdSeen      commandKind = "seen"
)

// command is one socket-originated mutation. The socket handler only
// enqueues; the applier worker persists and publishes, keeping read loops
// non-blocking on the database.
type command struct {
	kind        commandKind
	senderID    uuid.UUID
	recipientID uuid.UUID
	body        string
	messageID   uuid.UUID
}

// Service is the chat use-case layer plus its applier worker
type Service struct {
	messages chat.MessageRepository
	hub      *realtime.Hub
	commands chan command
	logger   *zap.Logger
}

// NewService creates the chat service
func NewService(messages chat.MessageRepository, hub *realtime.Hub, logger *zap.Logger) *Service {
	return &Service{
		messages: messages,
		hub:      hub,
		commands: make(chan command, commandBuffer),
		logger:   logger,
	}
}

// Run consumes commands until the context is cancelled. Start it once per
// process; commands for different rooms share the worker, which also gives
// per-room serialization for free.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			s.apply(ctx, cmd)
		}
	}
}

func (s *Service) apply(ctx context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case cmdSend:
		_, err = s.SendMessage(ctx, cmd.senderID, cmd.recipientID, cmd.body)
	case cmdDelivered:
		err = s.MarkDelivered(ctx, cmd.messageID)
	case cmdSeen:
		err = s.MarkRoomSeen(ctx, cmd.senderID, cmd.recipientID)
	}
	if err != nil {
		s.logger.Error("chat command failed",
			zap.String("kind", string(cmd.kind)), zap.Error(err))
	}
}

// EnqueueSend queues a chat.message command from a socket handler
func (s *Service) EnqueueSend(ctx context.Context, senderID, recipientID uuid.UUID, body string) error {
	return s.enqueue(ctx, command{kind: cmdSend, senderID: senderID, recipientID: recipientID, body: body})
}

// EnqueueDelivered queues a delivered receipt
func (s *Service) EnqueueDelivered(ctx context.Context, messageID uuid.UUID) error {
	return s.enqueue(ctx, command{kind: cmdDelivered, messageID: messageID})
}

// EnqueueSeen queues a seen receipt for the whole room as read by readerID
func (s *Service) EnqueueSeen(ctx context.Context, readerID, otherID uuid.UUID) error {
	return s.enqueue(ctx, command{kind: cmdSeen, senderID: readerID, recipientID: otherID})
}

func (s *Service) enqueue(ctx context.Context, cmd command) error {
	select {
	case s.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// messageEvent is the wire shape broadcast to room groups
type messageEvent struct {
	Type    string        `json:"type"`
	Message *chat.Message `json:"message,omitempty"`
	// receipt fields
	MessageID  string      `json:"message_id,omitempty"`
	MessageIDs []uuid.UUID `json:"message_ids,omitempty"`
	At         *time.Time  `json:"at,omitempty"`
}

// sidebarEvent is the wire shape pushed to sidebar_<id> groups
type sidebarEvent struct {
	Type        string           `json:"type"`
	RoomKey     string           `json:"room_key"`
	RoomUnread  int64            `json:"room_unread"`
	TotalUnread int64            `json:"total_unread"`
	ByRoom      map[string]int64 `json:"by_room,omitempty"`
}

// SendMessage persists a message, broadcasts it to the room, and bumps the
// recipient's sidebar unread count.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*chat.Message, error) {
	m, err := chat.NewMessage(senderID, recipientID, body, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.messages.Save(ctx, m); err != nil {
		return nil, err
	}

	s.broadcast(m.RoomKey, messageEvent{Type: "chat.message", Message: m})
	s.pushSidebar(ctx, recipientID, m.RoomKey)
	return m, nil
}

// MarkDelivered stamps the delivery receipt once and rebroadcasts it.
// Repeated receipts are idempotent no-ops.
func (s *Service) MarkDelivered(ctx context.Context, messageID uuid.UUID) error {
	m, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	now := time.Now()
	if !m.MarkDelivered(now) {
		return nil
	}
	if err := s.messages.Save(ctx, m); err != nil {
		return err
	}
	s.broadcast(m.RoomKey, messageEvent{Type: "chat.delivered", MessageID: m.ID.String(), At: &now})
	return nil
}

// MarkRoomSeen stamps every unread message addressed to readerID in the room
// with otherID, rebroadcasts the receipt, and recounts the reader's sidebar.
func (s *Service) MarkRoomSeen(ctx context.Context, readerID, otherID uuid.UUID) error {
	roomKey := chat.RoomKey(readerID, otherID)
	now := time.Now()
	marked, err := s.messages.MarkRoomSeen(ctx, roomKey, readerID, now)
	if err != nil {
		return err
	}
	if len(marked) == 0 {
		return nil
	}
	s.broadcast(roomKey, messageEvent{Type: "chat.seen", MessageIDs: marked, At: &now})
	s.pushSidebar(ctx, readerID, roomKey)
	return nil
}

// History returns a room's messages, oldest first
func (s *Service) History(ctx context.Context, a, b uuid.UUID, filter shared.Filter) ([]chat.Message, error) {
	return s.messages.FindByRoom(ctx, chat.RoomKey(a, b), filter)
}

// UnreadSummary returns a principal's total and per-room unread counts
func (s *Service) UnreadSummary(ctx context.Context, principalID uuid.UUID) (int64, map[string]int64, error) {
	total, err := s.messages.UnreadCount(ctx, principalID)
	if err != nil {
		return 0, nil, err
	}
	byRoom, err := s.messages.UnreadCountByRoom(ctx, principalID)
	if err != nil {
		return 0, nil, err
	}
	return total, byRoom, nil
}

// pushSidebar recounts and pushes unread state to sidebar_<principal>
func (s *Service) pushSidebar(ctx context.Context, principalID uuid.UUID, roomKey string) {
	total, byRoom, err := s.UnreadSummary(ctx, principalID)
	if err != nil {
		s.logger.Warn("sidebar recount failed", zap.Error(err))
		return
	}
	data, err := json.Marshal(sidebarEvent{
		Type:        "sidebar.update_unread",
		RoomKey:     roomKey,
		RoomUnread:  byRoom[roomKey],
		TotalUnread: total,
		ByRoom:      byRoom,
	})
	if err != nil {
		return
	}
	s.hub.Publish(realtime.SidebarGroup(principalID), data)
}

func (s *Service) broadcast(roomKey string, event messageEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode chat event", zap.Error(err))
		return
	}
	s.hub.Publish(roomKey, data)
}
