// Package notify maintains principal notification feeds and pushes new items
// over the realtime layer.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/notification"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"go.uber.org/zap"
)

// Service is the producer-agnostic notification publish API. Every producer
// (billing, collection, HR hooks, system) goes through Publish; the kind
// discriminator tells the client how to render the item.
type Service struct {
	repo   notification.Repository
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewService creates the notification service
func NewService(repo notification.Repository, hub *realtime.Hub, logger *zap.Logger) *Service {
	return &Service{repo: repo, hub: hub, logger: logger}
}

// feedEvent is the wire shape pushed to notify_user_<id> groups
type feedEvent struct {
	Type         string                     `json:"type"`
	Notification *notification.Notification `json:"notification,omitempty"`
	UnreadCount  int64                      `json:"unread_count"`
}

// Publish persists a notification and pushes it to the recipient's feed
// group. A hub delivery failure is not an error; the item is in the feed and
// the client catches up on next fetch.
func (s *Service) Publish(ctx context.Context, recipientID uuid.UUID, kind notification.Kind, title, body string, payload notification.Payload) (*notification.Notification, error) {
	n, err := notification.New(recipientID, kind, title, body, payload)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return nil, err
	}

	unread, err := s.repo.UnreadCount(ctx, recipientID)
	if err != nil {
		s.logger.Warn("unread count unavailable after publish", zap.Error(err))
	}
	s.push(recipientID, feedEvent{Type: "notification.new", Notification: n, UnreadCount: unread})
	return n, nil
}

// Feed returns the recipient's notification feed, newest first
func (s *Service) Feed(ctx context.Context, recipientID uuid.UUID, filter shared.Filter) ([]notification.Notification, error) {
	return s.repo.FindByRecipient(ctx, recipientID, filter)
}

// UnreadCount returns the number of unread feed items
func (s *Service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// MarkAllRead stamps every unread item and pushes the zeroed count
func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	changed, err := s.repo.MarkAllRead(ctx, recipientID, time.Now())
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.push(recipientID, feedEvent{Type: "notification.read_all", UnreadCount: 0})
	}
	return changed, nil
}

func (s *Service) push(recipientID uuid.UUID, event feedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode feed event", zap.Error(err))
		return
	}
	s.hub.Publish(realtime.NotifyGroup(recipientID), data)
}
