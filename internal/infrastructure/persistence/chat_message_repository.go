package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/chat"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormChatMessageRepository implements chat.MessageRepository using GORM
type GormChatMessageRepository struct {
	db *gorm.DB
}

// NewGormChatMessageRepository creates a new GormChatMessageRepository
func NewGormChatMessageRepository(db *gorm.DB) *GormChatMessageRepository {
	return &GormChatMessageRepository{db: db}
}

// FindByID finds a message by ID
func (r *GormChatMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Message, error) {
	var model models.ChatMessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRoom returns the room's messages ordered by sent-at ascending
func (r *GormChatMessageRepository) FindByRoom(ctx context.Context, roomKey string, filter shared.Filter) ([]chat.Message, error) {
	var messageModels []models.ChatMessageModel
	query := r.db.WithContext(ctx).
		Where("room_key = ?", roomKey).
		Order("sent_at ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Find(&messageModels).Error; err != nil {
		return nil, err
	}

	messages := make([]chat.Message, len(messageModels))
	for i, model := range messageModels {
		messages[i] = *model.ToDomain()
	}
	return messages, nil
}

// LatestInRoom returns the newest message in a room, nil when empty
func (r *GormChatMessageRepository) LatestInRoom(ctx context.Context, roomKey string) (*chat.Message, error) {
	var model models.ChatMessageModel
	err := r.db.WithContext(ctx).
		Where("room_key = ?", roomKey).
		Order("sent_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// UnreadCount counts messages addressed to the principal with no seen receipt
func (r *GormChatMessageRepository) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChatMessageModel{}).
		Where("recipient_id = ? AND seen_at IS NULL", recipientID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UnreadCountByRoom breaks the unread count down per conversation
func (r *GormChatMessageRepository) UnreadCountByRoom(ctx context.Context, recipientID uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		RoomKey string
		Total   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ChatMessageModel{}).
		Select("room_key, COUNT(*) AS total").
		Where("recipient_id = ? AND seen_at IS NULL", recipientID).
		Group("room_key").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.RoomKey] = row.Total
	}
	return counts, nil
}

// MarkRoomSeen stamps every unread message in the room for the recipient.
// The seen-at filter makes replays idempotent: already-seen rows are never
// restamped.
func (r *GormChatMessageRepository) MarkRoomSeen(ctx context.Context, roomKey string, recipientID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread []models.ChatMessageModel
		if err := tx.
			Select("id").
			Where("room_key = ? AND recipient_id = ? AND seen_at IS NULL", roomKey, recipientID).
			Find(&unread).Error; err != nil {
			return err
		}
		if len(unread) == 0 {
			return nil
		}

		ids = make([]uuid.UUID, len(unread))
		for i, m := range unread {
			ids[i] = m.ID
		}

		return tx.Model(&models.ChatMessageModel{}).
			Where("id IN ? AND seen_at IS NULL", ids).
			Updates(map[string]any{"seen_at": at, "updated_at": at}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates a message
func (r *GormChatMessageRepository) Save(ctx context.Context, m *chat.Message) error {
	model := models.ChatMessageModelFromDomain(m)
	return r.db.WithContext(ctx).Save(model).Error
}

var _ chat.MessageRepository = (*GormChatMessageRepository)(nil)
