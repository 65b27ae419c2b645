package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPayoutRepository implements dispatch.PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID finds a payout by ID
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispatch.Payout, error) {
	var model models.PayoutModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds a payout by its COMM key
func (r *GormPayoutRepository) FindByIdempotencyKey(ctx context.Context, key string) (*dispatch.Payout, error) {
	var model models.PayoutModel
	if err := r.db.WithContext(ctx).First(&model, "idempotency_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProviderRef finds a payout by the provider's transaction reference
func (r *GormPayoutRepository) FindByProviderRef(ctx context.Context, ref string) (*dispatch.Payout, error) {
	var model models.PayoutModel
	if err := r.db.WithContext(ctx).First(&model, "provider_ref = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindStaleInitiated returns Initiated payouts older than the given cutoff
func (r *GormPayoutRepository) FindStaleInitiated(ctx context.Context, olderThan time.Time) ([]dispatch.Payout, error) {
	var payoutModels []models.PayoutModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND initiated_at < ?", string(dispatch.PayoutStatusInitiated), olderThan).
		Order("initiated_at ASC").
		Find(&payoutModels).Error; err != nil {
		return nil, err
	}

	payouts := make([]dispatch.Payout, len(payoutModels))
	for i, model := range payoutModels {
		payouts[i] = *model.ToDomain()
	}
	return payouts, nil
}

// FindByCollector returns a collector's payouts
func (r *GormPayoutRepository) FindByCollector(ctx context.Context, collectorID uuid.UUID, filter shared.Filter) ([]dispatch.Payout, error) {
	var payoutModels []models.PayoutModel
	query := applyFilter(
		r.db.WithContext(ctx).Model(&models.PayoutModel{}).Where("collector_id = ?", collectorID),
		filter,
	)
	if err := query.Find(&payoutModels).Error; err != nil {
		return nil, err
	}

	payouts := make([]dispatch.Payout, len(payoutModels))
	for i, model := range payoutModels {
		payouts[i] = *model.ToDomain()
	}
	return payouts, nil
}

// Save creates or updates a payout
func (r *GormPayoutRepository) Save(ctx context.Context, p *dispatch.Payout) error {
	model := models.PayoutModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

var _ dispatch.PayoutRepository = (*GormPayoutRepository)(nil)
