package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVillageRepository implements billing.VillageRepository using GORM
type GormVillageRepository struct {
	db *gorm.DB
}

// NewGormVillageRepository creates a new GormVillageRepository
func NewGormVillageRepository(db *gorm.DB) *GormVillageRepository {
	return &GormVillageRepository{db: db}
}

// FindByID finds a village by ID
func (r *GormVillageRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Village, error) {
	var model models.VillageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all villages matching the filter
func (r *GormVillageRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Village, error) {
	var villageModels []models.VillageModel
	query := applyFilter(r.db.WithContext(ctx).Model(&models.VillageModel{}), filter)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR cell LIKE ? OR sector LIKE ?", pattern, pattern, pattern)
	}

	if err := query.Find(&villageModels).Error; err != nil {
		return nil, err
	}

	villages := make([]billing.Village, len(villageModels))
	for i, model := range villageModels {
		villages[i] = *model.ToDomain()
	}
	return villages, nil
}

// Save creates or updates a village
func (r *GormVillageRepository) Save(ctx context.Context, v *billing.Village) error {
	model := models.VillageModelFromDomain(v)
	return r.db.WithContext(ctx).Save(model).Error
}

var _ billing.VillageRepository = (*GormVillageRepository)(nil)
