package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPrincipalRepository implements PrincipalRepository using GORM
type GormPrincipalRepository struct {
	db *gorm.DB
}

// NewGormPrincipalRepository creates a new GormPrincipalRepository
func NewGormPrincipalRepository(db *gorm.DB) *GormPrincipalRepository {
	return &GormPrincipalRepository{db: db}
}

// FindByID finds a principal by ID
func (r *GormPrincipalRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Principal, error) {
	var model models.PrincipalModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPhone finds a principal by E.164 phone number
func (r *GormPrincipalRepository) FindByPhone(ctx context.Context, phone string) (*identity.Principal, error) {
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone cannot be empty")
	}
	var model models.PrincipalModel
	if err := r.db.WithContext(ctx).First(&model, "phone = ?", phone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a principal by email
func (r *GormPrincipalRepository) FindByEmail(ctx context.Context, email string) (*identity.Principal, error) {
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	var model models.PrincipalModel
	if err := r.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAvailableCollectors returns active collectors whose status is available
func (r *GormPrincipalRepository) FindAvailableCollectors(ctx context.Context) ([]identity.Principal, error) {
	var principalModels []models.PrincipalModel
	if err := r.db.WithContext(ctx).
		Where("role = ? AND active = ? AND collector_status = ?",
			string(identity.RoleCollector), true, string(identity.CollectorStatusAvailable)).
		Find(&principalModels).Error; err != nil {
		return nil, err
	}

	principals := make([]identity.Principal, len(principalModels))
	for i, model := range principalModels {
		principals[i] = *model.ToDomain()
	}
	return principals, nil
}

// FindAll finds all principals matching the filter
func (r *GormPrincipalRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Principal, error) {
	var principalModels []models.PrincipalModel
	query := applyFilter(r.db.WithContext(ctx).Model(&models.PrincipalModel{}), filter)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ?", pattern, pattern)
	}

	if err := query.Find(&principalModels).Error; err != nil {
		return nil, err
	}

	principals := make([]identity.Principal, len(principalModels))
	for i, model := range principalModels {
		principals[i] = *model.ToDomain()
	}
	return principals, nil
}

// Save creates or updates a principal
func (r *GormPrincipalRepository) Save(ctx context.Context, p *identity.Principal) error {
	model := models.PrincipalModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// Count counts principals matching the filter
func (r *GormPrincipalRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PrincipalModel{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR phone LIKE ?", pattern, pattern)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ identity.PrincipalRepository = (*GormPrincipalRepository)(nil)
