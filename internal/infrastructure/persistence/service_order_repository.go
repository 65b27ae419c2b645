package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/collection"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var openOrderStatuses = []string{
	string(collection.OrderStatusAssigned),
	string(collection.OrderStatusInProgress),
}

// GormServiceOrderRepository implements ServiceOrderRepository using GORM
type GormServiceOrderRepository struct {
	db *gorm.DB
}

// NewGormServiceOrderRepository creates a new GormServiceOrderRepository
func NewGormServiceOrderRepository(db *gorm.DB) *GormServiceOrderRepository {
	return &GormServiceOrderRepository{db: db}
}

// FindByID finds a service order by ID
func (r *GormServiceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*collection.ServiceOrder, error) {
	var model models.ServiceOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByCollector returns assigned/in-progress orders for a collector
func (r *GormServiceOrderRepository) FindOpenByCollector(ctx context.Context, collectorID uuid.UUID) ([]collection.ServiceOrder, error) {
	var orderModels []models.ServiceOrderModel
	if err := r.db.WithContext(ctx).
		Where("collector_id = ? AND status IN ?", collectorID, openOrderStatuses).
		Order("assigned_at ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(orderModels), nil
}

// HasOpenCollectionForCustomer guards the one-urgent-order-per-customer rule
func (r *GormServiceOrderRepository) HasOpenCollectionForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ServiceOrderModel{}).
		Where("customer_id = ? AND kind = ? AND status IN ?",
			customerID, string(collection.OrderKindCollection), openOrderStatuses).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindOpenCollectionByCustomer returns the customer's open urgent orders
func (r *GormServiceOrderRepository) FindOpenCollectionByCustomer(ctx context.Context, customerID uuid.UUID) ([]collection.ServiceOrder, error) {
	var orderModels []models.ServiceOrderModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND kind = ? AND status IN ?",
			customerID, string(collection.OrderKindCollection), openOrderStatuses).
		Order("assigned_at ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(orderModels), nil
}

// CountOpenByCollector returns active-order counts for routing tie-breaks
func (r *GormServiceOrderRepository) CountOpenByCollector(ctx context.Context, collectorIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(collectorIDs))
	if len(collectorIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CollectorID uuid.UUID
		Total       int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ServiceOrderModel{}).
		Select("collector_id, COUNT(*) AS total").
		Where("collector_id IN ? AND status IN ?", collectorIDs, openOrderStatuses).
		Group("collector_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.CollectorID] = row.Total
	}
	return counts, nil
}

// FindAll finds all service orders matching the filter
func (r *GormServiceOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]collection.ServiceOrder, error) {
	var orderModels []models.ServiceOrderModel
	query := applyFilter(r.db.WithContext(ctx).Model(&models.ServiceOrderModel{}), filter)
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}
	return toDomainOrders(orderModels), nil
}

// Save creates or updates a service order
func (r *GormServiceOrderRepository) Save(ctx context.Context, o *collection.ServiceOrder) error {
	model := models.ServiceOrderModelFromDomain(o)
	return r.db.WithContext(ctx).Save(model).Error
}

// Count counts service orders matching the filter
func (r *GormServiceOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ServiceOrderModel{})
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainOrders(orderModels []models.ServiceOrderModel) []collection.ServiceOrder {
	orders := make([]collection.ServiceOrder, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders
}

var _ collection.ServiceOrderRepository = (*GormServiceOrderRepository)(nil)
