package collection

import (
	"context"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
)

// ServiceOrderRepository persists service orders
type ServiceOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceOrder, error)
	// FindOpenByCollector returns assigned/in-progress orders for a collector
	FindOpenByCollector(ctx context.Context, collectorID uuid.UUID) ([]ServiceOrder, error)
	// HasOpenCollectionForCustomer guards the one-urgent-order-per-customer rule
	HasOpenCollectionForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
	// FindOpenCollectionByCustomer returns the customer's open urgent orders,
	// used to cancel visits once the debt is settled
	FindOpenCollectionByCustomer(ctx context.Context, customerID uuid.UUID) ([]ServiceOrder, error)
	// CountOpenByCollector returns active-order counts for routing tie-breaks
	CountOpenByCollector(ctx context.Context, collectorIDs []uuid.UUID) (map[uuid.UUID]int, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ServiceOrder, error)
	Save(ctx context.Context, o *ServiceOrder) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
