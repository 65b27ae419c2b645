package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
)

// PrincipalRepository persists principals
type PrincipalRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	FindByPhone(ctx context.Context, phone string) (*Principal, error)
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	// FindAvailableCollectors returns active collectors whose status is available
	FindAvailableCollectors(ctx context.Context) ([]Principal, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Principal, error)
	Save(ctx context.Context, p *Principal) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
