package identity

import (
	"github.com/highprosper/backend/internal/domain/shared"
)

// Event types for the identity context
const (
	EventTypePrincipalCreated     = "identity.principal.created"
	EventTypePrincipalDeactivated = "identity.principal.deactivated"
)

// PrincipalCreatedEvent is raised when a principal is onboarded
type PrincipalCreatedEvent struct {
	shared.BaseDomainEvent
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
}

// NewPrincipalCreatedEvent creates a new PrincipalCreatedEvent
func NewPrincipalCreatedEvent(p *Principal) *PrincipalCreatedEvent {
	return &PrincipalCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrincipalCreated, "Principal", p.ID),
		Phone:           p.Phone,
		Role:            p.Role,
	}
}

// PrincipalDeactivatedEvent is raised when a principal is soft-deactivated
type PrincipalDeactivatedEvent struct {
	shared.BaseDomainEvent
	Phone string `json:"phone"`
}

// NewPrincipalDeactivatedEvent creates a new PrincipalDeactivatedEvent
func NewPrincipalDeactivatedEvent(p *Principal) *PrincipalDeactivatedEvent {
	return &PrincipalDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrincipalDeactivated, "Principal", p.ID),
		Phone:           p.Phone,
	}
}
