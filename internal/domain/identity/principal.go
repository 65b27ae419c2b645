package identity

import (
	"fmt"
	"time"

	"github.com/highprosper/backend/internal/domain/shared"
)

// Role represents the function a principal performs on the platform
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleCollector Role = "collector"
	RoleCustomer  Role = "customer"
	RoleCEO       Role = "ceo"
)

// IsValid checks if the role is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCollector, RoleCustomer, RoleCEO:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// CollectorStatus represents a field collector's availability
type CollectorStatus string

const (
	CollectorStatusAvailable CollectorStatus = "available"
	CollectorStatusBusy      CollectorStatus = "busy"
	CollectorStatusOffDuty   CollectorStatus = "off_duty"
)

// IsValid checks if the collector status is valid
func (s CollectorStatus) IsValid() bool {
	switch s {
	case CollectorStatusAvailable, CollectorStatusBusy, CollectorStatusOffDuty:
		return true
	}
	return false
}

// Principal is an identity on the platform: an operator, a field collector,
// or a customer. Principals are deactivated, never deleted.
type Principal struct {
	shared.BaseAggregateRoot
	Name              string          `json:"name"`
	Phone             string          `json:"phone"` // E.164
	Email             string          `json:"email"`
	Role              Role            `json:"role"`
	Locale            string          `json:"locale"`
	PasswordHash      string          `json:"-"`
	Active            bool            `json:"active"`
	CollectorStatus   CollectorStatus `json:"collector_status,omitempty"`
	LastLongitude     *float64        `json:"last_longitude,omitempty"`
	LastLatitude      *float64        `json:"last_latitude,omitempty"`
	LocationUpdatedAt *time.Time      `json:"location_updated_at,omitempty"`
}

// NewPrincipal creates a new principal. The locale is derived from the phone
// prefix unless explicitly provided later.
func NewPrincipal(name, phone, email string, role Role) (*Principal, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	normalized, err := NormalizeMSISDN(phone)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PHONE", fmt.Sprintf("Phone is not a valid MSISDN: %v", err))
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role is not valid")
	}

	p := &Principal{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Phone:             normalized,
		Email:             email,
		Role:              role,
		Locale:            LocaleForPhone(normalized),
		Active:            true,
	}
	if role == RoleCollector {
		p.CollectorStatus = CollectorStatusOffDuty
	}

	p.AddDomainEvent(NewPrincipalCreatedEvent(p))
	return p, nil
}

// Deactivate soft-deactivates the principal
func (p *Principal) Deactivate() {
	if !p.Active {
		return
	}
	p.Active = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewPrincipalDeactivatedEvent(p))
}

// ChangeRole changes the principal's role. Roles are immutable after creation
// unless an admin performs the change.
func (p *Principal) ChangeRole(newRole Role, byAdmin bool) error {
	if !byAdmin {
		return shared.ErrForbidden
	}
	if !newRole.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Role is not valid")
	}
	p.Role = newRole
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetCollectorStatus updates a collector's availability
func (p *Principal) SetCollectorStatus(status CollectorStatus) error {
	if p.Role != RoleCollector {
		return shared.NewDomainError("NOT_A_COLLECTOR", "Only collectors have an availability status")
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Collector status is not valid")
	}
	p.CollectorStatus = status
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// UpdateLocation records the principal's last known coordinates
func (p *Principal) UpdateLocation(lon, lat float64) {
	now := time.Now()
	p.LastLongitude = &lon
	p.LastLatitude = &lat
	p.LocationUpdatedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
}

// HasFreshLocation reports whether the stored location is recent enough to be
// used for routing decisions.
func (p *Principal) HasFreshLocation(staleness time.Duration, now time.Time) bool {
	if p.LastLongitude == nil || p.LastLatitude == nil || p.LocationUpdatedAt == nil {
		return false
	}
	return now.Sub(*p.LocationUpdatedAt) <= staleness
}

// IsAvailableCollector reports whether the principal can receive field visits
func (p *Principal) IsAvailableCollector() bool {
	return p.Active && p.Role == RoleCollector && p.CollectorStatus == CollectorStatusAvailable
}
