package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Customer is the billing-facing view of a subscriber: who gets invoiced,
// for how much, and where they live for field collection purposes.
type Customer struct {
	shared.BaseAggregateRoot
	PrincipalID   uuid.UUID       `json:"principal_id"`
	DisplayName   string          `json:"display_name"`
	Phone         string          `json:"phone"` // E.164, denormalized for dispatch
	VillageID     *uuid.UUID      `json:"village_id,omitempty"`
	MonthlyFee    decimal.Decimal `json:"monthly_fee"`
	RiskScore     int             `json:"risk_score"`
	AccountCode   string          `json:"account_code"` // unique payment account code
	CreditBalance decimal.Decimal `json:"credit_balance"`
	Longitude     *float64        `json:"longitude,omitempty"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Active        bool            `json:"active"`
}

// NewCustomer creates a new billing customer
func NewCustomer(principalID uuid.UUID, displayName, phone, accountCode string, monthlyFee decimal.Decimal) (*Customer, error) {
	if principalID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRINCIPAL", "Principal ID cannot be empty")
	}
	if displayName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Display name cannot be empty")
	}
	if accountCode == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_CODE", "Payment account code cannot be empty")
	}
	if monthlyFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FEE", "Monthly fee cannot be negative")
	}

	return &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PrincipalID:       principalID,
		DisplayName:       displayName,
		Phone:             phone,
		MonthlyFee:        monthlyFee,
		AccountCode:       accountCode,
		CreditBalance:     decimal.Zero,
		Active:            true,
	}, nil
}

// Deactivate soft-deactivates the customer; existing invoices remain open
func (c *Customer) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// AddCredit carries an overpayment forward on the customer account
func (c *Customer) AddCredit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	c.CreditBalance = c.CreditBalance.Add(amount)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// SetLocation records the customer's premises coordinates
func (c *Customer) SetLocation(lon, lat float64) {
	c.Longitude = &lon
	c.Latitude = &lat
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// HasLocation reports whether the customer can be routed to
func (c *Customer) HasLocation() bool {
	return c.Longitude != nil && c.Latitude != nil
}

// Village is a geographic grouping of customers. Villages nest into cells and
// sectors; a village can have collectors assigned for routine rounds.
type Village struct {
	shared.BaseEntity
	Name         string      `json:"name"`
	Cell         string      `json:"cell"`
	Sector       string      `json:"sector"`
	CollectorIDs []uuid.UUID `json:"collector_ids" gorm:"-"`
}
