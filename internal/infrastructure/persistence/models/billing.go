package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// StringList stores a string slice as JSONB
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan StringList: unsupported type")
	}
	if len(bytes) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// CustomerModel is the persistence model for billing.Customer
type CustomerModel struct {
	AggregateModel
	PrincipalID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	DisplayName   string          `gorm:"not null"`
	Phone         string          `gorm:"not null;index"`
	VillageID     *uuid.UUID      `gorm:"type:uuid;index"`
	MonthlyFee    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	RiskScore     int             `gorm:"not null;default:0"`
	AccountCode   string          `gorm:"not null;uniqueIndex"`
	CreditBalance decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Longitude     *float64        `gorm:""`
	Latitude      *float64        `gorm:""`
	Active        bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for CustomerModel
func (CustomerModel) TableName() string { return "customers" }

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() *billing.Customer {
	c := &billing.Customer{
		PrincipalID:   m.PrincipalID,
		DisplayName:   m.DisplayName,
		Phone:         m.Phone,
		VillageID:     m.VillageID,
		MonthlyFee:    m.MonthlyFee,
		RiskScore:     m.RiskScore,
		AccountCode:   m.AccountCode,
		CreditBalance: m.CreditBalance,
		Longitude:     m.Longitude,
		Latitude:      m.Latitude,
		Active:        m.Active,
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)
	return c
}

// CustomerModelFromDomain converts a domain Customer to the model
func CustomerModelFromDomain(c *billing.Customer) *CustomerModel {
	m := &CustomerModel{
		PrincipalID:   c.PrincipalID,
		DisplayName:   c.DisplayName,
		Phone:         c.Phone,
		VillageID:     c.VillageID,
		MonthlyFee:    c.MonthlyFee,
		RiskScore:     c.RiskScore,
		AccountCode:   c.AccountCode,
		CreditBalance: c.CreditBalance,
		Longitude:     c.Longitude,
		Latitude:      c.Latitude,
		Active:        c.Active,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

// VillageModel is the persistence model for billing.Village
type VillageModel struct {
	BaseModel
	Name         string     `gorm:"not null;index"`
	Cell         string     `gorm:"not null"`
	Sector       string     `gorm:"not null"`
	CollectorIDs StringList `gorm:"type:jsonb"`
}

// TableName returns the table name for VillageModel
func (VillageModel) TableName() string { return "villages" }

// ToDomain converts the model to a domain Village
func (m *VillageModel) ToDomain() *billing.Village {
	ids := make([]uuid.UUID, 0, len(m.CollectorIDs))
	for _, s := range m.CollectorIDs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return &billing.Village{
		BaseEntity:   m.BaseModel.ToDomain(),
		Name:         m.Name,
		Cell:         m.Cell,
		Sector:       m.Sector,
		CollectorIDs: ids,
	}
}

// VillageModelFromDomain converts a domain Village to the model
func VillageModelFromDomain(v *billing.Village) *VillageModel {
	ids := make(StringList, len(v.CollectorIDs))
	for i, id := range v.CollectorIDs {
		ids[i] = id.String()
	}
	m := &VillageModel{
		Name:         v.Name,
		Cell:         v.Cell,
		Sector:       v.Sector,
		CollectorIDs: ids,
	}
	m.FromDomainBaseEntity(v.BaseEntity)
	return m
}

// InvoiceModel is the persistence model for billing.Invoice
type InvoiceModel struct {
	AggregateModel
	UID              string           `gorm:"not null;uniqueIndex"`
	CustomerID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_customer_period"`
	Year             int              `gorm:"not null;uniqueIndex:idx_invoices_customer_period"`
	Month            int              `gorm:"not null;uniqueIndex:idx_invoices_customer_period"`
	Amount           decimal.Decimal  `gorm:"type:numeric(14,2);not null"`
	PaidAmount       decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0"`
	DueDate          time.Time        `gorm:"not null;index"`
	Status           string           `gorm:"not null;index"`
	PartiallyPaid    bool             `gorm:"not null;default:false"`
	SentVia          StringList       `gorm:"type:jsonb"`
	AttemptLog       billing.Attempts `gorm:"type:jsonb"`
	PDFKey           string           `gorm:""`
	VoiceInitiatedAt *time.Time       `gorm:"index"`
	PaidAt           *time.Time       `gorm:""`
	WriteOffReason   string           `gorm:""`
}

// TableName returns the table name for InvoiceModel
func (InvoiceModel) TableName() string { return "invoices" }

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		UID:              m.UID,
		CustomerID:       m.CustomerID,
		Year:             m.Year,
		Month:            time.Month(m.Month),
		Amount:           m.Amount,
		PaidAmount:       m.PaidAmount,
		DueDate:          m.DueDate,
		Status:           billing.InvoiceStatus(m.Status),
		PartiallyPaid:    m.PartiallyPaid,
		SentVia:          append([]string{}, m.SentVia...),
		AttemptLog:       m.AttemptLog,
		PDFKey:           m.PDFKey,
		VoiceInitiatedAt: m.VoiceInitiatedAt,
		PaidAt:           m.PaidAt,
		WriteOffReason:   m.WriteOffReason,
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	return inv
}

// InvoiceModelFromDomain converts a domain Invoice to the model
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		UID:              inv.UID,
		CustomerID:       inv.CustomerID,
		Year:             inv.Year,
		Month:            int(inv.Month),
		Amount:           inv.Amount,
		PaidAmount:       inv.PaidAmount,
		DueDate:          inv.DueDate,
		Status:           string(inv.Status),
		PartiallyPaid:    inv.PartiallyPaid,
		SentVia:          StringList(inv.SentVia),
		AttemptLog:       inv.AttemptLog,
		PDFKey:           inv.PDFKey,
		VoiceInitiatedAt: inv.VoiceInitiatedAt,
		PaidAt:           inv.PaidAt,
		WriteOffReason:   inv.WriteOffReason,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	return m
}

// PaymentModel is the persistence model for billing.Payment
type PaymentModel struct {
	AggregateModel
	Reference   string          `gorm:"not null;uniqueIndex"`
	ExternalID  string          `gorm:"index"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID   *uuid.UUID      `gorm:"type:uuid;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Method      string          `gorm:"not null;index"`
	Status      string          `gorm:"not null;index"`
	CollectorID *uuid.UUID      `gorm:"type:uuid;index"`
	ReceivedAt  time.Time       `gorm:"not null;index"`
	FailureNote string          `gorm:""`
}

// TableName returns the table name for PaymentModel
func (PaymentModel) TableName() string { return "payments" }

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		Reference:   m.Reference,
		ExternalID:  m.ExternalID,
		CustomerID:  m.CustomerID,
		InvoiceID:   m.InvoiceID,
		Amount:      m.Amount,
		Method:      billing.PaymentMethod(m.Method),
		Status:      billing.PaymentStatus(m.Status),
		CollectorID: m.CollectorID,
		ReceivedAt:  m.ReceivedAt,
		FailureNote: m.FailureNote,
	}
	m.PopulateAggregateRoot(&p.BaseAggregateRoot)
	return p
}

// PaymentModelFromDomain converts a domain Payment to the model
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		Reference:   p.Reference,
		ExternalID:  p.ExternalID,
		CustomerID:  p.CustomerID,
		InvoiceID:   p.InvoiceID,
		Amount:      p.Amount,
		Method:      string(p.Method),
		Status:      string(p.Status),
		CollectorID: p.CollectorID,
		ReceivedAt:  p.ReceivedAt,
		FailureNote: p.FailureNote,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
