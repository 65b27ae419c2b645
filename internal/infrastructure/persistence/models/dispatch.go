package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/shopspring/decimal"
)

// PayoutModel is the persistence model for dispatch.Payout
type PayoutModel struct {
	AggregateModel
	IdempotencyKey string          `gorm:"not null;uniqueIndex"`
	CollectorID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Phone          string          `gorm:"not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Status         string          `gorm:"not null;index"`
	ProviderRef    string          `gorm:"index"`
	InitiatedAt    time.Time       `gorm:"not null;index"`
	ResolvedAt     *time.Time      `gorm:""`
	FailureReason  string          `gorm:""`
}

// TableName returns the table name for PayoutModel
func (PayoutModel) TableName() string { return "payouts" }

// ToDomain converts the model to a domain Payout
func (m *PayoutModel) ToDomain() *dispatch.Payout {
	p := &dispatch.Payout{
		IdempotencyKey: m.IdempotencyKey,
		CollectorID:    m.CollectorID,
		Phone:          m.Phone,
		Amount:         m.Amount,
		Status:         dispatch.PayoutStatus(m.Status),
		ProviderRef:    m.ProviderRef,
		InitiatedAt:    m.InitiatedAt,
		ResolvedAt:     m.ResolvedAt,
		FailureReason:  m.FailureReason,
	}
	m.PopulateAggregateRoot(&p.BaseAggregateRoot)
	return p
}

// PayoutModelFromDomain converts a domain Payout to the model
func PayoutModelFromDomain(p *dispatch.Payout) *PayoutModel {
	m := &PayoutModel{
		IdempotencyKey: p.IdempotencyKey,
		CollectorID:    p.CollectorID,
		Phone:          p.Phone,
		Amount:         p.Amount,
		Status:         string(p.Status),
		ProviderRef:    p.ProviderRef,
		InitiatedAt:    p.InitiatedAt,
		ResolvedAt:     p.ResolvedAt,
		FailureReason:  p.FailureReason,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
