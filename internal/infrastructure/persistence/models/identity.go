package models

import (
	"time"

	"github.com/highprosper/backend/internal/domain/identity"
)

// PrincipalModel is the persistence model for identity.Principal
type PrincipalModel struct {
	AggregateModel
	Name              string     `gorm:"not null"`
	Phone             string     `gorm:"not null;uniqueIndex"`
	Email             string     `gorm:"index"`
	Role              string     `gorm:"not null;index"`
	Locale            string     `gorm:"not null;default:'en'"`
	PasswordHash      string     `gorm:""`
	Active            bool       `gorm:"not null;default:true;index"`
	CollectorStatus   string     `gorm:"index"`
	LastLongitude     *float64   `gorm:""`
	LastLatitude      *float64   `gorm:""`
	LocationUpdatedAt *time.Time `gorm:""`
}

// TableName returns the table name for PrincipalModel
func (PrincipalModel) TableName() string { return "principals" }

// ToDomain converts the model to a domain Principal
func (m *PrincipalModel) ToDomain() *identity.Principal {
	p := &identity.Principal{
		Name:              m.Name,
		Phone:             m.Phone,
		Email:             m.Email,
		Role:              identity.Role(m.Role),
		Locale:            m.Locale,
		PasswordHash:      m.PasswordHash,
		Active:            m.Active,
		CollectorStatus:   identity.CollectorStatus(m.CollectorStatus),
		LastLongitude:     m.LastLongitude,
		LastLatitude:      m.LastLatitude,
		LocationUpdatedAt: m.LocationUpdatedAt,
	}
	m.PopulateAggregateRoot(&p.BaseAggregateRoot)
	return p
}

// PrincipalModelFromDomain converts a domain Principal to the model
func PrincipalModelFromDomain(p *identity.Principal) *PrincipalModel {
	m := &PrincipalModel{
		Name:              p.Name,
		Phone:             p.Phone,
		Email:             p.Email,
		Role:              string(p.Role),
		Locale:            p.Locale,
		PasswordHash:      p.PasswordHash,
		Active:            p.Active,
		CollectorStatus:   string(p.CollectorStatus),
		LastLongitude:     p.LastLongitude,
		LastLatitude:      p.LastLatitude,
		LocationUpdatedAt: p.LocationUpdatedAt,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
