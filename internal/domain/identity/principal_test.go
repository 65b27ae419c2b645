package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrincipal(t *testing.T) {
	p, err := NewPrincipal("Uwase Claudine", "0788123456", "claudine@example.com", RoleCustomer)
	require.NoError(t, err)

	assert.Equal(t, "+250788123456", p.Phone)
	assert.Equal(t, "rw", p.Locale)
	assert.True(t, p.Active)
	assert.Len(t, p.GetDomainEvents(), 1)
}

func TestNewPrincipal_CollectorStartsOffDuty(t *testing.T) {
	p, err := NewPrincipal("Habimana Jean", "+250788000111", "", RoleCollector)
	require.NoError(t, err)

	assert.Equal(t, CollectorStatusOffDuty, p.CollectorStatus)
	assert.False(t, p.IsAvailableCollector())
}

func TestNewPrincipal_Validation(t *testing.T) {
	_, err := NewPrincipal("", "+250788123456", "", RoleCustomer)
	assert.Error(t, err)

	_, err = NewPrincipal("Name", "not-a-phone", "", RoleCustomer)
	assert.Error(t, err)

	_, err = NewPrincipal("Name", "+250788123456", "", Role("janitor"))
	assert.Error(t, err)
}

func TestPrincipal_Deactivate(t *testing.T) {
	p, err := NewPrincipal("Uwase Claudine", "+250788123456", "", RoleCustomer)
	require.NoError(t, err)
	p.ClearDomainEvents()

	p.Deactivate()
	assert.False(t, p.Active)
	assert.Len(t, p.GetDomainEvents(), 1)

	// second deactivation is a no-op
	p.Deactivate()
	assert.Len(t, p.GetDomainEvents(), 1)
}

func TestPrincipal_ChangeRole(t *testing.T) {
	p, err := NewPrincipal("Habimana Jean", "+250788000111", "", RoleCustomer)
	require.NoError(t, err)

	assert.Error(t, p.ChangeRole(RoleCollector, false))
	assert.Equal(t, RoleCustomer, p.Role)

	require.NoError(t, p.ChangeRole(RoleCollector, true))
	assert.Equal(t, RoleCollector, p.Role)
}

func TestPrincipal_CollectorAvailability(t *testing.T) {
	customer, err := NewPrincipal("Uwase Claudine", "+250788123456", "", RoleCustomer)
	require.NoError(t, err)
	assert.Error(t, customer.SetCollectorStatus(CollectorStatusAvailable))

	collector, err := NewPrincipal("Habimana Jean", "+250788000111", "", RoleCollector)
	require.NoError(t, err)

	require.NoError(t, collector.SetCollectorStatus(CollectorStatusAvailable))
	assert.True(t, collector.IsAvailableCollector())

	collector.Deactivate()
	assert.False(t, collector.IsAvailableCollector())
}

func TestPrincipal_LocationFreshness(t *testing.T) {
	p, err := NewPrincipal("Habimana Jean", "+250788000111", "", RoleCollector)
	require.NoError(t, err)

	now := time.Now()
	assert.False(t, p.HasFreshLocation(15*time.Minute, now))

	p.UpdateLocation(30.0619, -1.9441)
	assert.True(t, p.HasFreshLocation(15*time.Minute, time.Now()))
	assert.False(t, p.HasFreshLocation(15*time.Minute, time.Now().Add(20*time.Minute)))
}
