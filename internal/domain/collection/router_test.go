package collection

import (
	"testing"
	"time"

	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Kigali city center
const (
	customerLon = 30.0619
	customerLat = -1.9441
)

func collectorAt(t *testing.T, name string, lon, lat float64, locatedAt time.Time) identity.Principal {
	t.Helper()
	p, err := identity.NewPrincipal(name, "+250788111222", "", identity.RoleCollector)
	require.NoError(t, err)
	require.NoError(t, p.SetCollectorStatus(identity.CollectorStatusAvailable))
	p.LastLongitude = &lon
	p.LastLatitude = &lat
	p.LocationUpdatedAt = &locatedAt
	return *p
}

func TestHaversineKm(t *testing.T) {
	// Kigali to Huye is roughly 100 km as the crow flies
	d := HaversineKm(30.0619, -1.9441, 29.7394, -2.5967)
	assert.InDelta(t, 80.5, d, 5)

	assert.InDelta(t, 0, HaversineKm(30.0, -1.9, 30.0, -1.9), 1e-9)
}

func TestSelectCollector_NearestWins(t *testing.T) {
	now := time.Now()
	near := collectorAt(t, "Near", customerLon+0.01, customerLat, now)  // ~1.1 km
	far := collectorAt(t, "Far", customerLon+0.1, customerLat, now)     // ~11 km

	sel, err := SelectCollector([]Candidate{
		{Collector: far, ActiveCount: 0},
		{Collector: near, ActiveCount: 5},
	}, customerLon, customerLat, LocationStalenessDefault, now)
	require.NoError(t, err)

	assert.Equal(t, near.ID, sel.Collector.ID)
	assert.Less(t, sel.DistanceKm, 2.0)
}

func TestSelectCollector_RejectsBeyondRadius(t *testing.T) {
	now := time.Now()
	distant := collectorAt(t, "Distant", customerLon+0.2, customerLat, now) // ~22 km

	_, err := SelectCollector([]Candidate{{Collector: distant}}, customerLon, customerLat, LocationStalenessDefault, now)
	assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
}

func TestSelectCollector_SkipsStaleLocation(t *testing.T) {
	now := time.Now()
	stale := collectorAt(t, "Stale", customerLon, customerLat, now.Add(-20*time.Minute))
	fresh := collectorAt(t, "Fresh", customerLon+0.05, customerLat, now.Add(-5*time.Minute))

	sel, err := SelectCollector([]Candidate{
		{Collector: stale},
		{Collector: fresh},
	}, customerLon, customerLat, LocationStalenessDefault, now)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, sel.Collector.ID)
}

func TestSelectCollector_SkipsUnavailable(t *testing.T) {
	now := time.Now()
	busy := collectorAt(t, "Busy", customerLon, customerLat, now)
	require.NoError(t, busy.SetCollectorStatus(identity.CollectorStatusBusy))

	offDuty := collectorAt(t, "OffDuty", customerLon, customerLat, now)
	require.NoError(t, offDuty.SetCollectorStatus(identity.CollectorStatusOffDuty))

	inactive := collectorAt(t, "Inactive", customerLon, customerLat, now)
	inactive.Active = false

	_, err := SelectCollector([]Candidate{
		{Collector: busy},
		{Collector: offDuty},
		{Collector: inactive},
	}, customerLon, customerLat, LocationStalenessDefault, now)
	assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
}

func TestSelectCollector_TieBreakByActiveCount(t *testing.T) {
	now := time.Now()
	a := collectorAt(t, "A", customerLon+0.02, customerLat, now)
	b := collectorAt(t, "B", customerLon+0.02, customerLat, now)

	sel, err := SelectCollector([]Candidate{
		{Collector: a, ActiveCount: 3},
		{Collector: b, ActiveCount: 1},
	}, customerLon, customerLat, LocationStalenessDefault, now)
	require.NoError(t, err)
	assert.Equal(t, b.ID, sel.Collector.ID)
}

func TestSelectCollector_TieBreakByID(t *testing.T) {
	now := time.Now()
	a := collectorAt(t, "A", customerLon+0.02, customerLat, now)
	b := collectorAt(t, "B", customerLon+0.02, customerLat, now)

	want := a
	if b.ID.String() < a.ID.String() {
		want = b
	}

	sel, err := SelectCollector([]Candidate{
		{Collector: a, ActiveCount: 2},
		{Collector: b, ActiveCount: 2},
	}, customerLon, customerLat, LocationStalenessDefault, now)
	require.NoError(t, err)
	assert.Equal(t, want.ID, sel.Collector.ID)
}

func TestSelectCollector_Empty(t *testing.T) {
	_, err := SelectCollector(nil, customerLon, customerLat, LocationStalenessDefault, time.Now())
	assert.ErrorIs(t, err, shared.ErrNoCollectorInRange)
}
