package collection

import (
	"math"
	"sort"
	"time"

	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
)

// Routing limits. Collectors beyond the radius or with stale location data
// are never considered.
const (
	MaxDispatchRadiusKm      = 15.0
	LocationStalenessDefault = 15 * time.Minute
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// (lon, lat) points.
func HaversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Candidate pairs a collector with their current open-order load
type Candidate struct {
	Collector   identity.Principal
	ActiveCount int
}

// Selection is the routing decision for one customer location
type Selection struct {
	Collector  identity.Principal
	DistanceKm float64
}

// SelectCollector picks the nearest eligible collector for the customer's
// premises. Eligibility requires: collector role, active, available status,
// a location newer than staleness, and distance within MaxDispatchRadiusKm.
// Ties on distance break by lower active-order count, then lexicographic id.
// Returns ErrNoCollectorInRange when nobody qualifies.
func SelectCollector(candidates []Candidate, lon, lat float64, staleness time.Duration, now time.Time) (*Selection, error) {
	if staleness <= 0 {
		staleness = LocationStalenessDefault
	}

	type scored struct {
		c    Candidate
		dist float64
	}
	eligible := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		p := cand.Collector
		if !p.IsAvailableCollector() {
			continue
		}
		if !p.HasFreshLocation(staleness, now) {
			continue
		}
		d := HaversineKm(*p.LastLongitude, *p.LastLatitude, lon, lat)
		if d > MaxDispatchRadiusKm {
			continue
		}
		eligible = append(eligible, scored{c: cand, dist: d})
	}

	if len(eligible) == 0 {
		return nil, shared.ErrNoCollectorInRange
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].dist != eligible[j].dist {
			return eligible[i].dist < eligible[j].dist
		}
		if eligible[i].c.ActiveCount != eligible[j].c.ActiveCount {
			return eligible[i].c.ActiveCount < eligible[j].c.ActiveCount
		}
		return eligible[i].c.Collector.ID.String() < eligible[j].c.Collector.ID.String()
	})

	best := eligible[0]
	return &Selection{Collector: best.c.Collector, DistanceKm: best.dist}, nil
}
