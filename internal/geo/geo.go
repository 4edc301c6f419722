// Package geo provides great-circle distance and location fix filtering.
package geo

import (
	"math"
	"sync"

	"github.com/udisondev/geospawn/internal/model"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371008.8

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b model.LocationFix) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Within reports whether b lies within radius meters of a.
func Within(a, b model.LocationFix, radius float64) bool {
	return Distance(a, b) <= radius
}

// Filter drops fixes closer than MinDistance meters to the last accepted fix.
// Safe for concurrent use.
type Filter struct {
	MinDistance float64

	mu   sync.Mutex
	last *model.LocationFix
}

// NewFilter creates a distance filter.
func NewFilter(minDistance float64) *Filter {
	return &Filter{MinDistance: minDistance}
}

// Accept reports whether fix should be delivered. The first fix is always accepted.
func (f *Filter) Accept(fix model.LocationFix) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last != nil && Distance(*f.last, fix) < f.MinDistance {
		return false
	}
	f.last = &fix
	return true
}
