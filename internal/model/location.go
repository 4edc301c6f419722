package model

// LocationFix is a device position in WGS 84 degrees.
// Value type, passed by value (immutable).
type LocationFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewLocationFix creates a LocationFix.
func NewLocationFix(lat, lon float64) LocationFix {
	return LocationFix{Latitude: lat, Longitude: lon}
}

// Offset returns a new fix shifted by the given deltas in degrees (immutable pattern).
func (l LocationFix) Offset(dLat, dLon float64) LocationFix {
	l.Latitude += dLat
	l.Longitude += dLon
	return l
}

// Valid reports whether the fix lies within latitude/longitude bounds.
func (l LocationFix) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}
