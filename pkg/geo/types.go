// Package geo provides the geographic types and calculations shared by the
// map session: pin locations, great-circle distances and the conversion of
// ground distances to on-screen pixel lengths.
package geo

import (
	"fmt"
	"math"
	"strconv"
)

// EarthRadius is the mean radius of Earth according to WGS-84 in meters
const EarthRadius = 6371000.0

// Location is a pin position on the map. A nil *Location means no pin has
// been placed.
//
// Example:
//
//	loc := geo.Location{Lat: 51.5, Lng: -0.14}
//	dist := geo.HaversineDistance(loc.Lat, loc.Lng, 51.51, -0.12)
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the coordinates are within WGS-84 ranges.
func (l Location) Validate() error {
	return ValidateCoords(l.Lat, l.Lng)
}

// Key returns a stable string form of the location suitable for use as a
// request dependency key.
func (l Location) Key() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// String implements fmt.Stringer
func (l Location) String() string {
	return fmt.Sprintf("(%f,%f)", l.Lat, l.Lng)
}

// Equal reports whether two optional locations denote the same pin.
func Equal(a, b *Location) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ValidateCoords validates latitude and longitude ranges
func ValidateCoords(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude %f: must be between -90 and 90", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("invalid longitude %f: must be between -180 and 180", lng)
	}
	return nil
}

// HaversineDistance calculates the great-circle distance between two points
// on the Earth's surface given their latitude and longitude in degrees.
// The result is returned in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert degrees to radians
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	// Haversine formula
	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadius * c
}
