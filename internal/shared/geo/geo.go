// Package geo holds the pure great-circle helpers shared by tracking and export.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusM is the WGS84 equatorial radius in meters.
const EarthRadiusM = 6378137.0

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is inside the lat/lng ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return math.Abs(c.Lat) <= 90 && math.Abs(c.Lng) <= 180
}

func (c Coordinate) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lng)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	// canonical argument order keeps the float result symmetric
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lng < a.Lng) {
		a, b = b, a
	}
	return a.latLng().Distance(b.latLng()).Radians() * EarthRadiusM
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return Distance(Coordinate{Lat: lat1, Lng: lng1}, Coordinate{Lat: lat2, Lng: lng2}) / 1000
}

// SegmentDistance sums the distance between consecutive coordinates.
func SegmentDistance(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// Bounds represents coordinate boundaries.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns the smallest box holding every coordinate. An empty
// input yields the zero Bounds, so callers must check for points before
// framing anything with it.
func BoundingBox(coords []Coordinate) Bounds {
	if len(coords) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: coords[0].Lat, MaxLat: coords[0].Lat,
		MinLng: coords[0].Lng, MaxLng: coords[0].Lng,
	}
	for _, c := range coords[1:] {
		b = b.Add(c)
	}
	return b
}

// Add grows the box to include c.
func (b Bounds) Add(c Coordinate) Bounds {
	b.MinLat = math.Min(b.MinLat, c.Lat)
	b.MaxLat = math.Max(b.MaxLat, c.Lat)
	b.MinLng = math.Min(b.MinLng, c.Lng)
	b.MaxLng = math.Max(b.MaxLng, c.Lng)
	return b
}

// Union merges two boxes.
func (b Bounds) Union(o Bounds) Bounds {
	b.MinLat = math.Min(b.MinLat, o.MinLat)
	b.MaxLat = math.Max(b.MaxLat, o.MaxLat)
	b.MinLng = math.Min(b.MinLng, o.MinLng)
	b.MaxLng = math.Max(b.MaxLng, o.MaxLng)
	return b
}

// Extend extends boundaries from given decimal degrees
func (b Bounds) Extend(inc float64) Bounds {
	b.MinLat -= inc
	b.MinLng -= inc
	b.MaxLat += inc
	b.MaxLng += inc
	return b
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.MinLat + b.MaxLat) / 2, Lng: (b.MinLng + b.MaxLng) / 2}
}
