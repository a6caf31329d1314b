package geo

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/storedex/internal/domain"
)

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// metersPerDegreeLat is the length of one degree of latitude on the sphere.
const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

// Point is a (longitude, latitude) pair in degrees, in GeoJSON order.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// NewPoint validates and creates a Point.
func NewPoint(lng, lat float64) (Point, error) {
	if !ValidateCoordinates(lat, lng) {
		return Point{}, fmt.Errorf("lng=%f lat=%f: %w", lng, lat, domain.ErrInvalidCoordinates)
	}
	return Point{Lng: lng, Lat: lat}, nil
}

// Valid reports whether the point lies within the WGS84 degree ranges.
func (p Point) Valid() bool {
	return ValidateCoordinates(p.Lat, p.Lng)
}

// DistanceTo returns the great-circle distance in meters to q.
func (p Point) DistanceTo(q Point) float64 {
	return Haversine(p.Lat, p.Lng, q.Lat, q.Lng)
}

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Box is a latitude/longitude rectangle used as a cheap prefilter before Haversine.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	// WrapsLng is set when the longitude span crosses the antimeridian.
	WrapsLng bool
	// AllLng is set when the radius reaches a pole and every longitude qualifies.
	AllLng bool
}

// BoundingBox returns a rectangle that contains every point within radiusMeters of center.
// The box is conservative: Haversine still decides membership.
func BoundingBox(center Point, radiusMeters float64) Box {
	dLat := radiusMeters / metersPerDegreeLat
	box := Box{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		box.AllLng = true
		return box
	}

	// Widest longitude span is at the latitude closest to a pole.
	maxAbsLat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	cosLat := math.Cos(maxAbsLat * math.Pi / 180)
	dLng := dLat / cosLat
	if dLng >= 180 {
		box.AllLng = true
		return box
	}

	box.MinLng = center.Lng - dLng
	box.MaxLng = center.Lng + dLng
	if box.MinLng < -180 {
		box.MinLng += 360
		box.WrapsLng = true
	}
	if box.MaxLng > 180 {
		box.MaxLng -= 360
		box.WrapsLng = true
	}
	return box
}

// Contains reports whether p lies within the box.
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.AllLng {
		return true
	}
	if b.WrapsLng {
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
