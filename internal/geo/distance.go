package geo

import "math"

const (
	// EarthRadiusKm is Earth's mean radius in kilometres for Haversine calculation.
	EarthRadiusKm = 6371.0088
	// KmPerDegreeLat is the length of one degree of latitude.
	KmPerDegreeLat = 111.32
)

// HaversineKm calculates the great-circle distance between two points
// on Earth in kilometres using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// IsWithinRadiusKm checks if two coordinates are within radiusKm of each other.
func IsWithinRadiusKm(lat1, lng1, lat2, lng2, radiusKm float64) bool {
	return HaversineKm(lat1, lng1, lat2, lng2) <= radiusKm
}

// ValidCoordinates reports whether lat/lng are inside the WGS84 range.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// BoundingBox is a lat/lng rectangle used to pre-filter candidates before
// the exact Haversine check.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBoxKm returns a box that contains every point within radiusKm of (lat, lng).
// The longitude span is widened to the full range when the circle reaches a pole
// or crosses the antimeridian, so MinLng <= MaxLng always holds.
func BoundingBoxKm(lat, lng, radiusKm float64) BoundingBox {
	dLat := radiusKm / KmPerDegreeLat
	box := BoundingBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat == -90 || box.MaxLat == 90 {
		return box
	}
	cos := math.Cos(lat * math.Pi / 180)
	if cos <= 0.01 {
		return box
	}
	dLng := radiusKm / (KmPerDegreeLat * cos)
	if lng-dLng < -180 || lng+dLng > 180 {
		return box
	}
	box.MinLng, box.MaxLng = lng-dLng, lng+dLng
	return box
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
