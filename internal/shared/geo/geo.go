package geo

import "math"

const earthRadiusKm = 6371.0

// minCosLat keeps the longitude delta finite near the poles, where
// cos(latitude) goes to zero.
const minCosLat = 1e-6

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox is a latitude/longitude rectangle. When the box wraps the
// antimeridian, MinLng > MaxLng.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// NewBoundingBox returns a rectangle approximating a radius around a center
// point. The box over-includes: callers must post-filter candidates with
// HaversineKm against the true radius.
func NewBoundingBox(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / earthRadiusKm * (180.0 / math.Pi)

	cosLat := math.Cos(lat * math.Pi / 180.0)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	lngDelta := latDelta / cosLat

	return BoundingBox{
		MinLat: clampLat(lat - latDelta),
		MaxLat: clampLat(lat + latDelta),
		MinLng: normalizeLng(lng - lngDelta),
		MaxLng: normalizeLng(lng + lngDelta),
	}
}

// CrossesAntimeridian reports whether the box wraps the ±180° seam.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

// Split divides an antimeridian-crossing box into two non-crossing halves:
// [MinLng, 180] and [-180, MaxLng]. The two longitude ranges are disjoint,
// so results from querying both never overlap.
func (b BoundingBox) Split() (west, east BoundingBox) {
	west = BoundingBox{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLng: b.MinLng, MaxLng: 180}
	east = BoundingBox{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLng: -180, MaxLng: b.MaxLng}
	return west, east
}

// Contains reports whether a point lies inside the box, honoring wrap-around.
func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return lng >= b.MinLng || lng <= b.MaxLng
	}
	return lng >= b.MinLng && lng <= b.MaxLng
}

func clampLat(lat float64) float64 {
	if lat < -90 {
		return -90
	}
	if lat > 90 {
		return 90
	}
	return lat
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
