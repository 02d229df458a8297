// Package geo provides the small amount of spherical geometry the
// correlation index and fusion engine need: great-circle distance and
// unweighted centroids over WGS84 points.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distance.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair. Longitude first, matching GeoJSON order.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// DistanceKm returns the great-circle distance between two points in
// kilometers, using the haversine formula.
func DistanceKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid returns the unweighted mean of the given points.
// Returns false if the slice is empty.
//
// This is a planar average of longitude and latitude, not a spherical
// centroid. Fused report sets are local (a few km across), where the
// difference is negligible.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sumLon, sumLat float64
	for _, p := range points {
		sumLon += p.Lon
		sumLat += p.Lat
	}
	n := float64(len(points))
	return Point{Lon: sumLon / n, Lat: sumLat / n}, true
}
