// Package geo contains pure geographic computation helpers.
package geo

import (
	"cmp"
	"math"
	"slices"

	"hubpool/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees (haversine). Non-finite inputs yield
// NaN, which callers must treat as an input error rather than zero.
func DistanceKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// RouteDistanceKm estimates the length of a route that leaves the hub and
// visits every point ordered by increasing distance from the hub: hub to the
// nearest point, then each consecutive leg. The sort is stable so equal
// distances keep their original order and the estimate stays deterministic
// for a given point set. An empty slice yields 0.
//
// This is a cheap O(n log n) heuristic, not a shortest path. The matching
// policy prices a join as the difference of two calls, so determinism
// matters more than optimality here.
func RouteDistanceKm(points []types.Point, hub types.Point) float64 {
	if len(points) == 0 {
		return 0
	}

	type stop struct {
		point   types.Point
		fromHub float64
	}
	ordered := make([]stop, len(points))
	for i, p := range points {
		ordered[i] = stop{point: p, fromHub: DistanceKm(hub, p)}
	}
	slices.SortStableFunc(ordered, func(a, b stop) int {
		return cmp.Compare(a.fromHub, b.fromHub)
	})

	total := ordered[0].fromHub
	for i := 1; i < len(ordered); i++ {
		total += DistanceKm(ordered[i-1].point, ordered[i].point)
	}
	return total
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
