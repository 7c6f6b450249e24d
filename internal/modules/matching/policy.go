// README: Greedy best-fit group selection for a single incoming request.
package matching

import (
	"hubpool/internal/geo"
	"hubpool/internal/types"
)

// SelectGroup picks the forming group whose route grows the least by adding
// the request, rejecting any group that would break a seat, luggage,
// pickup-radius, or detour-tolerance constraint. Ties keep the first-seen
// group. The second return is false when no candidate survives and the
// caller must open a new group.
//
// This is a single-pass greedy choice over the live stream of requests, not
// a global optimum; the policy has no visibility into future arrivals.
func SelectGroup(req Request, candidates []Group, passengersByGroup map[types.ID][]Passenger, hub types.Point, limits Limits) (Selection, bool) {
	var best Selection
	found := false

	for _, g := range candidates {
		if g.SeatsUsed+req.Seats > g.SeatCapacity {
			continue
		}
		if g.LuggageUsed+req.Luggage > g.LuggageCapacity {
			continue
		}
		if geo.DistanceKm(req.Pickup, hub) > limits.PickupRadiusKm {
			continue
		}

		passengers := passengersByGroup[g.ID]
		drops := make([]types.Point, 0, len(passengers)+1)
		for _, p := range passengers {
			drops = append(drops, p.Stop)
		}
		oldRoute := geo.RouteDistanceKm(drops, hub)
		newRoute := geo.RouteDistanceKm(append(drops, req.Stop), hub)
		extra := newRoute - oldRoute

		if extra > req.DetourToleranceKm {
			continue
		}
		if tooFarForAny(passengers, extra) {
			continue
		}

		if !found || extra < best.ExtraKm {
			best = Selection{GroupID: g.ID, ExtraKm: extra}
			found = true
		}
	}

	return best, found
}

func tooFarForAny(passengers []Passenger, extraKm float64) bool {
	for _, p := range passengers {
		if extraKm > p.DetourToleranceKm {
			return true
		}
	}
	return false
}
