// README: Matching inputs and outputs. The policy is pure; the lifecycle
// manager loads candidates and commits the result.
package matching

import (
	"hubpool/internal/types"
)

// Request is the booking being placed. Stop is the off-hub end of the
// passenger's leg: the drop point when riding away from the hub, the pickup
// point when riding toward it.
type Request struct {
	Pickup            types.Point
	Stop              types.Point
	Seats             int
	Luggage           int
	DetourToleranceKm float64
}

// Group is a forming pool candidate, pre-filtered by the caller to the
// request's direction and FORMING status.
type Group struct {
	ID              types.ID
	SeatsUsed       int
	LuggageUsed     int
	SeatCapacity    int
	LuggageCapacity int
}

// Passenger is a confirmed member of a candidate group. Only its route stop
// and the member's own detour tolerance matter to the policy.
type Passenger struct {
	Stop              types.Point
	DetourToleranceKm float64
}

// Selection is the chosen group together with the marginal route distance
// its route gains by adding the request. The lifecycle manager prices the
// booking from ExtraKm without recomputing the route.
type Selection struct {
	GroupID types.ID
	ExtraKm float64
}

// Limits carries the policy knobs sourced from configuration.
type Limits struct {
	// PickupRadiusKm bounds how far from the hub a shared cab will collect
	// anyone, independent of group membership.
	PickupRadiusKm float64
}
