// README: Ride group and ride request aggregates with their status machines.
package ride

import (
	"time"

	"hubpool/internal/types"
)

type GroupStatus string

const (
	GroupForming   GroupStatus = "FORMING"
	GroupActive    GroupStatus = "ACTIVE"
	GroupCompleted GroupStatus = "COMPLETED"
	GroupCancelled GroupStatus = "CANCELLED"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestCancelled RequestStatus = "CANCELLED"
	RequestCompleted RequestStatus = "COMPLETED"
)

// RideGroup is one forming or active pool bound to a cab and a direction.
// seats_used and luggage_used never exceed the cab's capacities; the store
// enforces that with conditional updates.
type RideGroup struct {
	ID          types.ID        `json:"id"`
	CabID       types.ID        `json:"cab_id"`
	Direction   types.Direction `json:"direction"`
	SeatsUsed   int             `json:"seats_used"`
	LuggageUsed int             `json:"luggage_used"`
	Status      GroupStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GroupCandidate is a forming group joined with its cab's capacities, the
// form the matching policy needs.
type GroupCandidate struct {
	RideGroup
	SeatCapacity    int
	LuggageCapacity int
}

// RideRequest is one passenger's booking. Fare and group reference are fixed
// at confirmation and never revised when later passengers join.
type RideRequest struct {
	ID                types.ID        `json:"id"`
	GroupID           types.ID        `json:"group_id"`
	Pickup            types.Point     `json:"pickup"`
	Drop              types.Point     `json:"drop"`
	SeatsRequired     int             `json:"seats_required"`
	LuggageCount      int             `json:"luggage_count"`
	DetourToleranceKm float64         `json:"detour_tolerance_km"`
	Direction         types.Direction `json:"direction"`
	Fare              int64           `json:"fare"`
	Status            RequestStatus   `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// groupTransitions represents the group state flow (diagram) as code.
var groupTransitions = map[GroupStatus][]GroupStatus{
	GroupForming: {GroupActive, GroupCancelled},
	GroupActive:  {GroupCompleted},
}

// requestTransitions represents the request state flow as code.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestConfirmed},
	RequestConfirmed: {RequestCancelled, RequestCompleted},
}

func CanTransitionGroup(from, to GroupStatus) bool {
	for _, s := range groupTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionRequest(from, to RequestStatus) bool {
	for _, s := range requestTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
