// README: HTTP handlers for booking, cancelling and fetching ride requests.
package handlers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hubpool/internal/modules/ride"
	"hubpool/internal/types"
)

// TravelEstimator enriches a booking response with a road travel estimate.
// Implementations may be unavailable (no API key); a nil estimator is fine.
type TravelEstimator interface {
	EstimateTravel(ctx context.Context, from, to types.Point) (time.Duration, float64, error)
}

// BookingLimits caps what a single request may ask for. They mirror the
// fleet's per-cab capacities so an over-sized request fails fast at the
// edge instead of churning through the matcher.
type BookingLimits struct {
	SeatCapacity    int
	LuggageCapacity int
}

type RideHandler struct {
	svc    *ride.Service
	travel TravelEstimator
	hub    types.Point
	limits BookingLimits
}

func NewRideHandler(svc *ride.Service, travel TravelEstimator, hub types.Point, limits BookingLimits) *RideHandler {
	return &RideHandler{svc: svc, travel: travel, hub: hub, limits: limits}
}

type pointPayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type bookPayload struct {
	Direction         *string       `json:"direction"`
	Pickup            *pointPayload `json:"pickup"`
	Drop              *pointPayload `json:"drop"`
	SeatsRequired     *int          `json:"seats_required"`
	LuggageCount      *int          `json:"luggage_count"`
	DetourToleranceKm *float64      `json:"detour_tolerance_km"`
}

type bookResponse struct {
	Request *ride.RideRequest `json:"request"`
	Travel  *travelEstimate   `json:"travel_estimate,omitempty"`
}

type travelEstimate struct {
	DurationSeconds int     `json:"duration_seconds"`
	DistanceKm      float64 `json:"distance_km"`
}

func (h *RideHandler) Book(c *gin.Context) {
	var payload bookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cmd, err := h.toCommand(payload)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.svc.Book(c.Request.Context(), cmd)
	if err != nil {
		writeRideError(c, err)
		return
	}

	resp := bookResponse{Request: req}
	if h.travel != nil {
		stop := req.Drop
		if req.Direction == types.DirectionToHub {
			stop = req.Pickup
		}
		if dur, km, err := h.travel.EstimateTravel(c.Request.Context(), h.hub, stop); err == nil {
			resp.Travel = &travelEstimate{DurationSeconds: int(dur.Seconds()), DistanceKm: km}
		}
	}
	writeJSON(c, http.StatusCreated, resp)
}

func (h *RideHandler) Cancel(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing request id")
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), id); err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": id, "status": ride.RequestCancelled})
}

func (h *RideHandler) Get(c *gin.Context) {
	id := types.ID(c.Param("id"))
	req, err := h.svc.GetRequest(c.Request.Context(), id)
	if err != nil {
		writeRideError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, req)
}

func (h *RideHandler) toCommand(p bookPayload) (ride.BookCommand, error) {
	var cmd ride.BookCommand
	if p.Direction == nil {
		return cmd, fmt.Errorf("direction is required")
	}
	dir := types.Direction(*p.Direction)
	if !dir.Valid() {
		return cmd, fmt.Errorf("direction must be %s or %s", types.DirectionToHub, types.DirectionFromHub)
	}
	pickup, err := toPoint("pickup", p.Pickup)
	if err != nil {
		return cmd, err
	}
	drop, err := toPoint("drop", p.Drop)
	if err != nil {
		return cmd, err
	}
	if p.SeatsRequired == nil {
		return cmd, fmt.Errorf("seats_required is required")
	}
	if *p.SeatsRequired < 1 || *p.SeatsRequired > h.limits.SeatCapacity {
		return cmd, fmt.Errorf("seats_required must be between 1 and %d", h.limits.SeatCapacity)
	}
	if p.LuggageCount == nil {
		return cmd, fmt.Errorf("luggage_count is required")
	}
	if *p.LuggageCount < 0 || *p.LuggageCount > h.limits.LuggageCapacity {
		return cmd, fmt.Errorf("luggage_count must be between 0 and %d", h.limits.LuggageCapacity)
	}
	if p.DetourToleranceKm == nil {
		return cmd, fmt.Errorf("detour_tolerance_km is required")
	}
	if *p.DetourToleranceKm < 0 || math.IsNaN(*p.DetourToleranceKm) {
		return cmd, fmt.Errorf("detour_tolerance_km must be non-negative")
	}

	cmd.Direction = dir
	cmd.Pickup = pickup
	cmd.Drop = drop
	cmd.SeatsRequired = *p.SeatsRequired
	cmd.LuggageCount = *p.LuggageCount
	cmd.DetourToleranceKm = *p.DetourToleranceKm
	return cmd, nil
}

func toPoint(name string, p *pointPayload) (types.Point, error) {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return types.Point{}, fmt.Errorf("%s.lat and %s.lng are required", name, name)
	}
	if !isFinite(*p.Lat) || !isFinite(*p.Lng) {
		return types.Point{}, fmt.Errorf("%s coordinates must be finite numbers", name)
	}
	if *p.Lat < -90 || *p.Lat > 90 || *p.Lng < -180 || *p.Lng > 180 {
		return types.Point{}, fmt.Errorf("%s coordinates out of range", name)
	}
	return types.Point{Lat: *p.Lat, Lng: *p.Lng}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
