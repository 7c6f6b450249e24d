// README: Ride lifecycle service. Booking and cancellation each run as one
// atomic transaction: group snapshot, capacity mutation, surge counts, and
// request insert commit together or not at all.
package ride

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hubpool/internal/geo"
	"hubpool/internal/modules/fleet"
	"hubpool/internal/modules/matching"
	"hubpool/internal/modules/pricing"
	"hubpool/internal/observability"
	"hubpool/internal/types"
)

var (
	ErrBadRequest     = errors.New("bad ride request")
	ErrSeatConflict   = errors.New("seat conflict")
	ErrNoAvailableCab = errors.New("no available cab")
	ErrNotFound       = errors.New("ride request not found")
	ErrInvalidState   = errors.New("invalid ride state")
)

// Pricer computes one passenger's fare share at confirmation time.
type Pricer interface {
	Fare(distanceFromHubKm, extraKm float64, seatsInGroup, formingGroups, activeCabs int) pricing.Quote
}

// Events receives lifecycle notifications after a transaction commits.
// Publishing is best-effort; a failed publish never fails the booking.
type Events interface {
	Publish(ctx context.Context, event string, fields map[string]any) error
}

// PoolingConfig carries the matching and fleet knobs from configuration.
type PoolingConfig struct {
	Hub             types.Point
	PickupRadiusKm  float64
	SeatCapacity    int
	LuggageCapacity int
}

type Service struct {
	store      *Store
	fleet      *fleet.Store
	pricer     Pricer
	events     Events
	log        *zap.Logger
	hub        types.Point
	limits     matching.Limits
	seatCap    int
	luggageCap int
}

func NewService(store *Store, fleetStore *fleet.Store, pricer Pricer, events Events, log *zap.Logger, cfg PoolingConfig) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      store,
		fleet:      fleetStore,
		pricer:     pricer,
		events:     events,
		log:        log,
		hub:        cfg.Hub,
		limits:     matching.Limits{PickupRadiusKm: cfg.PickupRadiusKm},
		seatCap:    cfg.SeatCapacity,
		luggageCap: cfg.LuggageCapacity,
	}
}

type BookCommand struct {
	Pickup            types.Point
	Drop              types.Point
	SeatsRequired     int
	LuggageCount      int
	DetourToleranceKm float64
	Direction         types.Direction
}

// Book matches the request against forming groups in its direction, joins
// the best fit or opens a new group on an available cab, prices the seat,
// and confirms the request, all in one transaction. A lost race for the
// last seat returns ErrSeatConflict with no partial effect; callers may
// retry with the same payload and can land on a different group.
func (s *Service) Book(ctx context.Context, cmd BookCommand) (*RideRequest, error) {
	if err := s.validateBooking(cmd); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	candidates, err := s.store.FormingGroupsForDirection(ctx, tx, cmd.Direction)
	if err != nil {
		return nil, err
	}

	matchGroups := make([]matching.Group, 0, len(candidates))
	passengersByGroup := make(map[types.ID][]matching.Passenger, len(candidates))
	for _, g := range candidates {
		matchGroups = append(matchGroups, matching.Group{
			ID:              g.ID,
			SeatsUsed:       g.SeatsUsed,
			LuggageUsed:     g.LuggageUsed,
			SeatCapacity:    g.SeatCapacity,
			LuggageCapacity: g.LuggageCapacity,
		})
		members, err := s.store.ConfirmedRequestsForGroup(ctx, tx, g.ID)
		if err != nil {
			return nil, err
		}
		ps := make([]matching.Passenger, 0, len(members))
		for _, m := range members {
			ps = append(ps, matching.Passenger{
				Stop:              routeStop(m.Direction, m.Pickup, m.Drop),
				DetourToleranceKm: m.DetourToleranceKm,
			})
		}
		passengersByGroup[g.ID] = ps
	}

	sel, matched := matching.SelectGroup(matching.Request{
		Pickup:            cmd.Pickup,
		Stop:              routeStop(cmd.Direction, cmd.Pickup, cmd.Drop),
		Seats:             cmd.SeatsRequired,
		Luggage:           cmd.LuggageCount,
		DetourToleranceKm: cmd.DetourToleranceKm,
	}, matchGroups, passengersByGroup, s.hub, s.limits)

	var (
		group   *RideGroup
		extraKm float64
		created bool
	)
	if matched {
		g, ok, err := s.store.JoinGroup(ctx, tx, sel.GroupID, cmd.SeatsRequired, cmd.LuggageCount)
		if err != nil {
			return nil, err
		}
		if !ok {
			observability.SeatConflictsTotal.Inc()
			return nil, ErrSeatConflict
		}
		group = g
		extraKm = sel.ExtraKm
	} else {
		cab, err := s.fleet.FirstAvailable(ctx, tx)
		if errors.Is(err, fleet.ErrCabNotFound) {
			return nil, ErrNoAvailableCab
		}
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		group = &RideGroup{
			ID:          types.ID(uuid.NewString()),
			CabID:       cab.ID,
			Direction:   cmd.Direction,
			SeatsUsed:   cmd.SeatsRequired,
			LuggageUsed: cmd.LuggageCount,
			Status:      GroupForming,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateGroup(ctx, tx, group); err != nil {
			return nil, err
		}
		created = true
	}

	// Surge inputs are read after the group mutation so the booking's own
	// group is part of the demand it is priced under.
	formingGroups, err := s.store.CountFormingGroups(ctx, tx)
	if err != nil {
		return nil, err
	}
	activeCabs, err := s.fleet.CountActive(ctx, tx)
	if err != nil {
		return nil, err
	}

	billable := geo.DistanceKm(s.hub, routeStop(cmd.Direction, cmd.Pickup, cmd.Drop))
	quote := s.pricer.Fare(billable, extraKm, group.SeatsUsed, formingGroups, activeCabs)

	now := time.Now().UTC()
	req := &RideRequest{
		ID:                types.ID(uuid.NewString()),
		GroupID:           group.ID,
		Pickup:            cmd.Pickup,
		Drop:              cmd.Drop,
		SeatsRequired:     cmd.SeatsRequired,
		LuggageCount:      cmd.LuggageCount,
		DetourToleranceKm: cmd.DetourToleranceKm,
		Direction:         cmd.Direction,
		Fare:              quote.Amount,
		Status:            RequestConfirmed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.InsertRequest(ctx, tx, req); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	observability.BookingsTotal.Inc()
	if created {
		observability.GroupsCreatedTotal.Inc()
	}
	s.log.Info("booking confirmed",
		zap.String("request_id", string(req.ID)),
		zap.String("group_id", string(group.ID)),
		zap.String("direction", string(cmd.Direction)),
		zap.Bool("new_group", created),
		zap.Int64("fare", req.Fare),
		zap.Float64("extra_km", extraKm),
	)
	s.publish(ctx, "ride.booked", map[string]any{
		"request_id": string(req.ID),
		"group_id":   string(group.ID),
		"direction":  string(cmd.Direction),
		"fare":       req.Fare,
		"new_group":  created,
	})
	return req, nil
}

// Cancel reverses a confirmed booking: the request's seats and luggage go
// back to its group and the group itself is cancelled when it empties out.
func (s *Service) Cancel(ctx context.Context, id types.ID) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	req, err := s.store.GetRequestForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if !CanTransitionRequest(req.Status, RequestCancelled) {
		return ErrInvalidState
	}

	ok, err := s.store.SetRequestStatus(ctx, tx, id, RequestConfirmed, RequestCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}

	seatsLeft, err := s.store.ReleaseCapacity(ctx, tx, req.GroupID, req.SeatsRequired, req.LuggageCount)
	if err != nil {
		return err
	}
	groupCancelled := false
	if seatsLeft == 0 {
		if err := s.store.CancelGroup(ctx, tx, req.GroupID); err != nil {
			return err
		}
		groupCancelled = true
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	observability.CancellationsTotal.Inc()
	s.log.Info("booking cancelled",
		zap.String("request_id", string(id)),
		zap.String("group_id", string(req.GroupID)),
		zap.Bool("group_cancelled", groupCancelled),
	)
	s.publish(ctx, "ride.cancelled", map[string]any{
		"request_id":      string(id),
		"group_id":        string(req.GroupID),
		"group_cancelled": groupCancelled,
	})
	return nil
}

func (s *Service) GetRequest(ctx context.Context, id types.ID) (*RideRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// GroupDetail is the group accessor's view: the group, its cab profile, and
// its confirmed passengers.
type GroupDetail struct {
	Group      RideGroup     `json:"group"`
	Cab        fleet.Cab     `json:"cab"`
	Passengers []RideRequest `json:"passengers"`
}

func (s *Service) GetGroup(ctx context.Context, id types.ID) (*GroupDetail, error) {
	g, cab, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	passengers, err := s.store.ConfirmedPassengers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{Group: *g, Cab: *cab, Passengers: passengers}, nil
}

func (s *Service) ListFormingGroups(ctx context.Context) ([]RideGroup, error) {
	return s.store.ListFormingGroups(ctx)
}

func (s *Service) publish(ctx context.Context, event string, fields map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event, fields); err != nil {
		s.log.Warn("event publish failed", zap.String("event", event), zap.Error(err))
	}
}

// routeStop is the off-hub end of a request's leg: the drop when riding away
// from the hub, the pickup when riding toward it.
func routeStop(d types.Direction, pickup, drop types.Point) types.Point {
	if d == types.DirectionToHub {
		return pickup
	}
	return drop
}

// validateBooking defends the group invariants at the core boundary: a new
// group's counters start at the request's demand, so an over-capacity
// request must never reach the store.
func (s *Service) validateBooking(cmd BookCommand) error {
	if !cmd.Direction.Valid() {
		return ErrBadRequest
	}
	if cmd.SeatsRequired <= 0 || cmd.LuggageCount < 0 {
		return ErrBadRequest
	}
	if cmd.SeatsRequired > s.seatCap || cmd.LuggageCount > s.luggageCap {
		return ErrBadRequest
	}
	if cmd.DetourToleranceKm < 0 {
		return ErrBadRequest
	}
	for _, v := range []float64{cmd.Pickup.Lat, cmd.Pickup.Lng, cmd.Drop.Lat, cmd.Drop.Lng, cmd.DetourToleranceKm} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrBadRequest
		}
	}
	return nil
}
