// README: Ride store backed by PostgreSQL. Booking and cancellation run as
// multi-statement transactions; the capacity increment is a single
// conditional UPDATE so a lost seat race surfaces as zero rows, never as an
// overbooked group.
package ride

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hubpool/internal/modules/fleet"
	"hubpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

const groupColumns = `g.id, g.cab_id, g.direction, g.seats_used, g.luggage_used, g.status, g.created_at, g.updated_at`

const requestColumns = `id, group_id, pickup_lat, pickup_lng, drop_lat, drop_lng,
       seats_required, luggage_count, detour_tolerance_km, direction, fare, status,
       created_at, updated_at`

// FormingGroupsForDirection snapshots the candidate groups, joined with their
// cab capacities, inside the booking transaction.
func (s *Store) FormingGroupsForDirection(ctx context.Context, tx pgx.Tx, d types.Direction) ([]GroupCandidate, error) {
	rows, err := tx.Query(ctx, `
        SELECT `+groupColumns+`, c.seat_capacity, c.luggage_capacity
        FROM ride_groups g
        JOIN cabs c ON c.id = g.cab_id
        WHERE g.status = $1 AND g.direction = $2
        ORDER BY g.created_at`,
		string(GroupForming), string(d),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupCandidate
	for rows.Next() {
		var g GroupCandidate
		if err := rows.Scan(
			&g.ID, &g.CabID, &g.Direction, &g.SeatsUsed, &g.LuggageUsed, &g.Status,
			&g.CreatedAt, &g.UpdatedAt, &g.SeatCapacity, &g.LuggageCapacity,
		); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ConfirmedRequestsForGroup lists a group's confirmed passengers within the
// caller's transaction.
func (s *Store) ConfirmedRequestsForGroup(ctx context.Context, tx pgx.Tx, groupID types.ID) ([]RideRequest, error) {
	rows, err := tx.Query(ctx, `
        SELECT `+requestColumns+`
        FROM ride_requests
        WHERE group_id = $1 AND status = $2
        ORDER BY created_at`,
		string(groupID), string(RequestConfirmed),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// JoinGroup increments the group's capacity counters, conditioned on the
// group still forming and still having headroom against its cab at commit
// time. ok is false when a concurrent booking consumed the headroom first.
func (s *Store) JoinGroup(ctx context.Context, tx pgx.Tx, groupID types.ID, seats, luggage int) (*RideGroup, bool, error) {
	row := tx.QueryRow(ctx, `
        UPDATE ride_groups g
        SET seats_used = g.seats_used + $2,
            luggage_used = g.luggage_used + $3,
            updated_at = NOW()
        FROM cabs c
        WHERE g.id = $1
          AND c.id = g.cab_id
          AND g.status = $4
          AND g.seats_used + $2 <= c.seat_capacity
          AND g.luggage_used + $3 <= c.luggage_capacity
        RETURNING `+groupColumns,
		string(groupID), seats, luggage, string(GroupForming),
	)

	var g RideGroup
	err := row.Scan(&g.ID, &g.CabID, &g.Direction, &g.SeatsUsed, &g.LuggageUsed, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &g, true, nil
}

func (s *Store) CreateGroup(ctx context.Context, tx pgx.Tx, g *RideGroup) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO ride_groups (id, cab_id, direction, seats_used, luggage_used, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(g.ID), string(g.CabID), string(g.Direction), g.SeatsUsed, g.LuggageUsed, string(g.Status), g.CreatedAt, g.UpdatedAt,
	)
	return err
}

func (s *Store) InsertRequest(ctx context.Context, tx pgx.Tx, r *RideRequest) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO ride_requests (
            id, group_id, pickup_lat, pickup_lng, drop_lat, drop_lng,
            seats_required, luggage_count, detour_tolerance_km, direction, fare, status,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		string(r.ID), string(r.GroupID),
		r.Pickup.Lat, r.Pickup.Lng, r.Drop.Lat, r.Drop.Lng,
		r.SeatsRequired, r.LuggageCount, r.DetourToleranceKm, string(r.Direction),
		r.Fare, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// CountFormingGroups feeds the surge factor; it runs inside the booking
// transaction after the group mutation so the booking's own group counts.
func (s *Store) CountFormingGroups(ctx context.Context, tx pgx.Tx) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ride_groups WHERE status = $1`, string(GroupForming)).Scan(&n)
	return n, err
}

// GetRequestForUpdate loads a request with a row lock inside a transaction.
func (s *Store) GetRequestForUpdate(ctx context.Context, tx pgx.Tx, id types.ID) (*RideRequest, error) {
	row := tx.QueryRow(ctx, `
        SELECT `+requestColumns+`
        FROM ride_requests
        WHERE id = $1
        FOR UPDATE`, string(id),
	)
	return scanRequest(row)
}

func (s *Store) GetRequest(ctx context.Context, id types.ID) (*RideRequest, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+requestColumns+`
        FROM ride_requests
        WHERE id = $1`, string(id),
	)
	return scanRequest(row)
}

// GetGroup loads a group joined with its cab profile.
func (s *Store) GetGroup(ctx context.Context, id types.ID) (*RideGroup, *fleet.Cab, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+groupColumns+`,
               c.id, c.seat_capacity, c.luggage_capacity, c.active, c.created_at, c.updated_at
        FROM ride_groups g
        JOIN cabs c ON c.id = g.cab_id
        WHERE g.id = $1`, string(id),
	)
	var (
		g RideGroup
		c fleet.Cab
	)
	err := row.Scan(
		&g.ID, &g.CabID, &g.Direction, &g.SeatsUsed, &g.LuggageUsed, &g.Status, &g.CreatedAt, &g.UpdatedAt,
		&c.ID, &c.SeatCapacity, &c.LuggageCapacity, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &g, &c, nil
}

// ConfirmedPassengers is the read-only variant used by the group accessor.
func (s *Store) ConfirmedPassengers(ctx context.Context, groupID types.ID) ([]RideRequest, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+requestColumns+`
        FROM ride_requests
        WHERE group_id = $1 AND status = $2
        ORDER BY created_at`,
		string(groupID), string(RequestConfirmed),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *Store) ListFormingGroups(ctx context.Context) ([]RideGroup, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+groupColumns+`
        FROM ride_groups g
        WHERE g.status = $1
        ORDER BY g.created_at`, string(GroupForming),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RideGroup
	for rows.Next() {
		var g RideGroup
		if err := rows.Scan(&g.ID, &g.CabID, &g.Direction, &g.SeatsUsed, &g.LuggageUsed, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetRequestStatus is a compare-and-swap on the request status.
func (s *Store) SetRequestStatus(ctx context.Context, tx pgx.Tx, id types.ID, from, to RequestStatus) (bool, error) {
	tag, err := tx.Exec(ctx, `
        UPDATE ride_requests
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseCapacity gives a cancelled request's seats and luggage back to its
// group and returns the seats remaining in use.
func (s *Store) ReleaseCapacity(ctx context.Context, tx pgx.Tx, groupID types.ID, seats, luggage int) (int, error) {
	var seatsLeft int
	err := tx.QueryRow(ctx, `
        UPDATE ride_groups
        SET seats_used = seats_used - $2,
            luggage_used = luggage_used - $3,
            updated_at = NOW()
        WHERE id = $1
        RETURNING seats_used`,
		string(groupID), seats, luggage,
	).Scan(&seatsLeft)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return seatsLeft, err
}

func (s *Store) CancelGroup(ctx context.Context, tx pgx.Tx, id types.ID) error {
	_, err := tx.Exec(ctx, `
        UPDATE ride_groups
        SET status = $1, updated_at = NOW()
        WHERE id = $2`,
		string(GroupCancelled), string(id),
	)
	return err
}

func scanRequest(row pgx.Row) (*RideRequest, error) {
	var r RideRequest
	err := row.Scan(
		&r.ID, &r.GroupID,
		&r.Pickup.Lat, &r.Pickup.Lng, &r.Drop.Lat, &r.Drop.Lng,
		&r.SeatsRequired, &r.LuggageCount, &r.DetourToleranceKm, &r.Direction,
		&r.Fare, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRequests(rows pgx.Rows) ([]RideRequest, error) {
	var out []RideRequest
	for rows.Next() {
		var r RideRequest
		if err := rows.Scan(
			&r.ID, &r.GroupID,
			&r.Pickup.Lat, &r.Pickup.Lng, &r.Drop.Lat, &r.Drop.Lng,
			&r.SeatsRequired, &r.LuggageCount, &r.DetourToleranceKm, &r.Direction,
			&r.Fare, &r.Status, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
