// README: Cab store backed by PostgreSQL.
package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hubpool/internal/types"
)

var ErrCabNotFound = errors.New("cab not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, seatCapacity, luggageCapacity int) (*Cab, error) {
	now := time.Now().UTC()
	c := &Cab{
		ID:              types.ID(uuid.NewString()),
		SeatCapacity:    seatCapacity,
		LuggageCapacity: luggageCapacity,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO cabs (id, seat_capacity, luggage_capacity, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		string(c.ID), c.SeatCapacity, c.LuggageCapacity, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) SetActive(ctx context.Context, id types.ID, active bool) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE cabs SET active = $1, updated_at = NOW() WHERE id = $2`,
		active, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCabNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Cab, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, seat_capacity, luggage_capacity, active, created_at, updated_at
        FROM cabs
        ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cab
	for rows.Next() {
		var c Cab
		if err := rows.Scan(&c.ID, &c.SeatCapacity, &c.LuggageCapacity, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FirstAvailable returns an active cab for a new group, reading within the
// caller's transaction so the pick is consistent with the rest of the booking.
func (s *Store) FirstAvailable(ctx context.Context, tx pgx.Tx) (*Cab, error) {
	row := tx.QueryRow(ctx, `
        SELECT id, seat_capacity, luggage_capacity, active, created_at, updated_at
        FROM cabs
        WHERE active
        ORDER BY created_at
        LIMIT 1`)

	var c Cab
	err := row.Scan(&c.ID, &c.SeatCapacity, &c.LuggageCapacity, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCabNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountActive reports the active fleet size used by the surge factor.
func (s *Store) CountActive(ctx context.Context, tx pgx.Tx) (int, error) {
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM cabs WHERE active`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
