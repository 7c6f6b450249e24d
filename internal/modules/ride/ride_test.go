// README: Lifecycle tests for booking and cancellation. DB-backed cases
// need HUBPOOL_TEST_DSN and are skipped otherwise.
package ride

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"hubpool/internal/modules/fleet"
	"hubpool/internal/modules/pricing"
	"hubpool/internal/types"
)

var testHub = types.Point{Lat: 17.2403, Lng: 78.4294}

func TestGroupTransitions(t *testing.T) {
	cases := []struct {
		from, to GroupStatus
		ok       bool
	}{
		{GroupForming, GroupActive, true},
		{GroupForming, GroupCancelled, true},
		{GroupForming, GroupCompleted, false},
		{GroupActive, GroupCompleted, true},
		{GroupActive, GroupCancelled, false},
		{GroupCompleted, GroupForming, false},
		{GroupCancelled, GroupActive, false},
	}
	for _, c := range cases {
		if got := CanTransitionGroup(c.from, c.to); got != c.ok {
			t.Errorf("CanTransitionGroup(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestRequestTransitions(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		ok       bool
	}{
		{RequestPending, RequestConfirmed, true},
		{RequestPending, RequestCompleted, false},
		{RequestConfirmed, RequestCancelled, true},
		{RequestConfirmed, RequestCompleted, true},
		{RequestCancelled, RequestConfirmed, false},
		{RequestCompleted, RequestCancelled, false},
	}
	for _, c := range cases {
		if got := CanTransitionRequest(c.from, c.to); got != c.ok {
			t.Errorf("CanTransitionRequest(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestBookValidation(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, PoolingConfig{
		Hub:             testHub,
		PickupRadiusKm:  5,
		SeatCapacity:    4,
		LuggageCapacity: 4,
	})
	ctx := context.Background()

	bad := []BookCommand{
		{Direction: "SIDEWAYS", Pickup: testHub, Drop: testHub, SeatsRequired: 1},
		{Direction: types.DirectionFromHub, Pickup: testHub, Drop: testHub, SeatsRequired: 0},
		{Direction: types.DirectionFromHub, Pickup: testHub, Drop: testHub, SeatsRequired: 1, LuggageCount: -1},
		{Direction: types.DirectionFromHub, Pickup: testHub, Drop: testHub, SeatsRequired: 1, DetourToleranceKm: -2},
		// Over cab capacity: would seed a group with seats_used or
		// luggage_used beyond what any cab can carry.
		{Direction: types.DirectionFromHub, Pickup: testHub, Drop: testHub, SeatsRequired: 5},
		{Direction: types.DirectionFromHub, Pickup: testHub, Drop: testHub, SeatsRequired: 1, LuggageCount: 5},
	}
	for i, cmd := range bad {
		if _, err := svc.Book(ctx, cmd); !errors.Is(err, ErrBadRequest) {
			t.Errorf("case %d: expected ErrBadRequest, got %v", i, err)
		}
	}
}

func TestBookCreatesNewGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	req, err := svc.Book(ctx, testBooking(2))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if req.Status != RequestConfirmed {
		t.Errorf("expected CONFIRMED, got %s", req.Status)
	}
	if req.GroupID == "" {
		t.Fatal("expected a group assignment")
	}
	if req.Fare <= 0 {
		t.Errorf("expected a positive fare, got %d", req.Fare)
	}

	detail, err := svc.GetGroup(ctx, req.GroupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if detail.Group.Status != GroupForming {
		t.Errorf("expected FORMING group, got %s", detail.Group.Status)
	}
	if detail.Group.SeatsUsed != 2 {
		t.Errorf("expected seats_used 2, got %d", detail.Group.SeatsUsed)
	}
	if len(detail.Passengers) != 1 {
		t.Errorf("expected 1 passenger, got %d", len(detail.Passengers))
	}
	if detail.Cab.ID != detail.Group.CabID {
		t.Errorf("expected cab %s in the group view, got %s", detail.Group.CabID, detail.Cab.ID)
	}
	if detail.Cab.SeatCapacity != 4 || detail.Cab.LuggageCapacity != 4 {
		t.Errorf("expected cab capacities 4/4, got %d/%d", detail.Cab.SeatCapacity, detail.Cab.LuggageCapacity)
	}
}

func TestBookJoinsExistingGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	first, err := svc.Book(ctx, testBooking(2))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	second, err := svc.Book(ctx, testBooking(1))
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}

	if second.GroupID != first.GroupID {
		t.Fatalf("expected the second booking to join group %s, got %s", first.GroupID, second.GroupID)
	}
	detail, err := svc.GetGroup(ctx, first.GroupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if detail.Group.SeatsUsed != 3 {
		t.Errorf("expected seats_used 3, got %d", detail.Group.SeatsUsed)
	}
	if len(detail.Passengers) != 2 {
		t.Errorf("expected 2 passengers, got %d", len(detail.Passengers))
	}
	// Same drop, so the second rider pays no detour; the split over three
	// occupied seats makes the shared fare cheaper than the first rider's
	// split over two.
	if second.Fare >= first.Fare {
		t.Errorf("expected second fare %d below first fare %d", second.Fare, first.Fare)
	}
	// Joining must not revise the fare fixed at the first confirmation.
	firstAgain, err := svc.GetRequest(ctx, first.ID)
	if err != nil {
		t.Fatalf("get first request: %v", err)
	}
	if firstAgain.Fare != first.Fare {
		t.Errorf("first fare changed from %d to %d", first.Fare, firstAgain.Fare)
	}
}

func TestBookFarPickupOpensSeparateGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 2)

	first, err := svc.Book(ctx, testBooking(1))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	cmd := testBooking(1)
	cmd.Pickup = types.Point{Lat: 17.40, Lng: 78.4294} // ~18km from the hub
	second, err := svc.Book(ctx, cmd)
	if err != nil {
		t.Fatalf("far pickup booking: %v", err)
	}
	if second.GroupID == first.GroupID {
		t.Error("expected a far pickup to be kept out of the nearby group")
	}
}

func TestBookNoActiveCabs(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 0)

	if _, err := svc.Book(ctx, testBooking(1)); !errors.Is(err, ErrNoAvailableCab) {
		t.Fatalf("expected ErrNoAvailableCab, got %v", err)
	}
}

func TestBookFullGroupOverflowsToNewGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 2)

	first, err := svc.Book(ctx, testBooking(4))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	second, err := svc.Book(ctx, testBooking(2))
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}
	if second.GroupID == first.GroupID {
		t.Error("expected a full group to overflow into a new group")
	}

	groups, err := svc.ListFormingGroups(ctx)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("expected 2 forming groups, got %d", len(groups))
	}
}

func TestCancelReleasesCapacity(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	first, err := svc.Book(ctx, testBooking(2))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	second, err := svc.Book(ctx, testBooking(1))
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}

	if err := svc.Cancel(ctx, second.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	detail, err := svc.GetGroup(ctx, first.GroupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if detail.Group.Status != GroupForming {
		t.Errorf("expected group still FORMING, got %s", detail.Group.Status)
	}
	if detail.Group.SeatsUsed != 2 {
		t.Errorf("expected seats_used back to 2, got %d", detail.Group.SeatsUsed)
	}
	if len(detail.Passengers) != 1 {
		t.Errorf("expected 1 confirmed passenger left, got %d", len(detail.Passengers))
	}

	cancelled, err := svc.GetRequest(ctx, second.ID)
	if err != nil {
		t.Fatalf("get cancelled request: %v", err)
	}
	if cancelled.Status != RequestCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
}

func TestCancelLastPassengerCancelsGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	req, err := svc.Book(ctx, testBooking(2))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := svc.Cancel(ctx, req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	detail, err := svc.GetGroup(ctx, req.GroupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if detail.Group.Status != GroupCancelled {
		t.Errorf("expected group CANCELLED, got %s", detail.Group.Status)
	}
	if detail.Group.SeatsUsed != 0 {
		t.Errorf("expected seats_used 0, got %d", detail.Group.SeatsUsed)
	}
}

func TestCancelTwiceIsInvalid(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	req, err := svc.Book(ctx, testBooking(1))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := svc.Cancel(ctx, req.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if err := svc.Cancel(ctx, req.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCancelUnknownRequest(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	if err := svc.Cancel(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUnknownGroup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t, 1)

	if _, err := svc.GetGroup(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// testBooking is a request leaving the hub for a drop about 2km north.
func testBooking(seats int) BookCommand {
	return BookCommand{
		Pickup:            testHub,
		Drop:              types.Point{Lat: 17.2583, Lng: 78.4294},
		SeatsRequired:     seats,
		LuggageCount:      0,
		DetourToleranceKm: 10,
		Direction:         types.DirectionFromHub,
	}
}

func setupTestService(t *testing.T, activeCabs int) *Service {
	t.Helper()

	dsn := os.Getenv("HUBPOOL_TEST_DSN")
	if dsn == "" {
		t.Skip("HUBPOOL_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE ride_requests, ride_groups, cabs"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	fleetStore := fleet.NewStore(db)
	for i := 0; i < activeCabs; i++ {
		if _, err := fleetStore.Create(ctx, 4, 4); err != nil {
			t.Fatalf("seed cab: %v", err)
		}
	}

	pricer := pricing.NewService(pricing.Rates{RatePerKm: 20, DetourRate: 5})
	return NewService(NewStore(db), fleetStore, pricer, nil, nil, PoolingConfig{
		Hub:             testHub,
		PickupRadiusKm:  5,
		SeatCapacity:    4,
		LuggageCapacity: 4,
	})
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
