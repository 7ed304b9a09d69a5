package crdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Unify-India/ekaant-sub000/internal/adapters/crdb"
	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T) *crdb.Store {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}
	pool, err := pgxpool.New(ctx, dsn+"/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	store := crdb.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return store
}

var twoSeats = []domain.Seat{
	{ID: "seat-a", SeatNumber: "A1", Status: domain.SeatActive},
	{ID: "seat-b", SeatNumber: "A2", Status: domain.SeatActive},
}

func TestStore_AllocateSeatFirstFit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-01", SlotTypeID: "slot-m"}

	first := uuid.NewString()
	seatID, err := store.AllocateSeat(ctx, key, twoSeats, first)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if seatID != "seat-a" {
		t.Errorf("expected first-fit seat-a, got %s", seatID)
	}

	second := uuid.NewString()
	seatID, err = store.AllocateSeat(ctx, key, twoSeats, second)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if seatID != "seat-b" {
		t.Errorf("expected seat-b for second booking, got %s", seatID)
	}

	_, err = store.AllocateSeat(ctx, key, twoSeats, uuid.NewString())
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected unavailable when slot is full, got %v", err)
	}

	occupied, err := store.OccupiedSeats(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if occupied["seat-a"] != first || occupied["seat-b"] != second {
		t.Errorf("unexpected seat map: %v", occupied)
	}
	total, err := store.BookedCount(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("expected counter 2, got %d", total)
	}
}

func TestStore_AllocateSeatConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-01", SlotTypeID: "slot-m"}

	const callers = 6
	results := make([]error, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			_, results[i] = store.AllocateSeat(ctx, key, twoSeats, uuid.NewString())
			return nil
		})
	}
	g.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrUnavailable) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 2 {
		t.Errorf("expected exactly 2 winners for 2 seats, got %d", succeeded)
	}

	occupied, err := store.OccupiedSeats(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	total, err := store.BookedCount(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(occupied) != 2 {
		t.Errorf("expected counter and seat map at 2, got %d and %d", total, len(occupied))
	}
}

func TestStore_ReleaseThenReallocate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-01", SlotTypeID: "slot-m"}

	bookingID := uuid.NewString()
	seatID, err := store.AllocateSeat(ctx, key, twoSeats, bookingID)
	if err != nil {
		t.Fatal(err)
	}

	booking := &domain.Booking{
		ID:          bookingID,
		LibraryID:   key.LibraryID,
		SeatID:      seatID,
		SlotTypeID:  key.SlotTypeID,
		BookingDate: key.Date,
	}
	if err := store.Release(ctx, booking, []string{key.Date}); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	total, err := store.BookedCount(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("expected counter back to 0, got %d", total)
	}

	// Releasing the same booking again must not drive the counter negative
	// or touch other holds.
	if err := store.Release(ctx, booking, []string{key.Date}); err != nil {
		t.Fatalf("second release failed: %v", err)
	}
	if total, _ = store.BookedCount(ctx, key); total != 0 {
		t.Errorf("expected counter still 0, got %d", total)
	}

	again, err := store.AllocateSeat(ctx, key, twoSeats, uuid.NewString())
	if err != nil {
		t.Fatalf("reallocation failed: %v", err)
	}
	if again != seatID {
		t.Errorf("expected freed seat %s handed out again, got %s", seatID, again)
	}
}

func TestStore_ReleaseCountOnlyBooking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dates := []string{"2025-07-01", "2025-07-02"}

	booking := &domain.Booking{
		ID:         uuid.NewString(),
		LibraryID:  "lib-1",
		SlotTypeID: "slot-m",
		StartDate:  dates[0],
		EndDate:    dates[1],
	}
	for _, date := range dates {
		key := domain.SlotKey{LibraryID: "lib-1", Date: date, SlotTypeID: "slot-m"}
		if err := store.IncrementBooked(ctx, key); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Release(ctx, booking, dates); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	for _, date := range dates {
		key := domain.SlotKey{LibraryID: "lib-1", Date: date, SlotTypeID: "slot-m"}
		total, err := store.BookedCount(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if total != 0 {
			t.Errorf("%s: expected counter 0, got %d", date, total)
		}
	}
}

func TestStore_CommitAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dates := []string{"2025-07-01", "2025-07-02", "2025-07-03"}

	assignments := make([]domain.SeatAssignment, 0, len(dates))
	for _, date := range dates {
		assignments = append(assignments, domain.SeatAssignment{
			Key:       domain.SlotKey{LibraryID: "lib-1", Date: date, SlotTypeID: "slot-m"},
			SeatID:    "seat-a",
			BookingID: uuid.NewString(),
		})
	}
	if err := store.CommitAssignments(ctx, assignments); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	occupied, err := store.SeatOccupiedDates(ctx, "lib-1", "slot-m", "seat-a", dates)
	if err != nil {
		t.Fatal(err)
	}
	if len(occupied) != len(dates) {
		t.Errorf("expected seat-a occupied on all %d dates, got %v", len(dates), occupied)
	}

	byDate, err := store.OccupancyByDate(ctx, "lib-1", "slot-m", dates)
	if err != nil {
		t.Fatal(err)
	}
	for _, date := range dates {
		if _, held := byDate[date]["seat-a"]; !held {
			t.Errorf("%s: expected seat-a in occupancy map", date)
		}
	}

	// A batch that conflicts on any day must leave nothing behind.
	conflicting := []domain.SeatAssignment{
		{
			Key:       domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-04", SlotTypeID: "slot-m"},
			SeatID:    "seat-a",
			BookingID: uuid.NewString(),
		},
		{
			Key:       domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-02", SlotTypeID: "slot-m"},
			SeatID:    "seat-a",
			BookingID: uuid.NewString(),
		},
	}
	if err := store.CommitAssignments(ctx, conflicting); err == nil {
		t.Fatal("expected duplicate seat row to fail the batch")
	}
	key := domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-04", SlotTypeID: "slot-m"}
	total, err := store.BookedCount(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("expected no holds from failed batch, got counter %d", total)
	}
}

func TestStore_BookedCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	morning := domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-01", SlotTypeID: "slot-m"}
	full := domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-01", SlotTypeID: "slot-f"}
	for i := 0; i < 2; i++ {
		if err := store.IncrementBooked(ctx, morning); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.IncrementBooked(ctx, full); err != nil {
		t.Fatal(err)
	}

	counts, err := store.BookedCounts(ctx, "lib-1", "2025-07-01")
	if err != nil {
		t.Fatal(err)
	}
	if counts["slot-m"] != 2 || counts["slot-f"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	// Missing keys read as zero.
	total, err := store.BookedCount(ctx, domain.SlotKey{LibraryID: "lib-1", Date: "2025-07-02", SlotTypeID: "slot-m"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("expected 0 for missing record, got %d", total)
	}
}
