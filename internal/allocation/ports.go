package allocation

import (
	"context"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
)

// Catalog is the library configuration source. Reads dominate; the write is
// the manager's config update and must invalidate any caching layer.
type Catalog interface {
	GetLibrary(ctx context.Context, libraryID string) (*domain.LibraryConfig, error)
	UpsertLibrary(ctx context.Context, cfg *domain.LibraryConfig) error
}

// AvailabilityStore is the concurrency-critical mutable core. AllocateSeat is
// the one operation with full read-modify-write atomicity; IncrementBooked is
// atomic only at the single-counter level, and CommitAssignments is atomic per
// batch but not against concurrent pre-flight readers.
type AvailabilityStore interface {
	AllocateSeat(ctx context.Context, key domain.SlotKey, eligible []domain.Seat, bookingID string) (string, error)
	OccupiedSeats(ctx context.Context, key domain.SlotKey) (map[string]string, error)
	BookedCount(ctx context.Context, key domain.SlotKey) (int, error)
	BookedCounts(ctx context.Context, libraryID, date string) (map[string]int, error)
	IncrementBooked(ctx context.Context, key domain.SlotKey) error
	Release(ctx context.Context, b *domain.Booking, dates []string) error
	SeatOccupiedDates(ctx context.Context, libraryID, slotTypeID, seatID string, dates []string) ([]string, error)
	OccupancyByDate(ctx context.Context, libraryID, slotTypeID string, dates []string) (map[string]map[string]string, error)
	CommitAssignments(ctx context.Context, assignments []domain.SeatAssignment) error
}

// Ledger is the durable booking record store.
type Ledger interface {
	Insert(ctx context.Context, b *domain.Booking) error
	InsertAll(ctx context.Context, bookings []*domain.Booking) error
	Get(ctx context.Context, bookingID string) (*domain.Booking, error)
	SetStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error)
}

// Applications is the pending-application store the approval allocator reads
// from and resolves into.
type Applications interface {
	Get(ctx context.Context, applicationID string) (*domain.Application, error)
	MarkApproved(ctx context.Context, applicationID, seatID, seatNumber string) error
}

// Events publishes trigger-point notifications. Best effort; failures are
// logged, never surfaced to the caller.
type Events interface {
	PublishJSON(ctx context.Context, key string, payload interface{}) error
}

// Audit records allocation decisions for later inspection. Best effort.
type Audit interface {
	Record(ctx context.Context, action, userID string, data map[string]interface{})
}
