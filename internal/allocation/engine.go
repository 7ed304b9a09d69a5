package allocation

import (
	"context"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Engine implements the seat allocation and availability operations. It holds
// no state of its own; all mutable state lives in the availability store and
// the ledger, and every invocation is an independent request.
type Engine struct {
	catalog Catalog
	avail   AvailabilityStore
	ledger  Ledger
	apps    Applications
	events  Events
	audit   Audit
	logger  observability.Logger
	now     func() time.Time
}

func NewEngine(catalog Catalog, avail AvailabilityStore, ledger Ledger, apps Applications, events Events, audit Audit, logger observability.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		avail:   avail,
		ledger:  ledger,
		apps:    apps,
		events:  events,
		audit:   audit,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) publish(ctx context.Context, key string, payload interface{}) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishJSON(ctx, key, payload); err != nil {
		e.logger.WithError(err).WithField("event", key).Warn("event publish failed")
	}
}

func (e *Engine) record(ctx context.Context, action, userID string, data map[string]interface{}) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, action, userID, data)
}

// GetLibraryConfig returns the full seat/slot/pricing snapshot for a library.
func (e *Engine) GetLibraryConfig(ctx context.Context, libraryID string) (*domain.LibraryConfig, error) {
	if libraryID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "library id required")
	}
	return e.catalog.GetLibrary(ctx, libraryID)
}

// UpdateLibraryConfig replaces a library's seat/slot/pricing configuration.
// Manager only. Existing bookings are untouched; a seat removed or disabled
// here simply stops matching future allocations.
func (e *Engine) UpdateLibraryConfig(ctx context.Context, caller domain.Identity, cfg *domain.LibraryConfig) error {
	if caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if caller.Role != domain.RoleManager {
		return errors.Wrap(domain.ErrPermissionDenied, "manager role required")
	}
	if cfg == nil || cfg.ID == "" {
		return errors.Wrap(domain.ErrInvalidArgument, "library id required")
	}
	if len(cfg.Seats) == 0 || len(cfg.SlotTypes) == 0 {
		return errors.Wrap(domain.ErrInvalidArgument, "at least one seat and one slot type required")
	}
	if err := e.catalog.UpsertLibrary(ctx, cfg); err != nil {
		return err
	}
	e.record(ctx, "library.config.updated", caller.UserID, map[string]interface{}{
		"library_id": cfg.ID,
		"seats":      len(cfg.Seats),
		"slot_types": len(cfg.SlotTypes),
	})
	e.publish(ctx, "library.config.updated", map[string]interface{}{
		"library_id": cfg.ID,
	})
	return nil
}

// ListBookings returns the caller's own booking history, newest state from
// the ledger.
func (e *Engine) ListBookings(ctx context.Context, caller domain.Identity) ([]*domain.Booking, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return e.ledger.ListByUser(ctx, caller.UserID)
}

// SlotAvailability is one row of the availability listing: a slot definition
// annotated with its price for the requested seat category and the seats
// still free.
type SlotAvailability struct {
	SlotType       domain.SlotType
	Price          float64
	SeatsAvailable int
}

// GetAvailableSlots lists, for each slot type of a library on a date, how
// many seats matching the requirements remain free. The counts are a
// snapshot; only allocateSeat decides for real.
func (e *Engine) GetAvailableSlots(ctx context.Context, libraryID, date string, req domain.SeatRequirements) ([]SlotAvailability, error) {
	if libraryID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "library id required")
	}
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}

	lib, err := e.catalog.GetLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	eligible := domain.EligibleSeats(lib.Seats, req)
	if len(eligible) == 0 {
		return nil, errors.Wrap(domain.ErrNotFound, "no seats configured for the requested category")
	}

	counts, err := e.avail.BookedCounts(ctx, libraryID, date)
	if err != nil {
		return nil, err
	}

	category := req.Category()
	out := make([]SlotAvailability, 0, len(lib.SlotTypes))
	for _, st := range lib.SlotTypes {
		free := len(eligible) - counts[st.ID]
		if free < 0 {
			free = 0
		}
		out = append(out, SlotAvailability{
			SlotType:       st,
			Price:          lib.PriceFor(st.DurationType, category),
			SeatsAvailable: free,
		})
	}
	return out, nil
}

// AllocateSeatInput carries the eligibility criteria for a single-day
// allocation.
type AllocateSeatInput struct {
	LibraryID    string
	Date         string
	SlotTypeID   string
	Requirements domain.SeatRequirements
}

// AllocateSeat claims a seat for one day. The seat pick and the counter bump
// happen in one atomic availability transaction; the ledger write follows,
// keyed by the booking id minted before the transaction so the two stores can
// be joined afterwards.
func (e *Engine) AllocateSeat(ctx context.Context, caller domain.Identity, in AllocateSeatInput) (*domain.Booking, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if in.LibraryID == "" || in.SlotTypeID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "library id and slot type id required")
	}
	if _, err := domain.ParseDate(in.Date); err != nil {
		return nil, err
	}

	lib, err := e.catalog.GetLibrary(ctx, in.LibraryID)
	if err != nil {
		return nil, err
	}
	if _, ok := lib.SlotType(in.SlotTypeID); !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "slot type %s", in.SlotTypeID)
	}
	eligible := domain.EligibleSeats(lib.Seats, in.Requirements)
	if len(eligible) == 0 {
		return nil, errors.Wrap(domain.ErrNotFound, "no eligible seats for the requested category")
	}

	bookingID := uuid.NewString()
	key := domain.SlotKey{LibraryID: in.LibraryID, Date: in.Date, SlotTypeID: in.SlotTypeID}

	seatID, err := e.avail.AllocateSeat(ctx, key, eligible, bookingID)
	if errors.Is(err, domain.ErrUnavailable) {
		observability.AllocationsTotal.WithLabelValues("single", "unavailable").Inc()
		return nil, errors.Wrap(domain.ErrUnavailable, "slot fully booked, try another")
	}
	if err != nil {
		observability.AllocationsTotal.WithLabelValues("single", "error").Inc()
		return nil, err
	}

	// Read back the committed record; the returned seat has to carry this
	// booking id. If it does not, the availability store and this process
	// disagree about what just committed.
	occupied, err := e.avail.OccupiedSeats(ctx, key)
	if err != nil {
		return nil, err
	}
	if occupied[seatID] != bookingID {
		e.logger.WithField("library_id", in.LibraryID).
			WithField("date", in.Date).
			WithField("slot_type_id", in.SlotTypeID).
			WithField("seat_id", seatID).
			WithField("booking_id", bookingID).
			Error("booking id missing from committed availability record")
		return nil, errors.Wrap(domain.ErrInternal, "availability record inconsistent")
	}

	seatNumber := ""
	for _, s := range eligible {
		if s.ID == seatID {
			seatNumber = s.SeatNumber
			break
		}
	}

	now := e.now()
	booking := &domain.Booking{
		ID:          bookingID,
		UserID:      caller.UserID,
		LibraryID:   in.LibraryID,
		SeatID:      seatID,
		SeatNumber:  seatNumber,
		SlotTypeID:  in.SlotTypeID,
		BookingDate: in.Date,
		Status:      domain.BookingConfirmed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.ledger.Insert(ctx, booking); err != nil {
		// The seat hold is committed but has no explaining ledger row.
		e.logger.WithError(err).WithField("booking_id", bookingID).
			WithField("seat_id", seatID).
			Warn("orphaned seat hold: ledger write failed after availability commit")
		return nil, err
	}

	stored, err := e.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	observability.AllocationsTotal.WithLabelValues("single", "confirmed").Inc()
	e.record(ctx, "booking.allocated", caller.UserID, map[string]interface{}{
		"booking_id": bookingID,
		"library_id": in.LibraryID,
		"seat_id":    seatID,
		"date":       in.Date,
	})
	e.publish(ctx, "booking.confirmed", map[string]interface{}{
		"booking_id": bookingID,
		"user_id":    caller.UserID,
		"library_id": in.LibraryID,
	})
	return stored, nil
}
