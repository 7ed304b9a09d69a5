package allocation

import (
	"context"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ApprovalInput selects one of two mutually exclusive modes: a
// manager-chosen seat, or auto-allot across the application's date range.
type ApprovalInput struct {
	ApplicationID string
	SeatID        string
	AutoAllot     bool
}

// ManagerApproveSeat resolves a pending application into a seat held on every
// day of its plan. Conflict checks run first and nothing is written when any
// date conflicts; the commit itself is a pre-check-then-batch, so it shares
// the range path's accepted overbooking race.
func (e *Engine) ManagerApproveSeat(ctx context.Context, caller domain.Identity, in ApprovalInput) error {
	if caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if caller.Role != domain.RoleManager {
		return errors.Wrap(domain.ErrPermissionDenied, "manager role required")
	}
	if in.ApplicationID == "" {
		return errors.Wrap(domain.ErrInvalidArgument, "application id required")
	}
	if in.SeatID == "" && !in.AutoAllot {
		return errors.Wrap(domain.ErrInvalidArgument, "a seat id or auto-allot is required")
	}
	if in.SeatID != "" && in.AutoAllot {
		return errors.Wrap(domain.ErrInvalidArgument, "seat id and auto-allot are mutually exclusive")
	}

	app, err := e.apps.Get(ctx, in.ApplicationID)
	if err != nil {
		return err
	}
	if app.Status == domain.ApplicationApproved {
		return errors.Wrap(domain.ErrFailedPrecondition, "application already approved")
	}

	dates, err := domain.EnumerateDates(app.Plan.StartDate, app.Plan.EndDate)
	if err != nil {
		return err
	}
	lib, err := e.catalog.GetLibrary(ctx, app.LibraryID)
	if err != nil {
		return err
	}
	if _, ok := lib.SlotType(app.Plan.SlotTypeID); !ok {
		return errors.Wrapf(domain.ErrNotFound, "slot type %s", app.Plan.SlotTypeID)
	}

	var seat domain.Seat
	if in.AutoAllot {
		seat, err = e.autoAllot(ctx, lib, app.Plan.SlotTypeID, dates)
	} else {
		seat, err = e.checkManualSeat(ctx, lib, in.SeatID, app.Plan.SlotTypeID, dates)
	}
	if err != nil {
		observability.AllocationsTotal.WithLabelValues("approval", "unavailable").Inc()
		return err
	}

	now := e.now()
	assignments := make([]domain.SeatAssignment, 0, len(dates))
	bookings := make([]*domain.Booking, 0, len(dates))
	for _, date := range dates {
		bookingID := uuid.NewString()
		assignments = append(assignments, domain.SeatAssignment{
			Key:       domain.SlotKey{LibraryID: app.LibraryID, Date: date, SlotTypeID: app.Plan.SlotTypeID},
			SeatID:    seat.ID,
			BookingID: bookingID,
		})
		bookings = append(bookings, &domain.Booking{
			ID:                  bookingID,
			UserID:              app.StudentID,
			LibraryID:           app.LibraryID,
			SeatID:              seat.ID,
			SeatNumber:          seat.SeatNumber,
			SlotTypeID:          app.Plan.SlotTypeID,
			BookingDate:         date,
			StartDate:           app.Plan.StartDate,
			EndDate:             app.Plan.EndDate,
			Status:              domain.BookingConfirmed,
			SourceApplicationID: app.ID,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	if err := e.avail.CommitAssignments(ctx, assignments); err != nil {
		observability.AllocationsTotal.WithLabelValues("approval", "error").Inc()
		return err
	}
	if err := e.ledger.InsertAll(ctx, bookings); err != nil {
		e.logger.WithError(err).WithField("application_id", app.ID).
			Warn("approval ledger batch failed; seat holds committed without ledger rows")
		observability.AllocationsTotal.WithLabelValues("approval", "error").Inc()
		return err
	}
	if err := e.apps.MarkApproved(ctx, app.ID, seat.ID, seat.SeatNumber); err != nil {
		return err
	}

	observability.AllocationsTotal.WithLabelValues("approval", "confirmed").Inc()
	e.record(ctx, "application.approved", caller.UserID, map[string]interface{}{
		"application_id": app.ID,
		"student_id":     app.StudentID,
		"seat_id":        seat.ID,
		"days":           len(dates),
	})
	e.publish(ctx, "application.approved", map[string]interface{}{
		"application_id": app.ID,
		"student_id":     app.StudentID,
		"library_id":     app.LibraryID,
		"seat_id":        seat.ID,
	})
	return nil
}

// checkManualSeat verifies a manager-chosen seat is active and free on every
// requested date. Any conflict fails the whole approval; no partial
// allocation happens on this path.
func (e *Engine) checkManualSeat(ctx context.Context, lib *domain.LibraryConfig, seatID, slotTypeID string, dates []string) (domain.Seat, error) {
	var seat domain.Seat
	found := false
	for _, s := range lib.Seats {
		if s.ID == seatID {
			seat, found = s, true
			break
		}
	}
	if !found {
		return domain.Seat{}, errors.Wrapf(domain.ErrNotFound, "seat %s", seatID)
	}
	if seat.Status != domain.SeatActive {
		return domain.Seat{}, errors.Wrapf(domain.ErrFailedPrecondition, "seat %s is %s", seat.SeatNumber, seat.Status)
	}

	occupied, err := e.avail.SeatOccupiedDates(ctx, lib.ID, slotTypeID, seatID, dates)
	if err != nil {
		return domain.Seat{}, err
	}
	if len(occupied) > 0 {
		return domain.Seat{}, errors.Wrapf(domain.ErrUnavailable, "seat %s already booked on %s", seat.SeatNumber, occupied[0])
	}
	return seat, nil
}

// autoAllot picks the first active seat, in catalog order, with no booking on
// any date of the range.
func (e *Engine) autoAllot(ctx context.Context, lib *domain.LibraryConfig, slotTypeID string, dates []string) (domain.Seat, error) {
	byDate, err := e.avail.OccupancyByDate(ctx, lib.ID, slotTypeID, dates)
	if err != nil {
		return domain.Seat{}, err
	}

	// Reverse index: seat id -> set of dates it is booked within the range.
	bookedDates := make(map[string]map[string]struct{})
	for date, seats := range byDate {
		for seatID := range seats {
			if bookedDates[seatID] == nil {
				bookedDates[seatID] = make(map[string]struct{})
			}
			bookedDates[seatID][date] = struct{}{}
		}
	}

	for _, s := range lib.Seats {
		if s.Status != domain.SeatActive {
			continue
		}
		if len(bookedDates[s.ID]) == 0 {
			return s, nil
		}
	}
	return domain.Seat{}, errors.Wrap(domain.ErrUnavailable, "no seat free across the full range; use manual allocation")
}
