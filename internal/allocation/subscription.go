package allocation

import (
	"context"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SubscriptionInput describes a date-range booking: one ledger entry per
// calendar day, capacity-counted but not pinned to a seat.
type SubscriptionInput struct {
	LibraryID    string
	StartDate    string
	EndDate      string
	SlotTypeID   string
	Requirements domain.SeatRequirements
}

// CreateSubscription books every day in [StartDate, EndDate]. The capacity
// pre-flight is advisory: concurrent bookings between the check and the
// counter bumps can overbook, which is an accepted race on this path. The
// ledger batch is all-or-nothing; the counter bumps are not rolled back if
// the batch fails.
func (e *Engine) CreateSubscription(ctx context.Context, caller domain.Identity, in SubscriptionInput) ([]string, error) {
	if caller.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if in.LibraryID == "" || in.SlotTypeID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "library id and slot type id required")
	}
	dates, err := domain.EnumerateDates(in.StartDate, in.EndDate)
	if err != nil {
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

	// Pre-flight: read every date's counter before writing anything. Fanned
	// out, then checked in date order so the reported full date is the
	// earliest one.
	counts := make([]int, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			n, err := e.avail.BookedCount(gctx, domain.SlotKey{
				LibraryID: in.LibraryID, Date: date, SlotTypeID: in.SlotTypeID,
			})
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, date := range dates {
		if counts[i] >= len(eligible) {
			return nil, errors.Wrapf(domain.ErrFailedPrecondition, "slot fully booked on %s", date)
		}
	}

	now := e.now()
	bookings := make([]*domain.Booking, 0, len(dates))
	ids := make([]string, 0, len(dates))
	for _, date := range dates {
		b := &domain.Booking{
			ID:          uuid.NewString(),
			UserID:      caller.UserID,
			LibraryID:   in.LibraryID,
			SlotTypeID:  in.SlotTypeID,
			BookingDate: date,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			Status:      domain.BookingConfirmed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		bookings = append(bookings, b)
		ids = append(ids, b.ID)
	}

	for _, date := range dates {
		key := domain.SlotKey{LibraryID: in.LibraryID, Date: date, SlotTypeID: in.SlotTypeID}
		if err := e.avail.IncrementBooked(ctx, key); err != nil {
			observability.AllocationsTotal.WithLabelValues("subscription", "error").Inc()
			return nil, err
		}
	}

	if err := e.ledger.InsertAll(ctx, bookings); err != nil {
		e.logger.WithError(err).WithField("library_id", in.LibraryID).
			Warn("subscription ledger batch failed; counters were incremented and are not rolled back")
		observability.AllocationsTotal.WithLabelValues("subscription", "error").Inc()
		return nil, err
	}

	observability.AllocationsTotal.WithLabelValues("subscription", "confirmed").Inc()
	e.record(ctx, "subscription.created", caller.UserID, map[string]interface{}{
		"library_id": in.LibraryID,
		"start_date": in.StartDate,
		"end_date":   in.EndDate,
		"days":       len(dates),
	})
	e.publish(ctx, "subscription.created", map[string]interface{}{
		"user_id":     caller.UserID,
		"library_id":  in.LibraryID,
		"booking_ids": ids,
	})
	return ids, nil
}
