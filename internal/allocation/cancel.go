package allocation

import (
	"context"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
)

// CancelBooking reverses an allocation: every date the booking covers is
// released from the availability store in one batch, then the ledger entry
// flips to cancelled. Freed seats are not reassigned here; the waiting list
// dispatcher acts only on checkout events.
func (e *Engine) CancelBooking(ctx context.Context, caller domain.Identity, bookingID string) error {
	if caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if bookingID == "" {
		return errors.Wrap(domain.ErrInvalidArgument, "booking id required")
	}

	booking, err := e.ledger.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != caller.UserID {
		return errors.Wrap(domain.ErrPermissionDenied, "booking belongs to another user")
	}
	if booking.Status != domain.BookingConfirmed {
		return errors.Wrapf(domain.ErrFailedPrecondition, "booking is %s", booking.Status)
	}

	dates, err := booking.Dates()
	if err != nil {
		return err
	}
	if err := e.avail.Release(ctx, booking, dates); err != nil {
		return err
	}

	if err := e.ledger.SetStatus(ctx, bookingID, domain.BookingCancelled); err != nil {
		// Seats are already freed; the ledger still says confirmed. Surface
		// the error, the caller may retry the cancellation.
		e.logger.WithError(err).WithField("booking_id", bookingID).
			Warn("availability released but ledger status update failed")
		return err
	}

	observability.AllocationsTotal.WithLabelValues("cancel", "cancelled").Inc()
	e.record(ctx, "booking.cancelled", caller.UserID, map[string]interface{}{
		"booking_id": bookingID,
		"library_id": booking.LibraryID,
		"seat_id":    booking.SeatID,
	})
	e.publish(ctx, "booking.cancelled", map[string]interface{}{
		"booking_id": bookingID,
		"user_id":    caller.UserID,
		"library_id": booking.LibraryID,
	})
	return nil
}
