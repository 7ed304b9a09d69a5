package waitlist

import (
	"context"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
)

// Store is the waiting-list persistence the dispatcher needs.
type Store interface {
	OldestActive(ctx context.Context, libraryID string) (*domain.WaitingListEntry, error)
	MarkOffered(ctx context.Context, entryID string, expiresAt time.Time) error
}

// Events publishes the offer trigger point.
type Events interface {
	PublishJSON(ctx context.Context, key string, payload interface{}) error
}

// OccupancySnapshot is the attendance record state before or after the
// triggering update.
type OccupancySnapshot struct {
	CheckedOutAt string `json:"checked_out_at,omitempty"`
}

// CheckoutEvent is the before/after pair delivered when an occupancy session
// record is updated. The dispatcher only cares about the transition where a
// checkout time first appears.
type CheckoutEvent struct {
	LibraryID string            `json:"library_id"`
	SessionID string            `json:"session_id"`
	Before    OccupancySnapshot `json:"before"`
	After     OccupancySnapshot `json:"after"`
}

// IsCheckout reports whether the update newly populated the checkout time.
func (ev CheckoutEvent) IsCheckout() bool {
	return ev.Before.CheckedOutAt == "" && ev.After.CheckedOutAt != ""
}

// Dispatcher promotes the head of a library's waiting list when a seat
// session ends. It never allocates a seat itself; it only opens an offer
// window for the normal allocation flow to act on.
type Dispatcher struct {
	store  Store
	events Events
	logger observability.Logger
	offer  time.Duration
	now    func() time.Time
}

func NewDispatcher(store Store, events Events, logger observability.Logger, offerTTL time.Duration) *Dispatcher {
	if offerTTL == 0 {
		offerTTL = domain.OfferWindow
	}
	return &Dispatcher{
		store:  store,
		events: events,
		logger: logger,
		offer:  offerTTL,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HandleCheckout runs the promotion for one attendance update. This is a
// best-effort convenience feature, so malformed events are logged and
// dropped rather than failing the consumer.
func (d *Dispatcher) HandleCheckout(ctx context.Context, ev CheckoutEvent) error {
	if !ev.IsCheckout() {
		return nil
	}
	if ev.LibraryID == "" {
		d.logger.WithField("session_id", ev.SessionID).Error("checkout event missing library id")
		return nil
	}

	entry, err := d.store.OldestActive(ctx, ev.LibraryID)
	if err != nil {
		return err
	}
	if entry == nil {
		d.logger.WithField("library_id", ev.LibraryID).Info("checkout with empty waiting list")
		return nil
	}

	expiresAt := d.now().Add(d.offer)
	if err := d.store.MarkOffered(ctx, entry.ID, expiresAt); err != nil {
		return err
	}

	observability.WaitlistPromotions.Inc()
	d.logger.WithField("library_id", ev.LibraryID).
		WithField("entry_id", entry.ID).
		Info("waitlist entry offered")
	if d.events != nil {
		if err := d.events.PublishJSON(ctx, "waitlist.offered", map[string]interface{}{
			"entry_id":   entry.ID,
			"student_id": entry.StudentID,
			"library_id": entry.LibraryID,
			"expires_at": expiresAt.Format(time.RFC3339),
		}); err != nil {
			d.logger.WithError(err).Warn("waitlist offer event publish failed")
		}
	}
	return nil
}
