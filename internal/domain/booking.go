package domain

import "time"

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingAbsent    BookingStatus = "absent"
)

// Booking is the durable ledger record for one allocated day (or one day of a
// subscription range). Its ID is minted before the availability store is
// touched and is the value stored in the seat map, so the two stores can be
// joined by ID alone.
type Booking struct {
	ID                  string
	UserID              string
	LibraryID           string
	SeatID              string
	SeatNumber          string
	SlotTypeID          string
	BookingDate         string
	StartDate           string
	EndDate             string
	Status              BookingStatus
	SourceApplicationID string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Dates returns every calendar day the booking occupies. Range bookings
// enumerate StartDate..EndDate inclusive; single-day bookings return just
// BookingDate.
func (b *Booking) Dates() ([]string, error) {
	if b.StartDate != "" && b.EndDate != "" {
		return EnumerateDates(b.StartDate, b.EndDate)
	}
	return []string{b.BookingDate}, nil
}

func (b *Booking) IsRange() bool {
	return b.StartDate != "" && b.EndDate != ""
}
