package domain

import "time"

type WaitlistStatus string

const (
	WaitlistActive    WaitlistStatus = "active"
	WaitlistOffered   WaitlistStatus = "offered"
	WaitlistExpired   WaitlistStatus = "expired"
	WaitlistConverted WaitlistStatus = "converted"
)

// OfferWindow is how long a promoted waiting-list entry holds its offer
// before the expiry sweep reclaims it.
const OfferWindow = 30 * time.Minute

type WaitingListEntry struct {
	ID        string
	StudentID string
	LibraryID string
	Status    WaitlistStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}
