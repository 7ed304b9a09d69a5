package domain

type SeatStatus string

const (
	SeatActive      SeatStatus = "active"
	SeatMaintenance SeatStatus = "maintenance"
	SeatDisabled    SeatStatus = "disabled"
)

type SeatCategory string

const (
	CategoryAC    SeatCategory = "AC"
	CategoryNonAC SeatCategory = "NON_AC"
)

type Seat struct {
	ID         string
	SeatNumber string
	IsAC       bool
	HasPower   bool
	Status     SeatStatus
}

type DurationType string

const (
	Duration4h  DurationType = "4h"
	Duration6h  DurationType = "6h"
	Duration12h DurationType = "12h"
)

type SlotType struct {
	ID           string
	StartTime    string
	EndTime      string
	DurationType DurationType
	IsPeak       bool
}

type Pricing struct {
	DurationType DurationType
	SeatCategory SeatCategory
	BasePrice    float64
}

type LibraryConfig struct {
	ID        string
	Name      string
	Seats     []Seat
	SlotTypes []SlotType
	Pricing   []Pricing
}

func (l *LibraryConfig) SlotType(id string) (SlotType, bool) {
	for _, st := range l.SlotTypes {
		if st.ID == id {
			return st, true
		}
	}
	return SlotType{}, false
}

// PriceFor looks up the base price for a duration/category pair. Zero when
// no pricing row is configured; pricing annotates availability responses and
// never affects allocation.
func (l *LibraryConfig) PriceFor(dt DurationType, cat SeatCategory) float64 {
	for _, p := range l.Pricing {
		if p.DurationType == dt && p.SeatCategory == cat {
			return p.BasePrice
		}
	}
	return 0
}

type SeatRequirements struct {
	IsAC bool
}

// Category maps the requirements to the pricing category they select.
func (r SeatRequirements) Category() SeatCategory {
	if r.IsAC {
		return CategoryAC
	}
	return CategoryNonAC
}

// EligibleSeats filters the catalog to seats a request may claim, preserving
// catalog order. Allocation is first-fit over this slice, so the ordering is
// what makes seat selection deterministic.
func EligibleSeats(seats []Seat, req SeatRequirements) []Seat {
	var out []Seat
	for _, s := range seats {
		if s.Status == SeatActive && s.IsAC == req.IsAC {
			out = append(out, s)
		}
	}
	return out
}

// SlotKey addresses one availability record: one library, one calendar day,
// one time slot.
type SlotKey struct {
	LibraryID  string
	Date       string
	SlotTypeID string
}

// SeatAssignment is one staged seat-to-booking binding for a slot key. The
// manager approval path stages one per day of the requested range and commits
// them as a single batch.
type SeatAssignment struct {
	Key       SlotKey
	SeatID    string
	BookingID string
}
