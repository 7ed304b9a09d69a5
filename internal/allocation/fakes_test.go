package allocation

import (
	"context"
	"sync"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
)

// fakeCatalog serves a single fixed library.
type fakeCatalog struct {
	lib *domain.LibraryConfig
}

func (f *fakeCatalog) GetLibrary(_ context.Context, libraryID string) (*domain.LibraryConfig, error) {
	if f.lib == nil || f.lib.ID != libraryID {
		return nil, errors.Wrapf(domain.ErrNotFound, "library %s", libraryID)
	}
	cp := *f.lib
	return &cp, nil
}

func (f *fakeCatalog) UpsertLibrary(_ context.Context, cfg *domain.LibraryConfig) error {
	cp := *cfg
	f.lib = &cp
	return nil
}

type availRecord struct {
	total int
	seats map[string]string // seat id -> booking id
}

// fakeAvail is an in-memory availability store with the same atomicity
// contract as the real one: AllocateSeat is a single locked read-modify-write,
// IncrementBooked bumps one counter, CommitAssignments is all-or-nothing.
type fakeAvail struct {
	mu      sync.Mutex
	records map[domain.SlotKey]*availRecord

	allocateErr error
	releaseErr  error

	// forgetCommit makes AllocateSeat report a seat without recording it,
	// simulating a store whose committed state disagrees with its answer.
	forgetCommit bool
}

func newFakeAvail() *fakeAvail {
	return &fakeAvail{records: make(map[domain.SlotKey]*availRecord)}
}

func (f *fakeAvail) rec(key domain.SlotKey) *availRecord {
	r, ok := f.records[key]
	if !ok {
		r = &availRecord{seats: make(map[string]string)}
		f.records[key] = r
	}
	return r
}

func (f *fakeAvail) AllocateSeat(_ context.Context, key domain.SlotKey, eligible []domain.Seat, bookingID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allocateErr != nil {
		return "", f.allocateErr
	}
	r := f.rec(key)
	if r.total >= len(eligible) {
		return "", domain.ErrUnavailable
	}
	for _, s := range eligible {
		if _, taken := r.seats[s.ID]; taken {
			continue
		}
		if !f.forgetCommit {
			r.seats[s.ID] = bookingID
			r.total++
		}
		return s.ID, nil
	}
	return "", domain.ErrUnavailable
}

func (f *fakeAvail) OccupiedSeats(_ context.Context, key domain.SlotKey) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	if r, ok := f.records[key]; ok {
		for k, v := range r.seats {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeAvail) BookedCount(_ context.Context, key domain.SlotKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[key]; ok {
		return r.total, nil
	}
	return 0, nil
}

func (f *fakeAvail) BookedCounts(_ context.Context, libraryID, date string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for key, r := range f.records {
		if key.LibraryID == libraryID && key.Date == date {
			out[key.SlotTypeID] = r.total
		}
	}
	return out, nil
}

func (f *fakeAvail) IncrementBooked(_ context.Context, key domain.SlotKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rec(key).total++
	return nil
}

func (f *fakeAvail) Release(_ context.Context, b *domain.Booking, dates []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	for _, date := range dates {
		key := domain.SlotKey{LibraryID: b.LibraryID, Date: date, SlotTypeID: b.SlotTypeID}
		r, ok := f.records[key]
		if !ok {
			continue
		}
		if b.SeatID != "" {
			if _, held := r.seats[b.SeatID]; !held {
				continue
			}
			delete(r.seats, b.SeatID)
		}
		if r.total > 0 {
			r.total--
		}
	}
	return nil
}

func (f *fakeAvail) SeatOccupiedDates(_ context.Context, libraryID, slotTypeID, seatID string, dates []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, date := range dates {
		key := domain.SlotKey{LibraryID: libraryID, Date: date, SlotTypeID: slotTypeID}
		if r, ok := f.records[key]; ok {
			if _, held := r.seats[seatID]; held {
				out = append(out, date)
			}
		}
	}
	return out, nil
}

func (f *fakeAvail) OccupancyByDate(_ context.Context, libraryID, slotTypeID string, dates []string) (map[string]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]string)
	for _, date := range dates {
		key := domain.SlotKey{LibraryID: libraryID, Date: date, SlotTypeID: slotTypeID}
		r, ok := f.records[key]
		if !ok || len(r.seats) == 0 {
			continue
		}
		seats := make(map[string]string, len(r.seats))
		for k, v := range r.seats {
			seats[k] = v
		}
		out[date] = seats
	}
	return out, nil
}

func (f *fakeAvail) CommitAssignments(_ context.Context, assignments []domain.SeatAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assignments {
		if _, held := f.rec(a.Key).seats[a.SeatID]; held {
			return errors.Wrapf(domain.ErrUnavailable, "seat %s already held on %s", a.SeatID, a.Key.Date)
		}
	}
	for _, a := range assignments {
		r := f.rec(a.Key)
		r.seats[a.SeatID] = a.BookingID
		r.total++
	}
	return nil
}

// fakeLedger stores bookings by id.
type fakeLedger struct {
	mu           sync.Mutex
	docs         map[string]*domain.Booking
	insertErr    error
	insertAllErr error
	setStatusErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{docs: make(map[string]*domain.Booking)}
}

func (f *fakeLedger) Insert(_ context.Context, b *domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *b
	f.docs[b.ID] = &cp
	return nil
}

func (f *fakeLedger) InsertAll(_ context.Context, bookings []*domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertAllErr != nil {
		return f.insertAllErr
	}
	for _, b := range bookings {
		cp := *b
		f.docs[b.ID] = &cp
	}
	return nil
}

func (f *fakeLedger) Get(_ context.Context, bookingID string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.docs[bookingID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", bookingID)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeLedger) SetStatus(_ context.Context, bookingID string, status domain.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setStatusErr != nil {
		return f.setStatusErr
	}
	b, ok := f.docs[bookingID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", bookingID)
	}
	b.Status = status
	return nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID string) ([]*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Booking
	for _, b := range f.docs {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// fakeApps holds applications and records approvals.
type fakeApps struct {
	mu       sync.Mutex
	apps     map[string]*domain.Application
	approved map[string]string // application id -> seat id
}

func newFakeApps(apps ...*domain.Application) *fakeApps {
	f := &fakeApps{apps: make(map[string]*domain.Application), approved: make(map[string]string)}
	for _, a := range apps {
		f.apps[a.ID] = a
	}
	return f
}

func (f *fakeApps) Get(_ context.Context, applicationID string) (*domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[applicationID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "application %s", applicationID)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApps) MarkApproved(_ context.Context, applicationID, seatID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[applicationID]
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "application %s", applicationID)
	}
	a.Status = domain.ApplicationApproved
	f.approved[applicationID] = seatID
	return nil
}

// capturedEvents collects published routing keys for assertions.
type capturedEvents struct {
	mu   sync.Mutex
	keys []string
}

func (c *capturedEvents) PublishJSON(_ context.Context, key string, _ interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	return nil
}

func (c *capturedEvents) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}

func testLibrary() *domain.LibraryConfig {
	return &domain.LibraryConfig{
		ID:   "lib-1",
		Name: "Central Reading Hall",
		Seats: []domain.Seat{
			{ID: "seat-a", SeatNumber: "A1", IsAC: true, Status: domain.SeatActive},
			{ID: "seat-b", SeatNumber: "A2", IsAC: true, Status: domain.SeatActive},
			{ID: "seat-c", SeatNumber: "B1", IsAC: false, Status: domain.SeatActive},
			{ID: "seat-d", SeatNumber: "B2", IsAC: true, Status: domain.SeatMaintenance},
		},
		SlotTypes: []domain.SlotType{
			{ID: "slot-m", StartTime: "08:00", EndTime: "12:00", DurationType: domain.Duration4h},
			{ID: "slot-f", StartTime: "08:00", EndTime: "20:00", DurationType: domain.Duration12h, IsPeak: true},
		},
		Pricing: []domain.Pricing{
			{DurationType: domain.Duration4h, SeatCategory: domain.CategoryAC, BasePrice: 120},
			{DurationType: domain.Duration4h, SeatCategory: domain.CategoryNonAC, BasePrice: 80},
			{DurationType: domain.Duration12h, SeatCategory: domain.CategoryAC, BasePrice: 300},
		},
	}
}

type engineFixture struct {
	engine *Engine
	avail  *fakeAvail
	ledger *fakeLedger
	apps   *fakeApps
	events *capturedEvents
}

func newEngineFixture(apps ...*domain.Application) *engineFixture {
	f := &engineFixture{
		avail:  newFakeAvail(),
		ledger: newFakeLedger(),
		apps:   newFakeApps(apps...),
		events: &capturedEvents{},
	}
	f.engine = NewEngine(&fakeCatalog{lib: testLibrary()}, f.avail, f.ledger, f.apps, f.events, nil, observability.NewLogger())
	return f
}
