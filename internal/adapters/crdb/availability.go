package crdb

import (
	"context"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// AllocateSeat atomically claims the first eligible seat that is free for the
// given key and tags it with bookingID. It aborts with ErrUnavailable when
// total_booked has already reached the eligible-seat cap, or when every
// eligible seat id is taken. No partial state survives an abort.
func (s *Store) AllocateSeat(ctx context.Context, key domain.SlotKey, eligible []domain.Seat, bookingID string) (string, error) {
	var seatID string
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		seatID = ""
		var total int
		err := tx.QueryRow(ctx, `
			SELECT total_booked FROM availability
			WHERE library_id = $1 AND slot_date = $2 AND slot_type_id = $3
		`, key.LibraryID, key.Date, key.SlotTypeID).Scan(&total)
		if errors.Is(err, pgx.ErrNoRows) {
			total = 0
		} else if err != nil {
			return err
		}
		if total >= len(eligible) {
			return errors.Wrapf(domain.ErrUnavailable, "slot fully booked (%d/%d)", total, len(eligible))
		}

		occupied, err := occupiedTx(ctx, tx, key)
		if err != nil {
			return err
		}
		for _, seat := range eligible {
			if _, taken := occupied[seat.ID]; !taken {
				seatID = seat.ID
				break
			}
		}
		if seatID == "" {
			return errors.Wrap(domain.ErrUnavailable, "no eligible seat free")
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_seats (library_id, slot_date, slot_type_id, seat_id, booking_id)
			VALUES ($1, $2, $3, $4, $5)
		`, key.LibraryID, key.Date, key.SlotTypeID, seatID, bookingID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO availability (library_id, slot_date, slot_type_id, total_booked)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (library_id, slot_date, slot_type_id)
			DO UPDATE SET total_booked = availability.total_booked + 1
		`, key.LibraryID, key.Date, key.SlotTypeID)
		return err
	})
	if err != nil {
		return "", err
	}
	return seatID, nil
}

func occupiedTx(ctx context.Context, tx pgx.Tx, key domain.SlotKey) (map[string]string, error) {
	rows, err := tx.Query(ctx, `
		SELECT seat_id, booking_id FROM availability_seats
		WHERE library_id = $1 AND slot_date = $2 AND slot_type_id = $3
	`, key.LibraryID, key.Date, key.SlotTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make(map[string]string)
	for rows.Next() {
		var seatID, bookingID string
		if err := rows.Scan(&seatID, &bookingID); err != nil {
			return nil, err
		}
		seats[seatID] = bookingID
	}
	return seats, rows.Err()
}

// OccupiedSeats returns the committed seat-to-booking map for a key.
func (s *Store) OccupiedSeats(ctx context.Context, key domain.SlotKey) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seat_id, booking_id FROM availability_seats
		WHERE library_id = $1 AND slot_date = $2 AND slot_type_id = $3
	`, key.LibraryID, key.Date, key.SlotTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make(map[string]string)
	for rows.Next() {
		var seatID, bookingID string
		if err := rows.Scan(&seatID, &bookingID); err != nil {
			return nil, err
		}
		seats[seatID] = bookingID
	}
	return seats, rows.Err()
}

// BookedCount reads the booked counter for a key; a missing record is zero.
func (s *Store) BookedCount(ctx context.Context, key domain.SlotKey) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT total_booked FROM availability
		WHERE library_id = $1 AND slot_date = $2 AND slot_type_id = $3
	`, key.LibraryID, key.Date, key.SlotTypeID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return total, nil
}

// BookedCounts returns the booked counter per slot type for one library/date.
func (s *Store) BookedCounts(ctx context.Context, libraryID, date string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot_type_id, total_booked FROM availability
		WHERE library_id = $1 AND slot_date = $2
	`, libraryID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slotTypeID string
		var total int
		if err := rows.Scan(&slotTypeID, &total); err != nil {
			return nil, err
		}
		counts[slotTypeID] = total
	}
	return counts, rows.Err()
}

// IncrementBooked bumps the booked counter for a key by one. The upsert is a
// single statement, so the increment is atomic at the counter level; callers
// looping over a date range get no batch-wide atomicity from it.
func (s *Store) IncrementBooked(ctx context.Context, key domain.SlotKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO availability (library_id, slot_date, slot_type_id, total_booked)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (library_id, slot_date, slot_type_id)
		DO UPDATE SET total_booked = availability.total_booked + 1
	`, key.LibraryID, key.Date, key.SlotTypeID)
	return err
}

// Release frees everything a booking holds across the given dates in one
// transaction. Seat-backed bookings drop their seat row and decrement the
// counter only where a row was actually deleted; count-only range bookings
// just decrement. Counters clamp at zero.
func (s *Store) Release(ctx context.Context, b *domain.Booking, dates []string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, date := range dates {
			if b.SeatID != "" {
				res, err := tx.Exec(ctx, `
					DELETE FROM availability_seats
					WHERE library_id = $1 AND slot_date = $2 AND slot_type_id = $3
					  AND seat_id = $4 AND booking_id = $5
				`, b.LibraryID, date, b.SlotTypeID, b.SeatID, b.ID)
				if err != nil {
					return err
				}
				if res.RowsAffected() == 0 {
					continue
				}
			}
			if _, err := tx.Exec(ctx, `
				UPDATE availability SET total_booked = GREATEST(total_booked - 1, 0)
				WHERE library_id = $1 AND slot_date = $2 AND slot_type_id = $3
			`, b.LibraryID, date, b.SlotTypeID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeatOccupiedDates returns, sorted, the subset of dates on which the seat
// already carries a booking for the slot.
func (s *Store) SeatOccupiedDates(ctx context.Context, libraryID, slotTypeID, seatID string, dates []string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot_date FROM availability_seats
		WHERE library_id = $1 AND slot_type_id = $2 AND seat_id = $3 AND slot_date = ANY($4)
		ORDER BY slot_date
	`, libraryID, slotTypeID, seatID, dates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occupied []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		occupied = append(occupied, date)
	}
	return occupied, rows.Err()
}

// OccupancyByDate returns the full seat-occupancy map per date for one
// library/slot, feeding the auto-allot reverse index.
func (s *Store) OccupancyByDate(ctx context.Context, libraryID, slotTypeID string, dates []string) (map[string]map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slot_date, seat_id, booking_id FROM availability_seats
		WHERE library_id = $1 AND slot_type_id = $2 AND slot_date = ANY($3)
	`, libraryID, slotTypeID, dates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDate := make(map[string]map[string]string)
	for rows.Next() {
		var date, seatID, bookingID string
		if err := rows.Scan(&date, &seatID, &bookingID); err != nil {
			return nil, err
		}
		if byDate[date] == nil {
			byDate[date] = make(map[string]string)
		}
		byDate[date][seatID] = bookingID
	}
	return byDate, rows.Err()
}

// CommitAssignments applies a staged batch of seat assignments as one
// transaction: every seat row plus its counter bump lands together or not at
// all. Used by the manager approval path after its conflict checks pass.
func (s *Store) CommitAssignments(ctx context.Context, assignments []domain.SeatAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, a := range assignments {
			if _, err := tx.Exec(ctx, `
				INSERT INTO availability_seats (library_id, slot_date, slot_type_id, seat_id, booking_id)
				VALUES ($1, $2, $3, $4, $5)
			`, a.Key.LibraryID, a.Key.Date, a.Key.SlotTypeID, a.SeatID, a.BookingID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO availability (library_id, slot_date, slot_type_id, total_booked)
				VALUES ($1, $2, $3, 1)
				ON CONFLICT (library_id, slot_date, slot_type_id)
				DO UPDATE SET total_booked = availability.total_booked + 1
			`, a.Key.LibraryID, a.Key.Date, a.Key.SlotTypeID); err != nil {
				return err
			}
		}
		return nil
	})
}
