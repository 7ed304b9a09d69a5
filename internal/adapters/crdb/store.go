package crdb

import (
	"context"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serializationFailureCode = "40001"
	txMaxAttempts            = 5
)

// Schema holds the DDL for the availability store. Both tables key on
// (library, date, slot); availability carries the booked counter,
// availability_seats the seat-to-booking map.
const Schema = `
CREATE TABLE IF NOT EXISTS availability (
	library_id   TEXT NOT NULL,
	slot_date    TEXT NOT NULL,
	slot_type_id TEXT NOT NULL,
	total_booked INT  NOT NULL DEFAULT 0,
	PRIMARY KEY (library_id, slot_date, slot_type_id)
);
CREATE TABLE IF NOT EXISTS availability_seats (
	library_id   TEXT NOT NULL,
	slot_date    TEXT NOT NULL,
	slot_type_id TEXT NOT NULL,
	seat_id      TEXT NOT NULL,
	booking_id   TEXT NOT NULL,
	PRIMARY KEY (library_id, slot_date, slot_type_id, seat_id)
);
`

// Store is the availability store. Every read-modify-write runs in a
// SERIALIZABLE transaction and serialization conflicts are retried here, so
// callers only ever see success, ErrUnavailable, or a real failure.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.AvailabilityTxDuration.Observe(time.Since(start).Seconds())
	}()

	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrSerializationFailure) {
			observability.AvailabilityTxRetries.Inc()
			continue
		}
		return err
	}
	// Still losing after txMaxAttempts means sustained contention on this
	// key; surface it as a retryable-by-caller condition.
	return errors.Wrap(domain.ErrUnavailable, "availability transaction retries exhausted")
}

func (s *Store) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapSerialization(err)
	}
	return mapSerialization(tx.Commit(ctx))
}

func mapSerialization(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
		return domain.ErrSerializationFailure
	}
	return err
}
