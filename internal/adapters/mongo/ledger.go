package mongo

import (
	"context"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// LedgerRepository is the durable booking record store. Documents key on the
// pre-generated booking id, which makes the confirmation phase idempotent: a
// retried insert for the same id is a duplicate-key error, not a second row.
type LedgerRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewLedgerRepository(db *mongo.Database, logger observability.Logger) *LedgerRepository {
	return &LedgerRepository{
		coll:   db.Collection("bookings"),
		logger: logger,
	}
}

type BookingDoc struct {
	ID                  string    `bson:"_id"`
	UserID              string    `bson:"user_id"`
	LibraryID           string    `bson:"library_id"`
	SeatID              string    `bson:"seat_id,omitempty"`
	SeatNumber          string    `bson:"seat_number,omitempty"`
	SlotTypeID          string    `bson:"slot_type_id"`
	BookingDate         string    `bson:"booking_date,omitempty"`
	StartDate           string    `bson:"start_date,omitempty"`
	EndDate             string    `bson:"end_date,omitempty"`
	Status              string    `bson:"status"`
	SourceApplicationID string    `bson:"source_application_id,omitempty"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

func (l *LedgerRepository) Insert(ctx context.Context, b *domain.Booking) error {
	_, err := l.coll.InsertOne(ctx, docFromBooking(b))
	if err != nil {
		l.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to insert booking")
	}
	return err
}

// InsertAll commits a batch of bookings as one all-or-nothing write through a
// session transaction.
func (l *LedgerRepository) InsertAll(ctx context.Context, bookings []*domain.Booking) error {
	docs := make([]interface{}, 0, len(bookings))
	for _, b := range bookings {
		docs = append(docs, docFromBooking(b))
	}

	sess, err := l.coll.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return l.coll.InsertMany(sc, docs)
	})
	if err != nil {
		l.logger.WithError(err).Error("failed to commit booking batch")
	}
	return err
}

func (l *LedgerRepository) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var doc BookingDoc
	err := l.coll.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", bookingID)
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (l *LedgerRepository) SetStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	res, err := l.coll.UpdateOne(ctx,
		bson.M{"_id": bookingID},
		bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		l.logger.WithError(err).WithField("booking_id", bookingID).Error("failed to update booking status")
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", bookingID)
	}
	return nil
}

func (l *LedgerRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error) {
	cur, err := l.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Booking
	for cur.Next(ctx) {
		var doc BookingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

func docFromBooking(b *domain.Booking) BookingDoc {
	return BookingDoc{
		ID:                  b.ID,
		UserID:              b.UserID,
		LibraryID:           b.LibraryID,
		SeatID:              b.SeatID,
		SeatNumber:          b.SeatNumber,
		SlotTypeID:          b.SlotTypeID,
		BookingDate:         b.BookingDate,
		StartDate:           b.StartDate,
		EndDate:             b.EndDate,
		Status:              string(b.Status),
		SourceApplicationID: b.SourceApplicationID,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func (d *BookingDoc) toDomain() *domain.Booking {
	return &domain.Booking{
		ID:                  d.ID,
		UserID:              d.UserID,
		LibraryID:           d.LibraryID,
		SeatID:              d.SeatID,
		SeatNumber:          d.SeatNumber,
		SlotTypeID:          d.SlotTypeID,
		BookingDate:         d.BookingDate,
		StartDate:           d.StartDate,
		EndDate:             d.EndDate,
		Status:              domain.BookingStatus(d.Status),
		SourceApplicationID: d.SourceApplicationID,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}
