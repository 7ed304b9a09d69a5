package mongo

import (
	"context"
	"time"

	"github.com/Unify-India/ekaant-sub000/internal/domain"
	"github.com/Unify-India/ekaant-sub000/internal/observability"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type WaitlistRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewWaitlistRepository(db *mongo.Database, logger observability.Logger) *WaitlistRepository {
	return &WaitlistRepository{
		coll:   db.Collection("waitlist"),
		logger: logger,
	}
}

type WaitlistDoc struct {
	ID        string    `bson:"_id"`
	StudentID string    `bson:"student_id"`
	LibraryID string    `bson:"library_id"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

// OldestActive returns the FIFO head of a library's waiting list, or nil when
// nobody is waiting.
func (w *WaitlistRepository) OldestActive(ctx context.Context, libraryID string) (*domain.WaitingListEntry, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	var doc WaitlistDoc
	err := w.coll.FindOne(ctx, bson.M{
		"library_id": libraryID,
		"status":     string(domain.WaitlistActive),
	}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// MarkOffered promotes an entry to offered with the given expiry. The status
// filter guards against promoting an entry some other dispatcher already took.
func (w *WaitlistRepository) MarkOffered(ctx context.Context, entryID string, expiresAt time.Time) error {
	res, err := w.coll.UpdateOne(ctx,
		bson.M{"_id": entryID, "status": string(domain.WaitlistActive)},
		bson.M{"$set": bson.M{"status": string(domain.WaitlistOffered), "expires_at": expiresAt}},
	)
	if err != nil {
		w.logger.WithError(err).WithField("entry_id", entryID).Error("failed to mark waitlist entry offered")
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrFailedPrecondition, "waitlist entry %s no longer active", entryID)
	}
	return nil
}

// ExpireOverdue reclaims offered entries whose window has closed and returns
// the ids it touched.
func (w *WaitlistRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]string, error) {
	cur, err := w.coll.Find(ctx, bson.M{
		"status":     string(domain.WaitlistOffered),
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc WaitlistDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = w.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": string(domain.WaitlistOffered)},
		bson.M{"$set": bson.M{"status": string(domain.WaitlistExpired)}},
	)
	if err != nil {
		w.logger.WithError(err).Error("failed to expire waitlist offers")
		return nil, err
	}
	return ids, nil
}

func (d *WaitlistDoc) toDomain() *domain.WaitingListEntry {
	return &domain.WaitingListEntry{
		ID:        d.ID,
		StudentID: d.StudentID,
		LibraryID: d.LibraryID,
		Status:    domain.WaitlistStatus(d.Status),
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
	}
}
