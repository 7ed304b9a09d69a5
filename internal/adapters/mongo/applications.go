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

type ApplicationRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewApplicationRepository(db *mongo.Database, logger observability.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		coll:   db.Collection("applications"),
		logger: logger,
	}
}

type ApplicationDoc struct {
	ID         string    `bson:"_id"`
	StudentID  string    `bson:"student_id"`
	LibraryID  string    `bson:"library_id"`
	Status     string    `bson:"status"`
	StartDate  string    `bson:"start_date"`
	EndDate    string    `bson:"end_date"`
	SlotTypeID string    `bson:"slot_type_id"`
	SeatID     string    `bson:"seat_id,omitempty"`
	SeatNumber string    `bson:"seat_number,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (a *ApplicationRepository) Get(ctx context.Context, applicationID string) (*domain.Application, error) {
	var doc ApplicationDoc
	err := a.coll.FindOne(ctx, bson.M{"_id": applicationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(domain.ErrNotFound, "application %s", applicationID)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Application{
		ID:        doc.ID,
		StudentID: doc.StudentID,
		LibraryID: doc.LibraryID,
		Status:    domain.ApplicationStatus(doc.Status),
		Plan: domain.Plan{
			StartDate:  doc.StartDate,
			EndDate:    doc.EndDate,
			SlotTypeID: doc.SlotTypeID,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// MarkApproved records the allocated seat on the application and flips its
// status, ending the approval flow.
func (a *ApplicationRepository) MarkApproved(ctx context.Context, applicationID, seatID, seatNumber string) error {
	res, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": applicationID},
		bson.M{"$set": bson.M{
			"status":      string(domain.ApplicationApproved),
			"seat_id":     seatID,
			"seat_number": seatNumber,
			"updated_at":  time.Now().UTC(),
		}},
	)
	if err != nil {
		a.logger.WithError(err).WithField("application_id", applicationID).Error("failed to mark application approved")
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "application %s", applicationID)
	}
	return nil
}
