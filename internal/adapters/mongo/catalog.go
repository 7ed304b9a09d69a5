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

// CatalogRepository serves the per-library seat/slot/pricing configuration.
// The engine treats these documents as a read-only snapshot per request;
// manager CRUD on them lives in a separate admin surface.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("libraries"),
		logger: logger,
	}
}

type LibraryDoc struct {
	ID        string        `bson:"_id"`
	Name      string        `bson:"name"`
	Seats     []SeatDoc     `bson:"seats"`
	SlotTypes []SlotTypeDoc `bson:"slot_types"`
	Pricing   []PricingDoc  `bson:"pricing"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type SeatDoc struct {
	ID         string `bson:"id"`
	SeatNumber string `bson:"seat_number"`
	IsAC       bool   `bson:"is_ac"`
	HasPower   bool   `bson:"has_power"`
	Status     string `bson:"status"`
}

type SlotTypeDoc struct {
	ID           string `bson:"id"`
	StartTime    string `bson:"start_time"`
	EndTime      string `bson:"end_time"`
	DurationType string `bson:"duration_type"`
	IsPeak       bool   `bson:"is_peak"`
}

type PricingDoc struct {
	DurationType string  `bson:"duration_type"`
	SeatCategory string  `bson:"seat_category"`
	BasePrice    float64 `bson:"base_price"`
}

func (c *CatalogRepository) GetLibrary(ctx context.Context, libraryID string) (*domain.LibraryConfig, error) {
	var doc LibraryDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": libraryID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(domain.ErrNotFound, "library %s", libraryID)
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to load library config")
		return nil, err
	}
	return doc.toDomain(), nil
}

func (c *CatalogRepository) UpsertLibrary(ctx context.Context, cfg *domain.LibraryConfig) error {
	doc := docFromLibrary(cfg)
	doc.UpdatedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	opts := options.Replace().SetUpsert(true)
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		c.logger.WithError(err).Error("failed to upsert library config")
	}
	return err
}

func docFromLibrary(cfg *domain.LibraryConfig) LibraryDoc {
	doc := LibraryDoc{ID: cfg.ID, Name: cfg.Name}
	for _, s := range cfg.Seats {
		doc.Seats = append(doc.Seats, SeatDoc{
			ID:         s.ID,
			SeatNumber: s.SeatNumber,
			IsAC:       s.IsAC,
			HasPower:   s.HasPower,
			Status:     string(s.Status),
		})
	}
	for _, st := range cfg.SlotTypes {
		doc.SlotTypes = append(doc.SlotTypes, SlotTypeDoc{
			ID:           st.ID,
			StartTime:    st.StartTime,
			EndTime:      st.EndTime,
			DurationType: string(st.DurationType),
			IsPeak:       st.IsPeak,
		})
	}
	for _, p := range cfg.Pricing {
		doc.Pricing = append(doc.Pricing, PricingDoc{
			DurationType: string(p.DurationType),
			SeatCategory: string(p.SeatCategory),
			BasePrice:    p.BasePrice,
		})
	}
	return doc
}

func (d *LibraryDoc) toDomain() *domain.LibraryConfig {
	cfg := &domain.LibraryConfig{ID: d.ID, Name: d.Name}
	for _, s := range d.Seats {
		cfg.Seats = append(cfg.Seats, domain.Seat{
			ID:         s.ID,
			SeatNumber: s.SeatNumber,
			IsAC:       s.IsAC,
			HasPower:   s.HasPower,
			Status:     domain.SeatStatus(s.Status),
		})
	}
	for _, st := range d.SlotTypes {
		cfg.SlotTypes = append(cfg.SlotTypes, domain.SlotType{
			ID:           st.ID,
			StartTime:    st.StartTime,
			EndTime:      st.EndTime,
			DurationType: domain.DurationType(st.DurationType),
			IsPeak:       st.IsPeak,
		})
	}
	for _, p := range d.Pricing {
		cfg.Pricing = append(cfg.Pricing, domain.Pricing{
			DurationType: domain.DurationType(p.DurationType),
			SeatCategory: domain.SeatCategory(p.SeatCategory),
			BasePrice:    p.BasePrice,
		})
	}
	return cfg
}
