package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/bus-reservations-and-sales/internal/domain"
	"github.com/robertarktes/bus-reservations-and-sales/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TripCatalog is the read-only trip reference data. Reservations point into it
// but never mutate it.
type TripCatalog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewTripCatalog(db *mongo.Database, logger observability.Logger) *TripCatalog {
	return &TripCatalog{
		coll:   db.Collection("trips"),
		logger: logger,
	}
}

// TripDoc keeps date and time as plain strings ("2006-01-02", "15:04:05") so
// they cross the wire without any timezone interpretation.
type TripDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Origin      string    `bson:"origin"`
	Destination string    `bson:"destination"`
	Date        string    `bson:"date"`
	Time        string    `bson:"time"`
	UnitPrice   float64   `bson:"unit_price"`
	Carrier     string    `bson:"carrier"`
	Vehicle     string    `bson:"vehicle"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (c *TripCatalog) GetTrip(ctx context.Context, id uuid.UUID) (*TripDoc, error) {
	var trip TripDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get trip")
		return nil, err
	}
	return &trip, nil
}

func (c *TripCatalog) CreateTrip(ctx context.Context, trip TripDoc) error {
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	_, err := c.coll.InsertOne(ctx, trip)
	if err != nil {
		c.logger.WithError(err).Error("failed to create trip")
		return err
	}
	return nil
}
