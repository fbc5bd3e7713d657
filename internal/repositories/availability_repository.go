package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AvailabilityRepository defines the interface for published free slots
type AvailabilityRepository interface {
	CreateAvailability(ctx context.Context, availability *models.Availability) error
	// GetByUserID lists slots by start time; a non-nil endingAfter drops slots that already ended.
	GetByUserID(ctx context.Context, userID uint, endingAfter *time.Time) ([]models.Availability, error)
	DeleteAvailability(ctx context.Context, id string, userID uint) error
}

type MongoAvailabilityRepository struct {
	collection *mongo.Collection
}

func NewMongoAvailabilityRepository(db *mongo.Database) *MongoAvailabilityRepository {
	return &MongoAvailabilityRepository{collection: db.Collection("availabilities")}
}

func (r *MongoAvailabilityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_at", Value: 1}},
	})
	return err
}

func (r *MongoAvailabilityRepository) CreateAvailability(ctx context.Context, availability *models.Availability) error {
	availability.ID = primitive.NewObjectID()
	if availability.CreatedAt.IsZero() {
		availability.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, availability)
	return err
}

func (r *MongoAvailabilityRepository) GetByUserID(ctx context.Context, userID uint, endingAfter *time.Time) ([]models.Availability, error) {
	filter := bson.M{"user_id": userID}
	if endingAfter != nil {
		filter["end_at"] = bson.M{"$gte": *endingAfter}
	}

	slots := []models.Availability{}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *MongoAvailabilityRepository) DeleteAvailability(ctx context.Context, id string, userID uint) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
