package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MeetingRepository defines the interface for meeting data operations.
// RespondToPending and ClaimReminder are single conditional writes; callers
// must not emulate them with a read followed by a write.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	GetMeetingByID(ctx context.Context, id string) (*models.Meeting, error)
	// RespondToPending moves a pending meeting addressed to receiverID to a
	// terminal status. ErrNotFound when no such pending meeting exists.
	RespondToPending(ctx context.Context, id string, receiverID uint, resp models.MeetingResponse) (*models.Meeting, error)
	GetMeetingsForUser(ctx context.Context, userID uint) ([]models.Meeting, error)
	// HideForUser adds userID to deleted_for. ErrNotFound unless userID is a party.
	HideForUser(ctx context.Context, id string, userID uint) error
	GetDueReminders(ctx context.Context, now time.Time, limit int64) ([]models.Meeting, error)
	// ClaimReminder flips reminder_sent to true; false means another worker won.
	ClaimReminder(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	GetUpcomingAccepted(ctx context.Context, userID uint, from time.Time) ([]models.Meeting, error)
}

// MongoMeetingRepository implements MeetingRepository for MongoDB
type MongoMeetingRepository struct {
	collection *mongo.Collection
}

// NewMongoMeetingRepository creates a new MongoMeetingRepository
func NewMongoMeetingRepository(db *mongo.Database) *MongoMeetingRepository {
	return &MongoMeetingRepository{collection: db.Collection("meetings")}
}

// EnsureIndexes creates the indexes backing the list, respond and reminder queries
func (r *MongoMeetingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "reminder_sent", Value: 1}, {Key: "reminder_at", Value: 1}}},
		{Keys: bson.D{{Key: "deleted_for", Value: 1}}},
	})
	return err
}

// CreateMeeting inserts a new meeting
func (r *MongoMeetingRepository) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	meeting.ID = primitive.NewObjectID()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}
	if meeting.DeletedFor == nil {
		meeting.DeletedFor = []uint{}
	}
	_, err := r.collection.InsertOne(ctx, meeting)
	return err
}

// GetMeetingByID retrieves a meeting by ID
func (r *MongoMeetingRepository) GetMeetingByID(ctx context.Context, id string) (*models.Meeting, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var meeting models.Meeting
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &meeting, nil
}

// RespondToPending performs the pending -> terminal transition with findOneAndUpdate
func (r *MongoMeetingRepository) RespondToPending(ctx context.Context, id string, receiverID uint, resp models.MeetingResponse) (*models.Meeting, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"status":       resp.Status,
		"responded_at": resp.RespondedAt,
	}
	if resp.MeetingLink != "" {
		set["meeting_link"] = resp.MeetingLink
	}
	if resp.ReminderAt != nil {
		set["reminder_at"] = *resp.ReminderAt
	}

	filter := bson.M{"_id": objID, "receiver_id": receiverID, "status": models.MeetingPending}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var meeting models.Meeting
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &meeting, nil
}

// GetMeetingsForUser lists meetings where userID is a party and has not hidden it, newest first
func (r *MongoMeetingRepository) GetMeetingsForUser(ctx context.Context, userID uint) ([]models.Meeting, error) {
	filter := bson.M{
		"$or":         bson.A{bson.M{"sender_id": userID}, bson.M{"receiver_id": userID}},
		"deleted_for": bson.M{"$ne": userID},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, filter, findOptions)
}

// HideForUser soft-deletes a meeting from one party's view
func (r *MongoMeetingRepository) HideForUser(ctx context.Context, id string, userID uint) error {
	objID, err := objectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id": objID,
		"$or": bson.A{bson.M{"sender_id": userID}, bson.M{"receiver_id": userID}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"deleted_for": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDueReminders returns accepted, unreminded meetings whose reminder time has passed
func (r *MongoMeetingRepository) GetDueReminders(ctx context.Context, now time.Time, limit int64) ([]models.Meeting, error) {
	filter := bson.M{
		"status":        models.MeetingAccepted,
		"reminder_sent": false,
		"reminder_at":   bson.M{"$lte": now},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "reminder_at", Value: 1}}).SetLimit(limit)
	return r.find(ctx, filter, findOptions)
}

// ClaimReminder marks the reminder as sent if nobody else has
func (r *MongoMeetingRepository) ClaimReminder(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":           id,
		"status":        models.MeetingAccepted,
		"reminder_sent": false,
		"reminder_at":   bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"reminder_sent": true, "reminder_claimed_at": now}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// GetUpcomingAccepted lists accepted meetings of userID ending at or after from, by start time
func (r *MongoMeetingRepository) GetUpcomingAccepted(ctx context.Context, userID uint, from time.Time) ([]models.Meeting, error) {
	filter := bson.M{
		"$or":         bson.A{bson.M{"sender_id": userID}, bson.M{"receiver_id": userID}},
		"status":      models.MeetingAccepted,
		"end_at":      bson.M{"$gte": from},
		"deleted_for": bson.M{"$ne": userID},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "start_at", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

func (r *MongoMeetingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Meeting, error) {
	meetings := []models.Meeting{}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}
