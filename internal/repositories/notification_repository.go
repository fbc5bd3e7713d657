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

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error)
	GetGrouped(ctx context.Context, userID uint, todayStart time.Time) (today, yesterday, thisWeek, older []models.Notification, err error)
	GetUnread(ctx context.Context, userID uint) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, userID uint) (int64, error)
	// MarkAsRead only touches notifications owned by userID.
	MarkAsRead(ctx context.Context, userID uint, ids []string) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uint) (int64, error)
}

type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return err
}

func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

func (r *MongoNotificationRepository) GetByRecipientID(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error) {
	filter := bson.M{"user_id": userID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := int64((page - 1) * limit)
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))
	notifications, err := r.find(ctx, filter, findOptions)
	return notifications, total, err
}

func (r *MongoNotificationRepository) GetGrouped(ctx context.Context, userID uint, todayStart time.Time) (today, yesterday, thisWeek, older []models.Notification, retErr error) {
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)
	newestFirst := bson.D{{Key: "created_at", Value: -1}}

	// Today
	if today, retErr = r.find(ctx, bson.M{"user_id": userID, "created_at": bson.M{"$gte": todayStart}},
		options.Find().SetSort(newestFirst)); retErr != nil {
		return
	}

	// Yesterday
	if yesterday, retErr = r.find(ctx, bson.M{"user_id": userID, "created_at": bson.M{"$gte": yesterdayStart, "$lt": todayStart}},
		options.Find().SetSort(newestFirst)); retErr != nil {
		return
	}

	// This week (excluding today and yesterday)
	if thisWeek, retErr = r.find(ctx, bson.M{"user_id": userID, "created_at": bson.M{"$gte": weekStart, "$lt": yesterdayStart}},
		options.Find().SetSort(newestFirst)); retErr != nil {
		return
	}

	// Older
	older, retErr = r.find(ctx, bson.M{"user_id": userID, "created_at": bson.M{"$lt": weekStart}},
		options.Find().SetSort(newestFirst).SetLimit(50))
	return
}

func (r *MongoNotificationRepository) GetUnread(ctx context.Context, userID uint) ([]models.Notification, error) {
	return r.find(ctx, bson.M{"user_id": userID, "read": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *MongoNotificationRepository) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, userID uint, ids []string) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return 0, nil
	}

	filter := bson.M{"_id": bson.M{"$in": oids}, "user_id": userID, "read": false}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	filter := bson.M{"user_id": userID, "read": false}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoNotificationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Notification, error) {
	notifications := []models.Notification{}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}
