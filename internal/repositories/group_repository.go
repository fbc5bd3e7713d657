package repositories

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GroupRepository stores study groups and their join requests. The bool
// returned by the conditional writes is false when the precondition no
// longer holds, which callers report as a conflict.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
	// Browse lists groups of a university, newest first. A non-empty query
	// matches title or course case-insensitively.
	Browse(ctx context.Context, university, query string, limit int64) ([]models.Group, error)
	GetGroupsForMember(ctx context.Context, userID uint) ([]models.Group, error)
	// AddJoinRequest appends a pending request unless the user is already a
	// member or already waiting.
	AddJoinRequest(ctx context.Context, id string, req models.JoinRequest) (bool, error)
	// ResolveJoinRequest settles userID's pending request on a group owned by
	// ownerID. Approving also adds userID to the members.
	ResolveJoinRequest(ctx context.Context, id string, ownerID, userID uint, status models.JoinStatus, at time.Time) (bool, error)
	// RemoveMember pulls userID from the members unless userID owns the group.
	RemoveMember(ctx context.Context, id string, userID uint) (bool, error)
	IsMember(ctx context.Context, id string, userID uint) (bool, error)
}

type MongoGroupRepository struct {
	collection *mongo.Collection
}

func NewMongoGroupRepository(db *mongo.Database) *MongoGroupRepository {
	return &MongoGroupRepository{collection: db.Collection("groups")}
}

// EnsureIndexes creates the indexes backing browse and membership lookups
func (r *MongoGroupRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "university", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "members", Value: 1}}},
	})
	return err
}

func (r *MongoGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	group.ID = primitive.NewObjectID()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if group.Members == nil {
		group.Members = []uint{group.OwnerID}
	}
	if group.JoinRequests == nil {
		group.JoinRequests = []models.JoinRequest{}
	}
	_, err := r.collection.InsertOne(ctx, group)
	return err
}

func (r *MongoGroupRepository) GetGroupByID(ctx context.Context, id string) (*models.Group, error) {
	objID, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var group models.Group
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&group); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *MongoGroupRepository) Browse(ctx context.Context, university, query string, limit int64) ([]models.Group, error) {
	filter := bson.M{"university": university}
	if query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"course": pattern}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	return r.find(ctx, filter, opts)
}

func (r *MongoGroupRepository) GetGroupsForMember(ctx context.Context, userID uint) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"members": userID}, opts)
}

func (r *MongoGroupRepository) AddJoinRequest(ctx context.Context, id string, req models.JoinRequest) (bool, error) {
	objID, err := objectID(id)
	if err != nil {
		return false, err
	}
	filter := bson.M{
		"_id":     objID,
		"members": bson.M{"$ne": req.UserID},
		"join_requests": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user_id": req.UserID,
			"status":  models.JoinPending,
		}}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"join_requests": req}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoGroupRepository) ResolveJoinRequest(ctx context.Context, id string, ownerID, userID uint, status models.JoinStatus, at time.Time) (bool, error) {
	objID, err := objectID(id)
	if err != nil {
		return false, err
	}
	filter := bson.M{
		"_id":      objID,
		"owner_id": ownerID,
		"join_requests": bson.M{"$elemMatch": bson.M{
			"user_id": userID,
			"status":  models.JoinPending,
		}},
	}
	// The positional operator addresses the request matched by $elemMatch.
	update := bson.M{"$set": bson.M{
		"join_requests.$.status":      status,
		"join_requests.$.resolved_at": at,
	}}
	if status == models.JoinApproved {
		update["$addToSet"] = bson.M{"members": userID}
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoGroupRepository) RemoveMember(ctx context.Context, id string, userID uint) (bool, error) {
	objID, err := objectID(id)
	if err != nil {
		return false, err
	}
	filter := bson.M{
		"_id":      objID,
		"owner_id": bson.M{"$ne": userID},
		"members":  userID,
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$pull": bson.M{"members": userID}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoGroupRepository) IsMember(ctx context.Context, id string, userID uint) (bool, error) {
	objID, err := objectID(id)
	if err != nil {
		return false, nil
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID, "members": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoGroupRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Group, error) {
	groups := []models.Group{}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
