package mongo

import (
	"context"
	"errors"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	friendRequestCollectionName = "friendRequests"
	friendshipCollectionName    = "friendships"
)

type mongoFriendRepository struct {
	db          *mongo.Database
	requests    *mongo.Collection
	friendships *mongo.Collection
}

// NewMongoFriendRepository creates a friend request/friendship repository.
func NewMongoFriendRepository(db *mongo.Database) repository.FriendRepository {
	return &mongoFriendRepository{
		db:          db,
		requests:    db.Collection(friendRequestCollectionName),
		friendships: db.Collection(friendshipCollectionName),
	}
}

func (r *mongoFriendRepository) CreateRequest(ctx context.Context, req *domain.FriendRequest) (primitive.ObjectID, error) {
	if req.SenderID.IsZero() || req.ReceiverID.IsZero() {
		return primitive.NilObjectID, errors.New("friend request requires senderId and receiverId")
	}
	req.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = domain.FriendRequestPending
	}

	if _, err := r.requests.InsertOne(ctx, req); err != nil {
		return primitive.NilObjectID, err
	}
	return req.ID, nil
}

func (r *mongoFriendRepository) GetRequest(ctx context.Context, id primitive.ObjectID) (*domain.FriendRequest, error) {
	return r.findOneRequest(ctx, bson.M{"_id": id})
}

// FindPendingBetween finds a pending request in either direction between a and b.
func (r *mongoFriendRepository) FindPendingBetween(ctx context.Context, a, b primitive.ObjectID) (*domain.FriendRequest, error) {
	filter := bson.M{
		"status": domain.FriendRequestPending,
		"$or": bson.A{
			bson.M{"senderId": a, "receiverId": b},
			bson.M{"senderId": b, "receiverId": a},
		},
	}
	return r.findOneRequest(ctx, filter)
}

func (r *mongoFriendRepository) findOneRequest(ctx context.Context, filter bson.M) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	if err := r.requests.FindOne(ctx, filter).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *mongoFriendRepository) ListIncomingPending(ctx context.Context, receiverID primitive.ObjectID) ([]domain.FriendRequest, error) {
	filter := bson.M{"receiverId": receiverID, "status": domain.FriendRequestPending}
	cursor, err := r.requests.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reqs := []domain.FriendRequest{}
	if err = cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Accept flips the request to accepted and writes both friendship directions in one transaction.
func (r *mongoFriendRepository) Accept(ctx context.Context, req *domain.FriendRequest, since time.Time) error {
	since = since.UTC()
	return withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		result, err := r.requests.UpdateOne(sc,
			bson.M{"_id": req.ID, "status": domain.FriendRequestPending},
			bson.M{"$set": bson.M{"status": domain.FriendRequestAccepted, "updatedAt": since}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return repository.ErrNotFound
		}

		for _, pair := range [][2]primitive.ObjectID{{req.ReceiverID, req.SenderID}, {req.SenderID, req.ReceiverID}} {
			_, err := r.friendships.UpdateOne(sc,
				bson.M{"userId": pair[0], "friendId": pair[1]},
				bson.M{"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "friendSince": since}},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *mongoFriendRepository) Decline(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.requests.UpdateOne(ctx,
		bson.M{"_id": id, "status": domain.FriendRequestPending},
		bson.M{"$set": bson.M{"status": domain.FriendRequestDeclined, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoFriendRepository) ListFriendships(ctx context.Context, userID primitive.ObjectID) ([]domain.Friendship, error) {
	cursor, err := r.friendships.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "friendSince", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	friendships := []domain.Friendship{}
	if err = cursor.All(ctx, &friendships); err != nil {
		return nil, err
	}
	return friendships, nil
}

func (r *mongoFriendRepository) AreFriends(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	n, err := r.friendships.CountDocuments(ctx, bson.M{"userId": a, "friendId": b}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureFriendIndexes creates indexes for friend requests and friendships.
func EnsureFriendIndexes(ctx context.Context, requests, friendships *mongo.Collection) {
	createIndexes(ctx, requests, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "receiverId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}},
			Options: options.Index(),
		},
	})
	createIndexes(ctx, friendships, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "friendId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}
