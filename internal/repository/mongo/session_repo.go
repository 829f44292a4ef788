package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollectionName = "workoutSessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new WorkoutSession repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		db:         db,
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new scheduled session.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	prepareNewSession(session)
	if err := session.Validate(); err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %v", repository.ErrInvalid, err)
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return primitive.NilObjectID, err
	}
	return session.ID, nil
}

func prepareNewSession(session *domain.WorkoutSession) {
	session.ID = primitive.NewObjectID()
	session.CreatedAt = time.Now().UTC()
	session.ScheduledDate = session.ScheduledDate.UTC()
	if session.Status == "" {
		session.Status = domain.SessionScheduled
	}
}

// GetByID retrieves a session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", repository.ErrInvalid, id.Hex(), err)
	}
	return &session, nil
}

// ListByUser retrieves every session of a user, oldest scheduled first.
// Documents that fail validation are skipped and logged.
func (r *mongoSessionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, error) {
	filter := bson.M{"userId": userID}
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.WorkoutSession{}
	for cursor.Next(ctx) {
		var s domain.WorkoutSession
		if err := cursor.Decode(&s); err != nil {
			logrus.WithError(err).WithField("user_id", userID.Hex()).Warn("skipping undecodable session document")
			continue
		}
		if err := s.Validate(); err != nil {
			logrus.WithError(err).WithField("session_id", s.ID.Hex()).Warn("skipping invalid session document")
			continue
		}
		sessions = append(sessions, s)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// MarkMissed updates the given sessions to missed inside one transaction. Only documents
// of the user still in scheduled state match, which keeps completed sessions intact and
// makes repeated runs no-ops.
func (r *mongoSessionRepository) MarkMissed(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	filter := bson.M{
		"_id":    bson.M{"$in": ids},
		"userId": userID,
		"status": domain.SessionScheduled,
	}
	update := bson.M{"$set": bson.M{"status": domain.SessionMissed}}

	var modified int64
	err := withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		result, err := r.collection.UpdateMany(sc, filter, update)
		if err != nil {
			return err
		}
		modified = result.ModifiedCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: mark missed: %v", repository.ErrUpdateFailed, err)
	}
	return modified, nil
}

// Complete sets status and completedDate together in one conditional update.
func (r *mongoSessionRepository) Complete(ctx context.Context, userID, id primitive.ObjectID, completedAt time.Time) (*domain.WorkoutSession, error) {
	filter := bson.M{
		"_id":    id,
		"userId": userID,
		"status": domain.SessionScheduled,
	}
	update := bson.M{"$set": bson.M{
		"status":        domain.SessionCompleted,
		"completedDate": completedAt.UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session domain.WorkoutSession
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// EnsureSessionIndexes creates necessary indexes for the sessions collection.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// Calendar listing per user
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index(),
		},
		{
			// Overdue lookup: userId == X AND status == scheduled AND scheduledDate < midnight
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index(),
		},
	})
}
