// internal/repository/mongo/workout_repo.go
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutCollectionName = "workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
	sessions   *mongo.Collection
}

// NewMongoWorkoutRepository creates a new Workout template repository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		db:         db,
		collection: db.Collection(workoutCollectionName),
		sessions:   db.Collection(sessionCollectionName),
	}
}

// GetByID retrieves a single workout template by its ID.
func (r *mongoWorkoutRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	var workout domain.Workout
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// ListByCreators retrieves the templates created by any of creatorIDs, newest first.
func (r *mongoWorkoutRepository) ListByCreators(ctx context.Context, creatorIDs []string) ([]domain.Workout, error) {
	filter := bson.M{"creatorId": bson.M{"$in": creatorIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	workouts := []domain.Workout{}
	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// UpdateExercises replaces the exercise list. Other fields are left untouched.
func (r *mongoWorkoutRepository) UpdateExercises(ctx context.Context, id primitive.ObjectID, exercises []domain.Exercise) error {
	return r.set(ctx, id, bson.M{"exercises": exercises})
}

// SetVideo records the object storage key of the template's demo video.
func (r *mongoWorkoutRepository) SetVideo(ctx context.Context, id primitive.ObjectID, objectKey string) error {
	return r.set(ctx, id, bson.M{"videoObjectKey": objectKey})
}

func (r *mongoWorkoutRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateWithSession inserts the template and its first session in one transaction.
// The session's WorkoutID and WorkoutTitle are filled from the new template.
func (r *mongoWorkoutRepository) CreateWithSession(ctx context.Context, workout *domain.Workout, session *domain.WorkoutSession) error {
	if err := workout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalid, err)
	}
	workout.ID = primitive.NewObjectID()
	workout.CreatedAt = time.Now().UTC()

	session.WorkoutID = workout.ID
	session.WorkoutTitle = workout.Title
	prepareNewSession(session)
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalid, err)
	}

	return withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sc, workout); err != nil {
			return err
		}
		_, err := r.sessions.InsertOne(sc, session)
		return err
	})
}

// EnsureWorkoutIndexes creates necessary indexes. Call during startup.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// creatorId in [uid, "default"]
			Keys:    bson.D{{Key: "creatorId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	})
}
