package mongo

import (
	"context"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stepCollectionName = "stepSamples"

type mongoStepRepository struct {
	collection *mongo.Collection
}

// NewMongoStepRepository creates a repository for device step samples.
func NewMongoStepRepository(db *mongo.Database) repository.StepRepository {
	return &mongoStepRepository{collection: db.Collection(stepCollectionName)}
}

func (r *mongoStepRepository) Add(ctx context.Context, sample *domain.StepSample) (primitive.ObjectID, error) {
	sample.ID = primitive.NewObjectID()
	sample.RecordedAt = sample.RecordedAt.UTC()
	if _, err := r.collection.InsertOne(ctx, sample); err != nil {
		return primitive.NilObjectID, err
	}
	return sample.ID, nil
}

// SumSince adds up the step deltas recorded at or after since.
func (r *mongoStepRepository) SumSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID, "recordedAt": bson.M{"$gte": since.UTC()}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$steps"}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *mongoStepRepository) ListSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.StepSample, error) {
	filter := bson.M{"userId": userID, "recordedAt": bson.M{"$gte": since.UTC()}}
	findOptions := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	samples := []domain.StepSample{}
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// EnsureStepIndexes creates indexes for step samples.
func EnsureStepIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "recordedAt", Value: -1}},
			Options: options.Index(),
		},
	})
}
