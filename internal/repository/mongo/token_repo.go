package mongo

import (
	"context"
	"time"

	"fittrack/app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const revokedTokenCollectionName = "revokedTokens"

type mongoTokenRepository struct {
	collection *mongo.Collection
}

// NewMongoTokenRepository stores signed-out token ids until they would have expired anyway.
func NewMongoTokenRepository(db *mongo.Database) repository.TokenRepository {
	return &mongoTokenRepository{collection: db.Collection(revokedTokenCollectionName)}
}

func (r *mongoTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": jti},
		bson.M{"$set": bson.M{"expiresAt": expiresAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongoTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": jti}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureTokenIndexes adds the TTL index that purges revoked ids after expiry.
func EnsureTokenIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
}
