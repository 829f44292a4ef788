package mongo

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectOptions controls how hard ConnectDB tries before giving up.
type ConnectOptions struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// ConnectDB establishes a connection to MongoDB using the provided URI, retrying
// connect+ping with backoff.
func ConnectDB(uri string, opts ConnectOptions) (*mongo.Client, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}

	var client *mongo.Client
	err := retry.Do(
		func() error {
			c, err := connectOnce(uri)
			if err != nil {
				return err
			}
			client = c
			return nil
		},
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.MaxDelay(opts.MaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logrus.WithError(err).Warnf("mongo connect attempt %d failed", n+1)
		}),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func connectOnce(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary; connect alone does not prove the server answers.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. Failures are logged, not fatal.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	EnsureUserIndexes(ctx, db.Collection(userCollectionName))
	EnsureWorkoutIndexes(ctx, db.Collection(workoutCollectionName))
	EnsureSessionIndexes(ctx, db.Collection(sessionCollectionName))
	EnsureFriendIndexes(ctx, db.Collection(friendRequestCollectionName), db.Collection(friendshipCollectionName))
	EnsureStepIndexes(ctx, db.Collection(stepCollectionName))
	EnsureTokenIndexes(ctx, db.Collection(revokedTokenCollectionName))
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) {
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logrus.WithError(err).Warnf("failed to create indexes for collection %s", collection.Name())
	}
}

// withTransaction runs fn inside a multi-document transaction. Requires a replica set.
func withTransaction(ctx context.Context, db *mongo.Database, fn func(sc mongo.SessionContext) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
