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

const userCollectionName = "users"

// Upper bound appended to a prefix for range queries; sorts after every BMP character.
const prefixUpperBound = "\uf8ff"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user into the database.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" {
		return primitive.NilObjectID, errors.New("user email and password hash are required")
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	return user.ID, nil
}

// GetByEmail retrieves a user by their email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID retrieves a user by their MongoDB ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves every user whose ID is in ids. Missing IDs are skipped.
func (r *mongoUserRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// UpdateProfile sets the provided profile fields and returns the updated user.
func (r *mongoUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, update domain.ProfileUpdate) (*domain.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Age != nil {
		set["age"] = *update.Age
	}
	if update.Weight != nil {
		set["weight"] = *update.Weight
	}
	if update.Height != nil {
		set["height"] = *update.Height
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SearchByNamePrefix runs a range query name >= prefix AND name <= prefix+U+F8FF.
func (r *mongoUserRepository) SearchByNamePrefix(ctx context.Context, prefix string, limit int64) ([]domain.User, error) {
	filter := bson.M{"name": bson.M{"$gte": prefix, "$lte": prefix + prefixUpperBound}}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, filter, opts)
}

// FindByEmails returns the users registered with any of the given emails.
func (r *mongoUserRepository) FindByEmails(ctx context.Context, emails []string) ([]domain.User, error) {
	if len(emails) == 0 {
		return []domain.User{}, nil
	}
	return r.find(ctx, bson.M{"email": bson.M{"$in": emails}})
}

func (r *mongoUserRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]domain.User, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []domain.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetResetToken stores the hashed password reset token and its expiry.
func (r *mongoUserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, until time.Time) error {
	update := bson.M{"$set": bson.M{
		"resetTokenHash":  tokenHash,
		"resetTokenUntil": until.UTC(),
		"updatedAt":       time.Now().UTC(),
	}}
	return r.updateOne(ctx, id, update)
}

// ResetPassword replaces the password hash and clears the reset token.
func (r *mongoUserRepository) ResetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	update := bson.M{
		"$set":   bson.M{"passwordHash": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetTokenHash": "", "resetTokenUntil": ""},
	}
	return r.updateOne(ctx, id, update)
}

func (r *mongoUserRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Prefix search on name
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index(),
		},
	})
}
