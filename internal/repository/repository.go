package repository

import (
	"context"
	"time"

	"fittrack/app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrConflict     = RepositoryError("conflict")
	ErrInvalid      = RepositoryError("invalid document")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update domain.ProfileUpdate) (*domain.User, error)
	// SearchByNamePrefix returns users whose name starts with prefix (case sensitive, index friendly).
	SearchByNamePrefix(ctx context.Context, prefix string, limit int64) ([]domain.User, error)
	FindByEmails(ctx context.Context, emails []string) ([]domain.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, until time.Time) error
	// ResetPassword swaps the password hash and clears the reset token.
	ResetPassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

// WorkoutRepository defines the interface for workout template data.
type WorkoutRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	// ListByCreators returns templates whose creatorId is one of creatorIDs.
	ListByCreators(ctx context.Context, creatorIDs []string) ([]domain.Workout, error)
	UpdateExercises(ctx context.Context, id primitive.ObjectID, exercises []domain.Exercise) error
	SetVideo(ctx context.Context, id primitive.ObjectID, objectKey string) error
	// CreateWithSession stores the template and its first scheduled session atomically.
	CreateWithSession(ctx context.Context, workout *domain.Workout, session *domain.WorkoutSession) error
}

// SessionRepository defines the interface for workout session data.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutSession, error)
	// MarkMissed moves the given sessions from scheduled to missed in one atomic batch.
	// Sessions no longer scheduled are left alone, so repeating the call is harmless.
	MarkMissed(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	// Complete moves one scheduled session of the user to completed, stamping completedAt.
	// Returns ErrNotFound when no scheduled session with that id belongs to the user.
	Complete(ctx context.Context, userID, id primitive.ObjectID, completedAt time.Time) (*domain.WorkoutSession, error)
}

// FriendRepository defines the interface for friend requests and friendships.
type FriendRepository interface {
	CreateRequest(ctx context.Context, req *domain.FriendRequest) (primitive.ObjectID, error)
	GetRequest(ctx context.Context, id primitive.ObjectID) (*domain.FriendRequest, error)
	FindPendingBetween(ctx context.Context, a, b primitive.ObjectID) (*domain.FriendRequest, error)
	ListIncomingPending(ctx context.Context, receiverID primitive.ObjectID) ([]domain.FriendRequest, error)
	// Accept marks the request accepted and creates both friendship directions atomically.
	Accept(ctx context.Context, req *domain.FriendRequest, since time.Time) error
	Decline(ctx context.Context, id primitive.ObjectID) error
	ListFriendships(ctx context.Context, userID primitive.ObjectID) ([]domain.Friendship, error)
	AreFriends(ctx context.Context, a, b primitive.ObjectID) (bool, error)
}

// StepRepository stores device step samples.
type StepRepository interface {
	Add(ctx context.Context, sample *domain.StepSample) (primitive.ObjectID, error)
	SumSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int, error)
	// ListSince returns the samples recorded at or after since, oldest first.
	ListSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.StepSample, error)
}

// TokenRepository keeps revoked JWT ids until they expire.
type TokenRepository interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
