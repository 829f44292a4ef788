package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

const videoPrefix = "workouts"

var ErrUnsupportedContentType = errors.New("unsupported video content type")

var videoExtensions = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	DeleteObject(ctx context.Context, objectKey string) error
}

// VideoObjectKey builds a unique key for a workout demo video,
// e.g. workouts/<workoutID>/<uuid>.mp4.
func VideoObjectKey(workoutID primitive.ObjectID, contentType string) (string, error) {
	ext, ok := videoExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return path.Join(videoPrefix, workoutID.Hex(), uuid.NewString()+ext), nil
}

// IsVideoKeyFor reports whether objectKey was issued for the given workout.
func IsVideoKeyFor(objectKey string, workoutID primitive.ObjectID) bool {
	return strings.HasPrefix(objectKey, path.Join(videoPrefix, workoutID.Hex())+"/")
}
