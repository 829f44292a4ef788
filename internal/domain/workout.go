package domain

import (
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultCreatorID marks templates of the built-in library, visible to every user.
	DefaultCreatorID = "default"
	UntitledWorkout  = "Untitled workout"
)

// Exercise is one line of a workout template. Sets and reps are kept as entered.
type Exercise struct {
	Name string `bson:"name" json:"name"`
	Sets string `bson:"sets" json:"sets"`
	Reps string `bson:"reps" json:"reps"`
}

// Workout is a reusable named set of exercises, independent of any scheduled date.
type Workout struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title          string             `bson:"title" json:"title"`
	Duration       string             `bson:"duration" json:"duration"`     // e.g. "45 min"
	Difficulty     string             `bson:"difficulty" json:"difficulty"` // e.g. "Beginner"
	Exercises      []Exercise         `bson:"exercises" json:"exercises"`
	CreatorID      string             `bson:"creatorId" json:"creatorId"` // User ID hex or DefaultCreatorID
	VideoURL       string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	VideoObjectKey string             `bson:"videoObjectKey,omitempty" json:"-"` // Key in the object storage bucket
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

var (
	ErrWorkoutIncomplete  = errors.New("workout requires title, duration, difficulty and at least one exercise")
	ErrExerciseIncomplete = errors.New("every exercise requires name, sets and reps")
	ErrWorkoutCreator     = errors.New("workout requires creatorId")
)

// ValidateExercises checks that every exercise is fully filled in.
func ValidateExercises(exercises []Exercise) error {
	if len(exercises) == 0 {
		return ErrWorkoutIncomplete
	}
	for _, ex := range exercises {
		if ex.Name == "" || ex.Sets == "" || ex.Reps == "" {
			return ErrExerciseIncomplete
		}
	}
	return nil
}

// Validate checks the fields required when creating a template.
func (w *Workout) Validate() error {
	if w.Title == "" || w.Duration == "" || w.Difficulty == "" {
		return ErrWorkoutIncomplete
	}
	if w.CreatorID == "" {
		return ErrWorkoutCreator
	}
	return ValidateExercises(w.Exercises)
}

// IsOwnedBy reports whether the user created this template.
func (w *Workout) IsOwnedBy(userID primitive.ObjectID) bool {
	return w.CreatorID != DefaultCreatorID && w.CreatorID == userID.Hex()
}

// DisplayTitle returns the title or a fallback when the stored document lacks one.
func (w *Workout) DisplayTitle() string {
	if w.Title == "" {
		return UntitledWorkout
	}
	return w.Title
}

var youtubeIDPattern = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?|shorts)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// YouTubeVideoID extracts the 11 character video id from a YouTube URL.
// Returns "" for anything else.
func YouTubeVideoID(url string) string {
	m := youtubeIDPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
