package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus type for the workout session lifecycle
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionMissed    SessionStatus = "missed"
)

// IsValid reports whether s is a known session status.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionScheduled, SessionCompleted, SessionMissed:
		return true
	default:
		return false
	}
}

// IsFinal reports whether no further transition can leave s.
func (s SessionStatus) IsFinal() bool {
	return s == SessionCompleted || s == SessionMissed
}

// CanTransitionTo reports whether s -> next is an allowed lifecycle step.
// Only scheduled -> completed and scheduled -> missed are allowed.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s == SessionScheduled && next.IsFinal()
}

// WorkoutSession is a single scheduled instance of performing a workout template on a date.
type WorkoutSession struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`               // Owner
	WorkoutID     primitive.ObjectID `bson:"workoutId" json:"workoutId"`         // Link to the template
	WorkoutTitle  string             `bson:"workoutTitle" json:"workoutTitle"`   // Denormalized copy of the template title
	ScheduledDate time.Time          `bson:"scheduledDate" json:"scheduledDate"` // Immutable after creation
	Status        SessionStatus      `bson:"status" json:"status"`
	CompletedDate *time.Time         `bson:"completedDate,omitempty" json:"completedDate,omitempty"` // Set iff Status == completed
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

var (
	ErrSessionOwnerRequired   = errors.New("session requires userId")
	ErrSessionWorkoutRequired = errors.New("session requires workoutId")
	ErrSessionDateRequired    = errors.New("session requires scheduledDate")
	ErrSessionBadStatus       = errors.New("session has unknown status")
	ErrSessionCompletedDate   = errors.New("completedDate must be set iff status is completed")
)

// Validate checks the record invariants. Called at the persistence boundary.
func (s *WorkoutSession) Validate() error {
	if s.UserID.IsZero() {
		return ErrSessionOwnerRequired
	}
	if s.WorkoutID.IsZero() {
		return ErrSessionWorkoutRequired
	}
	if s.ScheduledDate.IsZero() {
		return ErrSessionDateRequired
	}
	if !s.Status.IsValid() {
		return ErrSessionBadStatus
	}
	if (s.Status == SessionCompleted) != (s.CompletedDate != nil) {
		return ErrSessionCompletedDate
	}
	return nil
}

// DisplayTitle returns the denormalized title or a fallback when it is missing.
func (s *WorkoutSession) DisplayTitle() string {
	if s.WorkoutTitle == "" {
		return UntitledWorkout
	}
	return s.WorkoutTitle
}

// NewScheduledSession builds a session in the initial scheduled state.
func NewScheduledSession(userID primitive.ObjectID, workout *Workout, scheduledDate time.Time) *WorkoutSession {
	return &WorkoutSession{
		UserID:        userID,
		WorkoutID:     workout.ID,
		WorkoutTitle:  workout.Title,
		ScheduledDate: scheduledDate.UTC(),
		Status:        SessionScheduled,
	}
}
