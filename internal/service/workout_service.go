package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"
	"fittrack/app/internal/schedule"
	"fittrack/app/internal/storage"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound       = errors.New("workout not found")
	ErrNotWorkoutCreator     = errors.New("only the creator can change this workout")
	ErrVideoStorageDisabled  = errors.New("video storage is not configured")
	ErrUploadURLError        = errors.New("failed to generate upload URL")
	ErrVideoKeyMismatch      = errors.New("object key was not issued for this workout")
	ErrScheduledDateRequired = errors.New("scheduledDate is required")
)

// CreateWorkoutInput is a new template plus the date of its first session.
type CreateWorkoutInput struct {
	Title         string
	Duration      string
	Difficulty    string
	Exercises     []domain.Exercise
	VideoURL      string
	ScheduledDate time.Time
}

// WorkoutDetails is a template enriched for display.
type WorkoutDetails struct {
	domain.Workout
	YouTubeID        string `json:"youtubeId,omitempty"`
	VideoDownloadURL string `json:"videoDownloadUrl,omitempty"`
	IsOwner          bool   `json:"isOwner"`
}

// WorkoutStats summarizes the workout library and the user's history.
type WorkoutStats struct {
	Available int `json:"available"`
	Completed int `json:"completed"`
	Missed    int `json:"missed"`
}

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key the client reports back on confirm
}

type WorkoutService interface {
	// ListWorkouts returns the built-in library plus the user's own templates.
	ListWorkouts(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error)
	GetWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) (*WorkoutDetails, error)
	// CreateWorkout stores the template and schedules its first session in one transaction.
	CreateWorkout(ctx context.Context, userID primitive.ObjectID, input CreateWorkoutInput) (*domain.Workout, *domain.WorkoutSession, error)
	UpdateExercises(ctx context.Context, userID, workoutID primitive.ObjectID, exercises []domain.Exercise) (*domain.Workout, error)
	ScheduleWorkout(ctx context.Context, userID, workoutID primitive.ObjectID, date time.Time) (*domain.WorkoutSession, error)
	GetStats(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*WorkoutStats, error)

	RequestVideoUpload(ctx context.Context, userID, workoutID primitive.ObjectID, contentType string) (*UploadURLResponse, error)
	ConfirmVideoUpload(ctx context.Context, userID, workoutID primitive.ObjectID, objectKey string) (*domain.Workout, error)
}

type workoutService struct {
	workoutRepo repository.WorkoutRepository
	sessionRepo repository.SessionRepository
	fileStorage storage.FileStorage // nil disables uploaded videos
	now         func() time.Time
}

func NewWorkoutService(
	workoutRepo repository.WorkoutRepository,
	sessionRepo repository.SessionRepository,
	fileStorage storage.FileStorage,
) WorkoutService {
	return &workoutService{
		workoutRepo: workoutRepo,
		sessionRepo: sessionRepo,
		fileStorage: fileStorage,
		now:         time.Now,
	}
}

func visibleCreators(userID primitive.ObjectID) []string {
	return []string{userID.Hex(), domain.DefaultCreatorID}
}

func (s *workoutService) ListWorkouts(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	if userID.IsZero() {
		return []domain.Workout{}, nil
	}
	workouts, err := s.workoutRepo.ListByCreators(ctx, visibleCreators(userID))
	if err != nil {
		return nil, storeErr("list workouts", err)
	}
	return workouts, nil
}

// getVisible loads a template the user may see. Other users' templates look like missing ones.
func (s *workoutService) getVisible(ctx context.Context, userID, workoutID primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("get workout", err)
	}
	if workout.CreatorID != domain.DefaultCreatorID && !workout.IsOwnedBy(userID) {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

// getOwned loads a template the user created.
func (s *workoutService) getOwned(ctx context.Context, userID, workoutID primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.getVisible(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}
	if !workout.IsOwnedBy(userID) {
		return nil, ErrNotWorkoutCreator
	}
	return workout, nil
}

func (s *workoutService) GetWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) (*WorkoutDetails, error) {
	if userID.IsZero() {
		return nil, ErrWorkoutNotFound
	}
	workout, err := s.getVisible(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}

	details := &WorkoutDetails{
		Workout:   *workout,
		YouTubeID: domain.YouTubeVideoID(workout.VideoURL),
		IsOwner:   workout.IsOwnedBy(userID),
	}
	if workout.VideoObjectKey != "" && s.fileStorage != nil {
		url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, workout.VideoObjectKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			// The template is still useful without its video.
			log.WithError(err).WithField("workout_id", workoutID.Hex()).Warn("presign video download")
		} else {
			details.VideoDownloadURL = url
		}
	}
	return details, nil
}

func (s *workoutService) CreateWorkout(ctx context.Context, userID primitive.ObjectID, input CreateWorkoutInput) (*domain.Workout, *domain.WorkoutSession, error) {
	if userID.IsZero() {
		return nil, nil, ErrForbidden
	}
	if input.ScheduledDate.IsZero() {
		return nil, nil, invalidInput(ErrScheduledDateRequired.Error())
	}

	workout := &domain.Workout{
		Title:      strings.TrimSpace(input.Title),
		Duration:   strings.TrimSpace(input.Duration),
		Difficulty: strings.TrimSpace(input.Difficulty),
		Exercises:  input.Exercises,
		CreatorID:  userID.Hex(),
		VideoURL:   strings.TrimSpace(input.VideoURL),
	}
	if err := workout.Validate(); err != nil {
		return nil, nil, invalidInput(err.Error())
	}

	session := domain.NewScheduledSession(userID, workout, input.ScheduledDate)
	if err := s.workoutRepo.CreateWithSession(ctx, workout, session); err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return nil, nil, invalidInput(err.Error())
		}
		return nil, nil, storeErr("create workout", err)
	}

	log.WithFields(log.Fields{
		"user_id":    userID.Hex(),
		"workout_id": workout.ID.Hex(),
		"session_id": session.ID.Hex(),
	}).Info("workout created")
	return workout, session, nil
}

func (s *workoutService) UpdateExercises(ctx context.Context, userID, workoutID primitive.ObjectID, exercises []domain.Exercise) (*domain.Workout, error) {
	if err := domain.ValidateExercises(exercises); err != nil {
		return nil, invalidInput(err.Error())
	}
	workout, err := s.getOwned(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}

	if err := s.workoutRepo.UpdateExercises(ctx, workoutID, exercises); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("update exercises", err)
	}
	workout.Exercises = exercises
	return workout, nil
}

func (s *workoutService) ScheduleWorkout(ctx context.Context, userID, workoutID primitive.ObjectID, date time.Time) (*domain.WorkoutSession, error) {
	if userID.IsZero() {
		return nil, ErrForbidden
	}
	if date.IsZero() {
		return nil, invalidInput(ErrScheduledDateRequired.Error())
	}
	workout, err := s.getVisible(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}

	session := domain.NewScheduledSession(userID, workout, date)
	id, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, storeErr("create session", err)
	}
	session.ID = id

	log.WithFields(log.Fields{
		"user_id":    userID.Hex(),
		"workout_id": workoutID.Hex(),
		"session_id": id.Hex(),
	}).Info("workout scheduled")
	return session, nil
}

// GetStats counts overdue sessions as missed even before the next reconciliation persists them.
func (s *workoutService) GetStats(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*WorkoutStats, error) {
	if userID.IsZero() {
		return &WorkoutStats{}, nil
	}
	workouts, err := s.workoutRepo.ListByCreators(ctx, visibleCreators(userID))
	if err != nil {
		return nil, storeErr("list workouts", err)
	}
	sessions, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}

	counts := schedule.Count(schedule.Reconcile(sessions, s.now(), loc).Sessions)
	return &WorkoutStats{
		Available: len(workouts),
		Completed: counts.Completed,
		Missed:    counts.Missed,
	}, nil
}

func (s *workoutService) RequestVideoUpload(ctx context.Context, userID, workoutID primitive.ObjectID, contentType string) (*UploadURLResponse, error) {
	if s.fileStorage == nil {
		return nil, ErrVideoStorageDisabled
	}
	if _, err := s.getOwned(ctx, userID, workoutID); err != nil {
		return nil, err
	}

	objectKey, err := storage.VideoObjectKey(workoutID, contentType)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		log.WithError(err).WithField("workout_id", workoutID.Hex()).Error("presign video upload")
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

func (s *workoutService) ConfirmVideoUpload(ctx context.Context, userID, workoutID primitive.ObjectID, objectKey string) (*domain.Workout, error) {
	if s.fileStorage == nil {
		return nil, ErrVideoStorageDisabled
	}
	workout, err := s.getOwned(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}
	if !storage.IsVideoKeyFor(objectKey, workoutID) {
		return nil, ErrVideoKeyMismatch
	}

	if err := s.workoutRepo.SetVideo(ctx, workoutID, objectKey); err != nil {
		return nil, storeErr("set workout video", err)
	}

	// Replace the previous upload.
	if old := workout.VideoObjectKey; old != "" && old != objectKey {
		if err := s.fileStorage.DeleteObject(ctx, old); err != nil {
			log.WithError(err).WithField("object_key", old).Warn("delete replaced workout video")
		}
	}
	workout.VideoObjectKey = objectKey
	return workout, nil
}
