package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fittrack/app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var legDay = []domain.Exercise{{Name: "Squat", Sets: "4", Reps: "8"}, {Name: "Lunge", Sets: "3", Reps: "12"}}

type workoutFixture struct {
	svc      *workoutService
	workouts *memWorkouts
	sessions *memSessions
	storage  *fakeStorage
	owner    primitive.ObjectID
	stranger primitive.ObjectID
	builtin  *domain.Workout
	own      *domain.Workout
	foreign  *domain.Workout
}

func newWorkoutFixture(t *testing.T) *workoutFixture {
	t.Helper()
	f := &workoutFixture{
		sessions: newMemSessions(),
		storage:  &fakeStorage{},
		owner:    primitive.NewObjectID(),
		stranger: primitive.NewObjectID(),
	}
	f.builtin = &domain.Workout{Title: "Full body", Duration: "30 min", Difficulty: "Beginner", Exercises: legDay, CreatorID: domain.DefaultCreatorID,
		VideoURL: "https://youtu.be/dQw4w9WgXcQ"}
	f.own = &domain.Workout{Title: "Leg day", Duration: "45 min", Difficulty: "Hard", Exercises: legDay, CreatorID: f.owner.Hex()}
	f.foreign = &domain.Workout{Title: "Secret", Duration: "10 min", Difficulty: "Easy", Exercises: legDay, CreatorID: f.stranger.Hex()}
	f.workouts = newMemWorkouts(f.sessions, f.builtin, f.own, f.foreign)

	f.svc = NewWorkoutService(f.workouts, f.sessions, f.storage).(*workoutService)
	f.svc.now = fixedClock(scheduleNow)
	return f
}

func TestListWorkouts_LibraryPlusOwn(t *testing.T) {
	f := newWorkoutFixture(t)

	list, err := f.svc.ListWorkouts(context.Background(), f.owner)
	require.NoError(t, err)
	titles := []string{}
	for _, w := range list {
		titles = append(titles, w.Title)
	}
	assert.ElementsMatch(t, []string{"Full body", "Leg day"}, titles)

	list, err = f.svc.ListWorkouts(context.Background(), primitive.NilObjectID)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.workouts.err = errors.New("down")
	_, err = f.svc.ListWorkouts(context.Background(), f.owner)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestGetWorkout(t *testing.T) {
	f := newWorkoutFixture(t)

	d, err := f.svc.GetWorkout(context.Background(), f.owner, f.builtin.ID)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", d.YouTubeID)
	assert.False(t, d.IsOwner)

	d, err = f.svc.GetWorkout(context.Background(), f.owner, f.own.ID)
	require.NoError(t, err)
	assert.True(t, d.IsOwner)
	assert.Empty(t, d.VideoDownloadURL)

	_, err = f.svc.GetWorkout(context.Background(), f.owner, f.foreign.ID)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
	_, err = f.svc.GetWorkout(context.Background(), f.owner, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestCreateWorkout_SchedulesFirstSession(t *testing.T) {
	f := newWorkoutFixture(t)
	date := time.Date(2024, 5, 20, 18, 0, 0, 0, time.UTC)

	w, s, err := f.svc.CreateWorkout(context.Background(), f.owner, CreateWorkoutInput{
		Title: " Push ", Duration: "40 min", Difficulty: "Medium", Exercises: legDay, ScheduledDate: date,
	})
	require.NoError(t, err)
	assert.Equal(t, "Push", w.Title)
	assert.Equal(t, f.owner.Hex(), w.CreatorID)

	assert.Equal(t, w.ID, s.WorkoutID)
	assert.Equal(t, "Push", s.WorkoutTitle)
	assert.Equal(t, domain.SessionScheduled, s.Status)
	assert.True(t, s.ScheduledDate.Equal(date))
	assert.Equal(t, domain.SessionScheduled, f.sessions.get(s.ID).Status)
}

func TestCreateWorkout_Validation(t *testing.T) {
	f := newWorkoutFixture(t)
	date := scheduleNow

	tests := []struct {
		name  string
		input CreateWorkoutInput
	}{
		{"no date", CreateWorkoutInput{Title: "A", Duration: "1", Difficulty: "x", Exercises: legDay}},
		{"no title", CreateWorkoutInput{Duration: "1", Difficulty: "x", Exercises: legDay, ScheduledDate: date}},
		{"no exercises", CreateWorkoutInput{Title: "A", Duration: "1", Difficulty: "x", ScheduledDate: date}},
		{"partial exercise", CreateWorkoutInput{Title: "A", Duration: "1", Difficulty: "x", ScheduledDate: date,
			Exercises: []domain.Exercise{{Name: "Row", Sets: "3"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.CreateWorkout(context.Background(), f.owner, tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUpdateExercises_CreatorOnly(t *testing.T) {
	f := newWorkoutFixture(t)
	next := []domain.Exercise{{Name: "Deadlift", Sets: "5", Reps: "5"}}

	_, err := f.svc.UpdateExercises(context.Background(), f.owner, f.builtin.ID, next)
	assert.ErrorIs(t, err, ErrNotWorkoutCreator)
	_, err = f.svc.UpdateExercises(context.Background(), f.stranger, f.own.ID, next)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
	_, err = f.svc.UpdateExercises(context.Background(), f.owner, f.own.ID, []domain.Exercise{{Name: "x"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	w, err := f.svc.UpdateExercises(context.Background(), f.owner, f.own.ID, next)
	require.NoError(t, err)
	assert.Equal(t, next, w.Exercises)
}

func TestScheduleWorkout(t *testing.T) {
	f := newWorkoutFixture(t)
	date := time.Date(2024, 5, 22, 7, 0, 0, 0, time.UTC)

	s, err := f.svc.ScheduleWorkout(context.Background(), f.owner, f.builtin.ID, date)
	require.NoError(t, err)
	assert.Equal(t, f.owner, s.UserID)
	assert.Equal(t, "Full body", s.WorkoutTitle)
	assert.Equal(t, domain.SessionScheduled, f.sessions.get(s.ID).Status)

	_, err = f.svc.ScheduleWorkout(context.Background(), f.owner, f.foreign.ID, date)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
	_, err = f.svc.ScheduleWorkout(context.Background(), f.owner, f.builtin.ID, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetStats(t *testing.T) {
	f := newWorkoutFixture(t)
	f.sessions.put(scheduledOn(f.owner, scheduleNow.AddDate(0, 0, -2))) // overdue, counts as missed
	done := scheduledOn(f.owner, scheduleNow.AddDate(0, 0, -1))
	at := scheduleNow
	done.Status, done.CompletedDate = domain.SessionCompleted, &at
	f.sessions.put(done)
	f.sessions.put(scheduledOn(f.owner, scheduleNow.AddDate(0, 0, 1)))
	f.sessions.put(scheduledOn(f.stranger, scheduleNow.AddDate(0, 0, -3)))

	stats, err := f.svc.GetStats(context.Background(), f.owner, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, WorkoutStats{Available: 2, Completed: 1, Missed: 1}, *stats)
}

func TestVideoUpload(t *testing.T) {
	f := newWorkoutFixture(t)

	_, err := f.svc.RequestVideoUpload(context.Background(), f.owner, f.builtin.ID, "video/mp4")
	assert.ErrorIs(t, err, ErrNotWorkoutCreator)
	_, err = f.svc.RequestVideoUpload(context.Background(), f.owner, f.own.ID, "image/gif")
	assert.ErrorIs(t, err, ErrInvalidInput)

	up, err := f.svc.RequestVideoUpload(context.Background(), f.owner, f.own.ID, "video/mp4")
	require.NoError(t, err)
	assert.Contains(t, up.UploadURL, up.ObjectKey)

	_, err = f.svc.ConfirmVideoUpload(context.Background(), f.owner, f.own.ID, "workouts/elsewhere/x.mp4")
	assert.ErrorIs(t, err, ErrVideoKeyMismatch)

	w, err := f.svc.ConfirmVideoUpload(context.Background(), f.owner, f.own.ID, up.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, up.ObjectKey, w.VideoObjectKey)

	d, err := f.svc.GetWorkout(context.Background(), f.owner, f.own.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/get/"+up.ObjectKey, d.VideoDownloadURL)

	// a second upload replaces the first object
	up2, err := f.svc.RequestVideoUpload(context.Background(), f.owner, f.own.ID, "video/webm")
	require.NoError(t, err)
	_, err = f.svc.ConfirmVideoUpload(context.Background(), f.owner, f.own.ID, up2.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, []string{up.ObjectKey}, f.storage.deleted)
}

func TestVideoUpload_StorageDisabled(t *testing.T) {
	f := newWorkoutFixture(t)
	svc := NewWorkoutService(f.workouts, f.sessions, nil)

	_, err := svc.RequestVideoUpload(context.Background(), f.owner, f.own.ID, "video/mp4")
	assert.ErrorIs(t, err, ErrVideoStorageDisabled)
}
