package schedule_test

import (
	"testing"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func session(date time.Time, status domain.SessionStatus) domain.WorkoutSession {
	s := domain.WorkoutSession{
		ID:            primitive.NewObjectID(),
		UserID:        primitive.NewObjectID(),
		WorkoutID:     primitive.NewObjectID(),
		WorkoutTitle:  "Leg day",
		ScheduledDate: date,
		Status:        status,
	}
	if status == domain.SessionCompleted {
		done := date.Add(time.Hour)
		s.CompletedDate = &done
	}
	return s
}

func TestStartOfDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC) // already March 11 in Berlin
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), schedule.StartOfDay(now, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, berlin), schedule.StartOfDay(now, berlin))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)
	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		date   time.Time
		status domain.SessionStatus
		want   bool
	}{
		{"yesterday scheduled", midnight.Add(-time.Hour), domain.SessionScheduled, true},
		{"one ns before midnight", midnight.Add(-time.Nanosecond), domain.SessionScheduled, true},
		{"exactly midnight", midnight, domain.SessionScheduled, false},
		{"earlier today", now.Add(-3 * time.Hour), domain.SessionScheduled, false},
		{"tomorrow", now.Add(24 * time.Hour), domain.SessionScheduled, false},
		{"yesterday completed", midnight.Add(-time.Hour), domain.SessionCompleted, false},
		{"yesterday missed", midnight.Add(-time.Hour), domain.SessionMissed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session(tt.date, tt.status)
			assert.Equal(t, tt.want, schedule.IsOverdue(&s, now, time.UTC))
		})
	}
}

func TestReconcile_YesterdayAndToday(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	yesterday := session(now.Add(-24*time.Hour), domain.SessionScheduled)
	today := session(now.Add(2*time.Hour), domain.SessionScheduled)
	input := []domain.WorkoutSession{yesterday, today}

	res := schedule.Reconcile(input, now, time.UTC)

	require.Len(t, res.MissedIDs, 1)
	assert.Equal(t, yesterday.ID, res.MissedIDs[0])
	assert.Equal(t, domain.SessionMissed, res.Sessions[0].Status)
	assert.Equal(t, domain.SessionScheduled, res.Sessions[1].Status)
	// input untouched
	assert.Equal(t, domain.SessionScheduled, input[0].Status)

	markers := schedule.Markers(res.Sessions, time.UTC)
	assert.Equal(t, schedule.ColorMissed, markers["2024-05-14"].DotColor)
	assert.Equal(t, schedule.ColorScheduled, markers["2024-05-15"].DotColor)
	assert.True(t, markers["2024-05-15"].Marked)
}

func TestReconcile_Idempotent(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	input := []domain.WorkoutSession{
		session(now.Add(-72*time.Hour), domain.SessionScheduled),
		session(now.Add(-48*time.Hour), domain.SessionCompleted),
		session(now.Add(-24*time.Hour), domain.SessionMissed),
		session(now, domain.SessionScheduled),
		session(now.Add(48*time.Hour), domain.SessionScheduled),
	}

	first := schedule.Reconcile(input, now, time.UTC)
	second := schedule.Reconcile(first.Sessions, now, time.UTC)

	assert.Len(t, first.MissedIDs, 1)
	assert.Empty(t, second.MissedIDs)
	assert.Equal(t, first.Sessions, second.Sessions)
}

func TestReconcile_FutureUntouched(t *testing.T) {
	now := time.Date(2024, 5, 15, 23, 59, 0, 0, time.UTC)
	input := []domain.WorkoutSession{
		session(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), domain.SessionScheduled),
		session(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), domain.SessionScheduled),
		session(time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC), domain.SessionCompleted),
	}
	res := schedule.Reconcile(input, now, time.UTC)
	assert.Empty(t, res.MissedIDs)
	assert.Equal(t, input, res.Sessions)
}

func TestMarkers_Priority(t *testing.T) {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		statuses []domain.SessionStatus
		want     string
	}{
		{"completed wins over missed", []domain.SessionStatus{domain.SessionMissed, domain.SessionCompleted}, schedule.ColorCompleted},
		{"completed wins regardless of order", []domain.SessionStatus{domain.SessionCompleted, domain.SessionMissed, domain.SessionScheduled}, schedule.ColorCompleted},
		{"missed over scheduled", []domain.SessionStatus{domain.SessionScheduled, domain.SessionMissed}, schedule.ColorMissed},
		{"only scheduled", []domain.SessionStatus{domain.SessionScheduled, domain.SessionScheduled}, schedule.ColorScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sessions []domain.WorkoutSession
			for i, st := range tt.statuses {
				sessions = append(sessions, session(day.Add(time.Duration(i)*time.Hour), st))
			}
			markers := schedule.Markers(sessions, time.UTC)
			require.Len(t, markers, 1)
			assert.Equal(t, tt.want, markers["2024-05-10"].DotColor)

			// reversed input must not change the outcome
			for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
				sessions[i], sessions[j] = sessions[j], sessions[i]
			}
			assert.Equal(t, tt.want, schedule.Markers(sessions, time.UTC)["2024-05-10"].DotColor)
		})
	}
}

func TestMarkers_OneEntryPerDate(t *testing.T) {
	sessions := []domain.WorkoutSession{
		session(time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC), domain.SessionScheduled),
		session(time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC), domain.SessionScheduled),
		session(time.Date(2024, 5, 12, 7, 0, 0, 0, time.UTC), domain.SessionCompleted),
	}
	markers := schedule.Markers(sessions, time.UTC)
	assert.Len(t, markers, 2)
	assert.Empty(t, schedule.Markers(nil, time.UTC))
}

func TestSessionsOnDay(t *testing.T) {
	morning := session(time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC), domain.SessionScheduled)
	evening := session(time.Date(2024, 5, 10, 21, 45, 0, 0, time.UTC), domain.SessionCompleted)
	other := session(time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), domain.SessionScheduled)
	all := []domain.WorkoutSession{evening, other, morning}

	got := schedule.SessionsOnDay(all, time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, got, 2)
	assert.Equal(t, evening.ID, got[0].ID)
	assert.Equal(t, morning.ID, got[1].ID)

	assert.Empty(t, schedule.SessionsOnDay(all, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), time.UTC))
}

func TestSessionsOnDay_TimeZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 20:00 UTC on the 10th is the 11th in Tokyo
	late := session(time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC), domain.SessionScheduled)
	day, err := schedule.ParseDate("2024-05-11", tokyo)
	require.NoError(t, err)

	assert.Len(t, schedule.SessionsOnDay([]domain.WorkoutSession{late}, day, tokyo), 1)
	assert.Empty(t, schedule.SessionsOnDay([]domain.WorkoutSession{late}, day, time.UTC))
}

func TestCount(t *testing.T) {
	now := time.Now()
	st := schedule.Count([]domain.WorkoutSession{
		session(now, domain.SessionCompleted),
		session(now, domain.SessionCompleted),
		session(now, domain.SessionMissed),
		session(now, domain.SessionScheduled),
	})
	assert.Equal(t, schedule.Stats{Completed: 2, Missed: 1}, st)
}
