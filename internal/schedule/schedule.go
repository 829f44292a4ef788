// Package schedule holds the pure session reconciliation rules: which sessions are
// overdue, how calendar days are marked, and which sessions fall on a given day.
// Nothing here touches the store; callers persist the transitions it computes.
package schedule

import (
	"time"

	"fittrack/app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar key format used for markers and day selection.
const DateLayout = "2006-01-02"

// Marker colors.
const (
	ColorCompleted = "#34D399"
	ColorMissed    = "#EF4444"
	ColorScheduled = "#3B82F6"
)

// Marker annotates a calendar day that has at least one session.
type Marker struct {
	Marked   bool                 `json:"marked"`
	DotColor string               `json:"dotColor"`
	Status   domain.SessionStatus `json:"status"`
}

// StartOfDay truncates t to local midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateKey formats the local calendar date of t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a DateLayout string as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// IsOverdue reports whether a session must move to missed: still scheduled and
// planned strictly before today's midnight. Sessions earlier today are not overdue.
func IsOverdue(s *domain.WorkoutSession, now time.Time, loc *time.Location) bool {
	return s.Status == domain.SessionScheduled && s.ScheduledDate.Before(StartOfDay(now, loc))
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	// MissedIDs lists the sessions that transition scheduled -> missed.
	MissedIDs []primitive.ObjectID
	// Sessions is the input with those transitions applied, in input order.
	Sessions []domain.WorkoutSession
}

// Reconcile finds overdue sessions and returns the post-transition view. The input
// slice is not modified.
func Reconcile(sessions []domain.WorkoutSession, now time.Time, loc *time.Location) Result {
	res := Result{Sessions: make([]domain.WorkoutSession, len(sessions))}
	copy(res.Sessions, sessions)
	for i := range res.Sessions {
		s := &res.Sessions[i]
		if IsOverdue(s, now, loc) {
			s.Status = domain.SessionMissed
			res.MissedIDs = append(res.MissedIDs, s.ID)
		}
	}
	return res
}

func statusRank(st domain.SessionStatus) int {
	switch st {
	case domain.SessionCompleted:
		return 3
	case domain.SessionMissed:
		return 2
	case domain.SessionScheduled:
		return 1
	default:
		return 0
	}
}

func colorFor(st domain.SessionStatus) string {
	switch st {
	case domain.SessionCompleted:
		return ColorCompleted
	case domain.SessionMissed:
		return ColorMissed
	default:
		return ColorScheduled
	}
}

// Markers builds one marker per local date with sessions. A day with mixed
// statuses shows completed over missed over scheduled.
func Markers(sessions []domain.WorkoutSession, loc *time.Location) map[string]Marker {
	best := make(map[string]domain.SessionStatus, len(sessions))
	for i := range sessions {
		key := DateKey(sessions[i].ScheduledDate, loc)
		cur, ok := best[key]
		if !ok || statusRank(sessions[i].Status) > statusRank(cur) {
			best[key] = sessions[i].Status
		}
	}

	markers := make(map[string]Marker, len(best))
	for key, st := range best {
		if !st.IsValid() {
			st = domain.SessionScheduled
		}
		markers[key] = Marker{Marked: true, DotColor: colorFor(st), Status: st}
	}
	return markers
}

// SessionsOnDay returns the sessions whose scheduled date falls on the local calendar
// day of day, preserving input order.
func SessionsOnDay(sessions []domain.WorkoutSession, day time.Time, loc *time.Location) []domain.WorkoutSession {
	key := DateKey(day, loc)
	out := make([]domain.WorkoutSession, 0)
	for _, s := range sessions {
		if DateKey(s.ScheduledDate, loc) == key {
			out = append(out, s)
		}
	}
	return out
}

// Stats counts sessions by final status.
type Stats struct {
	Completed int `json:"completed"`
	Missed    int `json:"missed"`
}

// Count tallies completed and missed sessions.
func Count(sessions []domain.WorkoutSession) Stats {
	var st Stats
	for _, s := range sessions {
		switch s.Status {
		case domain.SessionCompleted:
			st.Completed++
		case domain.SessionMissed:
			st.Missed++
		}
	}
	return st
}
