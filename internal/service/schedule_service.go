package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/events"
	"fittrack/app/internal/metrics"
	"fittrack/app/internal/repository"
	"fittrack/app/internal/schedule"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSessionNotFound   = errors.New("workout session not found")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

// Reconciliation is a user's schedule after overdue sessions were marked missed.
type Reconciliation struct {
	Markers  map[string]schedule.Marker
	Sessions []domain.WorkoutSession
}

// ScheduleView is the calendar screen: markers for every day plus the sessions of one day.
type ScheduleView struct {
	Markers      map[string]schedule.Marker `json:"markers"`
	SelectedDate string                     `json:"selectedDate"`
	Sessions     []domain.WorkoutSession    `json:"sessions"`
}

// CompletionResult carries the completed session and the refreshed schedule around it.
type CompletionResult struct {
	Session  *domain.WorkoutSession `json:"session"`
	Schedule *ScheduleView          `json:"schedule"`
}

type ScheduleService interface {
	// Reconcile marks the user's overdue sessions missed in one batch and projects the
	// calendar markers from the resulting state.
	Reconcile(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*Reconciliation, error)
	// GetSchedule reconciles and returns the view for day; a zero day selects today.
	GetSchedule(ctx context.Context, userID primitive.ObjectID, day time.Time, loc *time.Location) (*ScheduleView, error)
	// CompleteSession moves a scheduled session to completed. Completing it again is a no-op.
	CompleteSession(ctx context.Context, userID, sessionID primitive.ObjectID, loc *time.Location) (*CompletionResult, error)
}

type scheduleService struct {
	sessionRepo repository.SessionRepository
	publisher   events.Publisher
	now         func() time.Time
}

func NewScheduleService(sessionRepo repository.SessionRepository, publisher events.Publisher) ScheduleService {
	return &scheduleService{
		sessionRepo: sessionRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *scheduleService) Reconcile(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*Reconciliation, error) {
	if userID.IsZero() {
		return &Reconciliation{Markers: map[string]schedule.Marker{}}, nil
	}

	start := time.Now()
	rec, err := s.reconcile(ctx, userID, loc)
	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues(metrics.OutcomeError).Inc()
		log.WithError(err).WithField("user_id", userID.Hex()).Warn("reconcile failed")
		return nil, err
	}
	metrics.ReconcileRuns.WithLabelValues(metrics.OutcomeOK).Inc()
	return rec, nil
}

func (s *scheduleService) reconcile(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*Reconciliation, error) {
	sessions, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list sessions", err)
	}

	res := schedule.Reconcile(sessions, s.now(), loc)
	if len(res.MissedIDs) > 0 {
		updated, err := s.sessionRepo.MarkMissed(ctx, userID, res.MissedIDs)
		if err != nil {
			return nil, storeErr("mark sessions missed", err)
		}
		metrics.SessionsMissed.Add(float64(updated))
		log.WithFields(log.Fields{
			"user_id": userID.Hex(),
			"overdue": len(res.MissedIDs),
			"updated": updated,
		}).Info("sessions marked missed")

		if updated > 0 {
			s.publishMissed(ctx, userID, updated)
		}
		// Fewer updates than overdue sessions means another writer got there first;
		// project from what the store holds now.
		if updated != int64(len(res.MissedIDs)) {
			if sessions, err = s.sessionRepo.ListByUser(ctx, userID); err != nil {
				return nil, storeErr("list sessions", err)
			}
			res = schedule.Reconcile(sessions, s.now(), loc)
		}
	}

	return &Reconciliation{
		Markers:  schedule.Markers(res.Sessions, loc),
		Sessions: res.Sessions,
	}, nil
}

func (s *scheduleService) publishMissed(ctx context.Context, userID primitive.ObjectID, count int64) {
	event := events.New(events.TypeSessionsMissed, userID.Hex(), map[string]any{"count": count})
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("user_id", userID.Hex()).Error("publish sessions missed event")
	}
}

func (s *scheduleService) GetSchedule(ctx context.Context, userID primitive.ObjectID, day time.Time, loc *time.Location) (*ScheduleView, error) {
	if day.IsZero() {
		day = s.now()
	}
	view := &ScheduleView{
		Markers:      map[string]schedule.Marker{},
		SelectedDate: schedule.DateKey(day, loc),
		Sessions:     []domain.WorkoutSession{},
	}
	if userID.IsZero() {
		return view, nil
	}

	rec, err := s.Reconcile(ctx, userID, loc)
	if err != nil {
		return nil, err
	}
	view.Markers = rec.Markers
	if onDay := schedule.SessionsOnDay(rec.Sessions, day, loc); len(onDay) > 0 {
		view.Sessions = onDay
	}
	return view, nil
}

func (s *scheduleService) CompleteSession(ctx context.Context, userID, sessionID primitive.ObjectID, loc *time.Location) (*CompletionResult, error) {
	if userID.IsZero() {
		view, _ := s.GetSchedule(ctx, userID, time.Time{}, loc)
		return &CompletionResult{Schedule: view}, nil
	}
	logger := log.WithFields(log.Fields{"user_id": userID.Hex(), "session_id": sessionID.Hex()})

	session, err := s.sessionRepo.Complete(ctx, userID, sessionID, s.now())
	switch {
	case err == nil:
		metrics.SessionsCompleted.Inc()
		logger.Info("session completed")
	case errors.Is(err, repository.ErrNotFound):
		// Nothing scheduled matched; find out why.
		session, err = s.explainCompleteMiss(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}
		logger.Debug("session already completed")
	default:
		return nil, storeErr("complete session", err)
	}

	view, err := s.GetSchedule(ctx, userID, session.ScheduledDate, loc)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{Session: session, Schedule: view}, nil
}

func (s *scheduleService) explainCompleteMiss(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.WorkoutSession, error) {
	existing, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalid) {
			return nil, ErrSessionNotFound
		}
		return nil, storeErr("get session", err)
	}
	if existing.UserID != userID {
		return nil, ErrSessionNotFound
	}

	switch existing.Status {
	case domain.SessionCompleted:
		return existing, nil
	case domain.SessionMissed:
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidTransition, existing.Status)
	default:
		// still scheduled: the conditional update raced with another writer
		return nil, storeErr("complete session", repository.ErrUpdateFailed)
	}
}
