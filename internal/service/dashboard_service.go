package service

import (
	"context"
	"errors"
	"time"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"
	"fittrack/app/internal/schedule"
	"fittrack/app/internal/sensor"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxClockSkew is how far in the future a device sample may be stamped.
const maxClockSkew = 5 * time.Minute

// Dashboard is the home screen summary.
type Dashboard struct {
	Name       string      `json:"name"`
	BMI        *domain.BMI `json:"bmi,omitempty"`
	Steps      int         `json:"steps"`
	StepGoal   int         `json:"stepGoal"`
	Progress   float64     `json:"progress"`
	Calories   int         `json:"calories"`
	DistanceKm float64     `json:"distanceKm"`
}

// StepUpdate is one frame of the live step stream.
type StepUpdate struct {
	Steps      int     `json:"steps"`
	Calories   int     `json:"calories"`
	DistanceKm float64 `json:"distanceKm"`
}

func newStepUpdate(steps int) StepUpdate {
	return StepUpdate{
		Steps:      steps,
		Calories:   domain.CaloriesForSteps(steps),
		DistanceKm: domain.DistanceKmForSteps(steps),
	}
}

type DashboardService interface {
	GetDashboard(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*Dashboard, error)
	// RecordSteps stores a device sample and notifies live subscribers.
	RecordSteps(ctx context.Context, userID primitive.ObjectID, steps int, recordedAt time.Time) (*domain.StepSample, error)
	// WatchSteps sends today's running total to fn: once on start and again whenever a
	// sample recorded today arrives. It blocks until ctx is done, the stream shuts down, or fn fails.
	WatchSteps(ctx context.Context, userID primitive.ObjectID, loc *time.Location, fn func(StepUpdate) error) error
}

type dashboardService struct {
	userRepo repository.UserRepository
	stepRepo repository.StepRepository
	hub      *sensor.Hub
	stepGoal int
	now      func() time.Time
}

func NewDashboardService(userRepo repository.UserRepository, stepRepo repository.StepRepository, hub *sensor.Hub, stepGoal int) DashboardService {
	return &dashboardService{
		userRepo: userRepo,
		stepRepo: stepRepo,
		hub:      hub,
		stepGoal: stepGoal,
		now:      time.Now,
	}
}

func (s *dashboardService) stepsToday(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (int, error) {
	steps, err := s.stepRepo.SumSince(ctx, userID, schedule.StartOfDay(s.now(), loc))
	if err != nil {
		return 0, storeErr("sum steps", err)
	}
	return steps, nil
}

func (s *dashboardService) GetDashboard(ctx context.Context, userID primitive.ObjectID, loc *time.Location) (*Dashboard, error) {
	d := &Dashboard{Name: domain.UnknownName, StepGoal: s.stepGoal}
	if userID.IsZero() {
		return d, nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	switch {
	case err == nil:
		d.Name = user.DisplayName()
		if user.Height != nil && user.Weight != nil {
			d.BMI = domain.CalculateBMI(*user.Height, *user.Weight)
		}
	case errors.Is(err, repository.ErrNotFound):
		// an account without a profile document still gets its step summary
	default:
		return nil, storeErr("get user", err)
	}

	steps, err := s.stepsToday(ctx, userID, loc)
	if err != nil {
		return nil, err
	}
	u := newStepUpdate(steps)
	d.Steps, d.Calories, d.DistanceKm = u.Steps, u.Calories, u.DistanceKm
	if s.stepGoal > 0 {
		d.Progress = float64(steps) / float64(s.stepGoal)
	}
	return d, nil
}

func (s *dashboardService) RecordSteps(ctx context.Context, userID primitive.ObjectID, steps int, recordedAt time.Time) (*domain.StepSample, error) {
	if userID.IsZero() {
		return nil, ErrForbidden
	}
	if steps <= 0 {
		return nil, invalidInput("steps must be positive")
	}
	now := s.now()
	if recordedAt.IsZero() {
		recordedAt = now
	}
	if recordedAt.After(now.Add(maxClockSkew)) {
		return nil, invalidInput("recordedAt is in the future")
	}

	sample := &domain.StepSample{UserID: userID, Steps: steps, RecordedAt: recordedAt.UTC()}
	id, err := s.stepRepo.Add(ctx, sample)
	if err != nil {
		return nil, storeErr("add step sample", err)
	}
	sample.ID = id

	s.hub.Publish(*sample)
	return sample, nil
}

func (s *dashboardService) WatchSteps(ctx context.Context, userID primitive.ObjectID, loc *time.Location, fn func(StepUpdate) error) error {
	if userID.IsZero() {
		return ErrForbidden
	}
	logger := log.WithField("user_id", userID.Hex())
	logger.Debug("step stream opened")
	defer logger.Debug("step stream closed")

	var (
		dayStart time.Time
		total    int
		// samples already in total whose publication may still be on its way
		counted map[primitive.ObjectID]struct{}
	)
	loadDay := func() error {
		dayStart = schedule.StartOfDay(s.now(), loc)
		samples, err := s.stepRepo.ListSince(ctx, userID, dayStart)
		if err != nil {
			return storeErr("list step samples", err)
		}
		total = 0
		counted = make(map[primitive.ObjectID]struct{}, len(samples))
		for _, sample := range samples {
			total += sample.Steps
			counted[sample.ID] = struct{}{}
		}
		return nil
	}

	// The baseline is read after subscribing, so no sample stored meanwhile is lost.
	return s.hub.Watch(ctx, userID, func() error {
		if err := loadDay(); err != nil {
			return err
		}
		return fn(newStepUpdate(total))
	}, func(batch []domain.StepSample) error {
		changed := false
		if !schedule.StartOfDay(s.now(), loc).Equal(dayStart) {
			logger.Debug("step stream crossed midnight")
			if err := loadDay(); err != nil {
				return err
			}
			changed = true
		}
		for _, sample := range batch {
			if _, ok := counted[sample.ID]; ok {
				delete(counted, sample.ID)
				continue
			}
			if sample.RecordedAt.Before(dayStart) {
				continue
			}
			total += sample.Steps
			changed = true
		}
		if !changed {
			return nil
		}
		return fn(newStepUpdate(total))
	})
}
