package service

//go:generate mockgen -destination=mocks/mock_services.go -package=mocks fittrack/app/internal/service AuthService,DashboardService,FriendService,ProfileService,ScheduleService,WorkoutService

import (
	"errors"
	"fmt"
)

// --- Error Definitions shared by all services ---
var (
	// ErrStoreUnavailable marks a failure of the backing store. Callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
)

// storeErr wraps an unexpected repository error so handlers can map it to a retryable response.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
