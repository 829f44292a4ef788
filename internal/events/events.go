package events

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

// Event types published on the events exchange.
const (
	TypePasswordResetRequested = "password_reset_requested"
	TypeFriendRequestSent      = "friend_request_sent"
	TypeSessionsMissed         = "sessions_missed"
)

// Event is the JSON envelope published to consumers (mailer, notifications).
type Event struct {
	Type       string         `json:"type"`
	UserID     string         `json:"userId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

func New(eventType, userID string, data map[string]any) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers domain events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.WithField("type", event.Type).Infof("event: %s", body)
	return nil
}
