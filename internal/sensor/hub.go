// Package sensor fans out live step samples pushed by devices to the dashboards
// watching them. A subscription is the only acquire/release resource of the service:
// take it with Subscribe or Watch and it is released exactly once.
package sensor

import (
	"context"
	"errors"
	"sync"

	"fittrack/app/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrClosed is returned by Next once the subscription or the hub is closed.
var ErrClosed = errors.New("step subscription closed")

// Hub routes step samples to the subscriptions of a user.
type Hub struct {
	mu     sync.Mutex
	subs   map[primitive.ObjectID]map[*Subscription]struct{}
	closed bool
	gauge  prometheus.Gauge
}

// Option configures a Hub.
type Option func(*Hub)

// WithActiveGauge tracks the number of open subscriptions.
func WithActiveGauge(g prometheus.Gauge) Option {
	return func(h *Hub) { h.gauge = g }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{subs: make(map[primitive.ObjectID]map[*Subscription]struct{})}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription receives the step samples of one user. Samples published while the
// consumer is busy are queued and handed over together, never dropped.
type Subscription struct {
	hub    *Hub
	userID primitive.ObjectID

	mu      sync.Mutex
	pending []domain.StepSample
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Subscribe registers a new subscription. The caller must Close it.
func (h *Hub) Subscribe(userID primitive.ObjectID) *Subscription {
	s := &Subscription{
		hub:    h,
		userID: userID,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.done) })
		return s
	}
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	if h.gauge != nil {
		h.gauge.Inc()
	}
	return s
}

// Publish delivers a stored sample to every subscription of its user. Never blocks.
func (h *Hub) Publish(sample domain.StepSample) {
	if sample.Steps == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[sample.UserID] {
		s.push(sample)
	}
}

// Subscribers returns the number of open subscriptions of the user.
func (h *Hub) Subscribers(userID primitive.ObjectID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close releases every open subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[primitive.ObjectID]map[*Subscription]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.release(false)
		}
	}
}

// Watch holds a subscription for the duration of the call and feeds every batch of
// samples to fn. onSubscribed, when set, runs once the subscription is registered, so a
// caller can read a baseline without losing samples published meanwhile. Watch returns when ctx is done,
// the hub closes, or a callback fails; the subscription is released on every path.
func (h *Hub) Watch(ctx context.Context, userID primitive.ObjectID, onSubscribed func() error, fn func([]domain.StepSample) error) error {
	sub := h.Subscribe(userID)
	defer sub.Close()

	if onSubscribed != nil {
		if err := onSubscribed(); err != nil {
			return err
		}
	}

	for {
		batch, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
}

func (s *Subscription) push(sample domain.StepSample) {
	s.mu.Lock()
	s.pending = append(s.pending, sample)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until at least one sample is available and returns every sample queued
// since the previous call, in publish order.
func (s *Subscription) Next(ctx context.Context) ([]domain.StepSample, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrClosed
		case <-s.notify:
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			if len(batch) > 0 {
				return batch, nil
			}
		}
	}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.release(true)
}

func (s *Subscription) release(unregister bool) {
	s.once.Do(func() {
		if unregister {
			s.hub.mu.Lock()
			if set, ok := s.hub.subs[s.userID]; ok {
				delete(set, s)
				if len(set) == 0 {
					delete(s.hub.subs, s.userID)
				}
			}
			s.hub.mu.Unlock()
		}
		if s.hub.gauge != nil {
			s.hub.gauge.Dec()
		}
		close(s.done)
	})
}
