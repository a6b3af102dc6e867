// Package analytics ingests model query events from the public catalog.
// Events are the raw material the history aggregation reads back.
package analytics

import (
	"context"
	"strings"
	"time"

	"osmadmin.org/internal/ids"
)

// Event is one model query reported by the catalog frontend.
type Event struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"modelId,omitempty"`
	ModelName string    `json:"modelName"`
	SessionID string    `json:"sessionId,omitempty"`
	QueriedAt time.Time `json:"queriedAt"`
}

// Store persists accepted events.
type Store interface {
	InsertEvents(ctx context.Context, events []Event) error
}

// Service validates and stores incoming event batches.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService wires the service over its store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

const maxBatchSize = 500

// Ingest accepts a batch of events and returns how many were stored.
// Events without a model name are dropped silently; the endpoint is public
// and a partial batch is better than rejecting the lot. Missing timestamps
// get the arrival time, and future timestamps are clamped to it.
func (s *Service) Ingest(ctx context.Context, events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if len(events) > maxBatchSize {
		events = events[:maxBatchSize]
	}
	now := s.now().UTC()
	accepted := make([]Event, 0, len(events))
	for _, event := range events {
		event.ModelName = strings.TrimSpace(event.ModelName)
		if event.ModelName == "" {
			continue
		}
		if event.QueriedAt.IsZero() || event.QueriedAt.After(now) {
			event.QueriedAt = now
		} else {
			event.QueriedAt = event.QueriedAt.UTC()
		}
		event.ID = ids.New()
		accepted = append(accepted, event)
	}
	if len(accepted) == 0 {
		return 0, nil
	}
	if err := s.store.InsertEvents(ctx, accepted); err != nil {
		return 0, err
	}
	return len(accepted), nil
}
