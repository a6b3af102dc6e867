package analytics

import (
	"context"
	"testing"
	"time"
)

type captureStore struct{ inserted []Event }

func (s *captureStore) InsertEvents(_ context.Context, events []Event) error {
	s.inserted = append(s.inserted, events...)
	return nil
}

var ingestNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store Store) *Service {
	return NewService(store).WithClock(func() time.Time { return ingestNow })
}

func TestIngestDropsNamelessEvents(t *testing.T) {
	store := &captureStore{}
	svc := newTestService(store)

	accepted, err := svc.Ingest(context.Background(), []Event{
		{ModelName: "Credit Score", QueriedAt: ingestNow.Add(-time.Hour)},
		{ModelName: "   "},
		{ModelName: "Fraud Score", QueriedAt: ingestNow.Add(-time.Minute)},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if accepted != 2 || len(store.inserted) != 2 {
		t.Fatalf("expected 2 accepted, got %d stored %d", accepted, len(store.inserted))
	}
}

func TestIngestStampsAndClampsTimestamps(t *testing.T) {
	store := &captureStore{}
	svc := newTestService(store)

	if _, err := svc.Ingest(context.Background(), []Event{
		{ModelName: "A"},
		{ModelName: "B", QueriedAt: ingestNow.Add(48 * time.Hour)},
	}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	for _, event := range store.inserted {
		if !event.QueriedAt.Equal(ingestNow) {
			t.Fatalf("event %q: expected arrival time, got %v", event.ModelName, event.QueriedAt)
		}
		if event.ID == "" {
			t.Fatalf("event %q: id not assigned", event.ModelName)
		}
	}
}

func TestIngestEmptyBatchIsNoop(t *testing.T) {
	store := &captureStore{}
	svc := newTestService(store)

	accepted, err := svc.Ingest(context.Background(), nil)
	if err != nil || accepted != 0 {
		t.Fatalf("expected clean noop, got %d/%v", accepted, err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("store must not be touched")
	}
}

func TestIngestCapsBatchSize(t *testing.T) {
	store := &captureStore{}
	svc := newTestService(store)

	events := make([]Event, maxBatchSize+50)
	for i := range events {
		events[i] = Event{ModelName: "A", QueriedAt: ingestNow.Add(-time.Hour)}
	}
	accepted, err := svc.Ingest(context.Background(), events)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if accepted != maxBatchSize {
		t.Fatalf("expected cap at %d, got %d", maxBatchSize, accepted)
	}
}
