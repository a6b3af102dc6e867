package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"osmadmin.org/internal/auth"
)

type stubStore struct {
	appendFn func(ctx context.Context, entry *Entry) error
	entries  []Entry
}

func (s *stubStore) Append(ctx context.Context, entry *Entry) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, entry)
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubStore) List(context.Context, Filter, int, int) ([]Entry, int, error) {
	return nil, 0, nil
}

func (s *stubStore) Find(context.Context, string) (Entry, error) {
	return Entry{}, ErrNotFound
}

func TestRecordUsesIdentityActor(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store)

	ctx := auth.ContextWithIdentity(context.Background(), auth.Identity{
		SubjectID: "user-1",
		Email:     "u1@example.com",
	})
	rec.Record(ctx, "role.create", "role", "r-1", "Analyst", map[string]string{"name": "Analyst"})

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	got := store.entries[0]
	if got.ActorID != "user-1" || got.ActorName != "u1@example.com" {
		t.Fatalf("unexpected actor %q/%q", got.ActorID, got.ActorName)
	}
	if got.Action != "role.create" || got.EntityType != "role" || got.EntityID != "r-1" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if len(got.Changes) == 0 {
		t.Fatal("changes payload should be recorded")
	}
	if got.ID == "" {
		t.Fatal("entry id should be assigned")
	}
}

func TestRecordFallsBackToSystemActor(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store)

	rec.Record(context.Background(), "invitation.accept", "user", "u-9", "new@example.com", nil)

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	got := store.entries[0]
	if got.ActorID != SystemActor || got.ActorName != SystemActor {
		t.Fatalf("anonymous flow should attribute to %q, got %q/%q", SystemActor, got.ActorID, got.ActorName)
	}
	if got.Changes != nil {
		t.Fatal("nil changes should stay empty")
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := &stubStore{appendFn: func(context.Context, *Entry) error {
		return errors.New("write failed")
	}}
	rec := NewRecorder(store)

	// Record returns nothing and must not panic; the caller's mutation has
	// already committed.
	rec.Record(context.Background(), "user.update", "user", "u-1", "u1@example.com", nil)
}

func TestRecordTimestampsWithInjectedClock(t *testing.T) {
	store := &stubStore{}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(store).WithClock(func() time.Time { return fixed })

	rec.Record(context.Background(), "model-status.create", "model-status", "ms-1", "Active", nil)

	if got := store.entries[0].Timestamp; !got.Equal(fixed) {
		t.Fatalf("expected %v, got %v", fixed, got)
	}
}

func TestRecordCarriesRequestID(t *testing.T) {
	store := &stubStore{}
	rec := NewRecorder(store)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	rec.Record(ctx, "role.delete", "role", "r-2", "Old", nil)

	if got := store.entries[0].RequestID; got != "req-123" {
		t.Fatalf("expected request id to flow into the entry, got %q", got)
	}
}
