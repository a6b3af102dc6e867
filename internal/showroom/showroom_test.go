package showroom

import (
	"context"
	"errors"
	"testing"
	"time"

	"osmadmin.org/internal/audit"
)

type stubStore struct {
	featured []Entry
	config   Config
	models   map[string]Model

	added      []Entry
	removed    []string
	reordered  []string
	saved      *Config
	poolSearch string
}

func (s *stubStore) Featured(context.Context) ([]Entry, error) { return s.featured, nil }

func (s *stubStore) Pool(_ context.Context, search string) ([]Model, error) {
	s.poolSearch = search
	return nil, nil
}

func (s *stubStore) FindModel(_ context.Context, modelID string) (Model, error) {
	model, ok := s.models[modelID]
	if !ok {
		return Model{}, ErrNotFound
	}
	return model, nil
}

func (s *stubStore) AddFeatured(_ context.Context, entry Entry) error {
	for _, existing := range s.featured {
		if existing.ModelID == entry.ModelID {
			return ErrConflict
		}
	}
	s.added = append(s.added, entry)
	return nil
}

func (s *stubStore) RemoveFeatured(_ context.Context, modelID string) error {
	s.removed = append(s.removed, modelID)
	return nil
}

func (s *stubStore) ReorderFeatured(_ context.Context, orderedEntryIDs []string) error {
	s.reordered = orderedEntryIDs
	return nil
}

func (s *stubStore) Config(context.Context) (Config, error) { return s.config, nil }

func (s *stubStore) SaveConfig(_ context.Context, config Config) error {
	s.saved = &config
	return nil
}

type nopAuditStore struct{}

func (nopAuditStore) Append(context.Context, *audit.Entry) error { return nil }
func (nopAuditStore) List(context.Context, audit.Filter, int, int) ([]audit.Entry, int, error) {
	return nil, 0, nil
}
func (nopAuditStore) Find(context.Context, string) (audit.Entry, error) {
	return audit.Entry{}, audit.ErrNotFound
}

func newTestService(store Store) *Service {
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return NewService(store, audit.NewRecorder(nopAuditStore{})).
		WithClock(func() time.Time { return fixed })
}

func threeFeatured() []Entry {
	return []Entry{
		{ID: "e-1", ModelID: "m-1", Position: 0},
		{ID: "e-2", ModelID: "m-2", Position: 1},
		{ID: "e-3", ModelID: "m-3", Position: 2},
	}
}

func TestFeatureAppendsAtEnd(t *testing.T) {
	store := &stubStore{
		featured: threeFeatured(),
		config:   Config{MaxFeatured: 6},
		models:   map[string]Model{"m-9": {ID: "m-9", Name: "Score Nine", Eligible: true}},
	}
	svc := newTestService(store)

	entry, err := svc.Feature(context.Background(), "m-9")
	if err != nil {
		t.Fatalf("feature: %v", err)
	}
	if entry.Position != 3 {
		t.Fatalf("expected position 3, got %d", entry.Position)
	}
	if entry.ModelName != "Score Nine" {
		t.Fatalf("model name not carried over: %+v", entry)
	}
}

func TestFeatureRespectsCapacity(t *testing.T) {
	store := &stubStore{
		featured: threeFeatured(),
		config:   Config{MaxFeatured: 3},
		models:   map[string]Model{"m-9": {ID: "m-9", Name: "Score Nine"}},
	}
	svc := newTestService(store)

	if _, err := svc.Feature(context.Background(), "m-9"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestFeatureUnknownModel(t *testing.T) {
	store := &stubStore{config: Config{MaxFeatured: 6}, models: map[string]Model{}}
	svc := newTestService(store)

	if _, err := svc.Feature(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFeatureDuplicateIsConflict(t *testing.T) {
	store := &stubStore{
		featured: threeFeatured()[:2],
		config:   Config{MaxFeatured: 6},
		models:   map[string]Model{"m-1": {ID: "m-1", Name: "Score One"}},
	}
	svc := newTestService(store)

	if _, err := svc.Feature(context.Background(), "m-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestReorderRequiresCompletePermutation(t *testing.T) {
	store := &stubStore{featured: threeFeatured()}
	svc := newTestService(store)

	cases := [][]string{
		{"e-1", "e-2"},               // missing one
		{"e-1", "e-2", "e-9"},        // unknown id
		{"e-1", "e-1", "e-2"},        // duplicate
		{"e-1", "e-2", "e-3", "e-3"}, // too many
	}
	for _, order := range cases {
		if err := svc.Reorder(context.Background(), order); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("order %v: expected ErrInvalidInput, got %v", order, err)
		}
	}
	if store.reordered != nil {
		t.Fatal("store must not be touched for invalid orders")
	}

	if err := svc.Reorder(context.Background(), []string{"e-3", "e-1", "e-2"}); err != nil {
		t.Fatalf("valid permutation: %v", err)
	}
	if len(store.reordered) != 3 || store.reordered[0] != "e-3" {
		t.Fatalf("order not applied: %v", store.reordered)
	}
}

func TestViewPassesPoolSearchTrimmed(t *testing.T) {
	store := &stubStore{featured: threeFeatured(), config: Config{MaxFeatured: 6}}
	svc := newTestService(store)

	if _, err := svc.View(context.Background(), "  credit "); err != nil {
		t.Fatalf("view: %v", err)
	}
	if store.poolSearch != "credit" {
		t.Fatalf("expected trimmed search, got %q", store.poolSearch)
	}
}

func TestUpdateConfigRejectsShrinkBelowCurrent(t *testing.T) {
	store := &stubStore{featured: threeFeatured()}
	svc := newTestService(store)

	if _, err := svc.UpdateConfig(context.Background(), Config{MaxFeatured: 2}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.UpdateConfig(context.Background(), Config{MaxFeatured: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.UpdateConfig(context.Background(), Config{MaxFeatured: 3, PoolTitle: "Explore"}); err != nil {
		t.Fatalf("equal capacity is allowed: %v", err)
	}
	if store.saved == nil || store.saved.PoolTitle != "Explore" {
		t.Fatalf("config not saved: %+v", store.saved)
	}
}
