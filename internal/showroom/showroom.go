// Package showroom curates the subset of scoring models promoted on the
// public-facing showcase: a bounded featured list with an explicit order,
// drawn from a pool of eligible models.
package showroom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/ids"
)

var (
	ErrNotFound     = errors.New("showroom: not found")
	ErrConflict     = errors.New("showroom: conflict")
	ErrInvalidInput = errors.New("showroom: invalid input")
	ErrInvalidState = errors.New("showroom: invalid state")
)

// Model is the catalog view the showroom works with. Eligible reports
// whether the model owner flagged it for showcase.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Eligible bool   `json:"eligible"`
}

// Entry is one featured model with its display position, 0-based and dense.
type Entry struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"modelId"`
	ModelName string    `json:"modelName"`
	Position  int       `json:"position"`
	AddedAt   time.Time `json:"addedAt"`
}

// Config is the singleton showcase configuration.
type Config struct {
	MaxFeatured   int    `json:"maxFeatured"`
	AutoSync      bool   `json:"autoSync"`
	PoolTitle     string `json:"poolTitle"`
	FeaturedTitle string `json:"featuredTitle"`
}

// View is the full admin read of the showcase.
type View struct {
	Config   Config  `json:"config"`
	Featured []Entry `json:"featured"`
	Pool     []Model `json:"pool"`
}

// Store persists featured entries and the configuration singleton.
type Store interface {
	Featured(ctx context.Context) ([]Entry, error)
	// Pool lists eligible models that are not currently featured, optionally
	// narrowed by a case-insensitive name substring.
	Pool(ctx context.Context, search string) ([]Model, error)
	FindModel(ctx context.Context, modelID string) (Model, error)
	// AddFeatured appends the entry; a model already featured comes back as
	// ErrConflict.
	AddFeatured(ctx context.Context, entry Entry) error
	RemoveFeatured(ctx context.Context, modelID string) error
	// ReorderFeatured rewrites every position in one transaction so readers
	// never observe a half-applied order.
	ReorderFeatured(ctx context.Context, orderedEntryIDs []string) error
	Config(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, config Config) error
}

// Service applies the showcase rules over the store.
type Service struct {
	store Store
	audit *audit.Recorder
	now   func() time.Time
}

// NewService wires the service over its store and audit recorder.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, audit: recorder, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// View loads the configuration, the ordered featured list and the pool. The
// search narrows the pool only; the featured list is always complete.
func (s *Service) View(ctx context.Context, search string) (View, error) {
	config, err := s.store.Config(ctx)
	if err != nil {
		return View{}, err
	}
	featured, err := s.store.Featured(ctx)
	if err != nil {
		return View{}, err
	}
	pool, err := s.store.Pool(ctx, strings.TrimSpace(search))
	if err != nil {
		return View{}, err
	}
	return View{Config: config, Featured: featured, Pool: pool}, nil
}

// Feature promotes a model from the pool. The featured list is bounded by
// the configured maximum; the new entry lands at the end.
func (s *Service) Feature(ctx context.Context, modelID string) (Entry, error) {
	if strings.TrimSpace(modelID) == "" {
		return Entry{}, fmt.Errorf("%w: model id is required", ErrInvalidInput)
	}
	model, err := s.store.FindModel(ctx, modelID)
	if err != nil {
		return Entry{}, err
	}
	config, err := s.store.Config(ctx)
	if err != nil {
		return Entry{}, err
	}
	featured, err := s.store.Featured(ctx)
	if err != nil {
		return Entry{}, err
	}
	if len(featured) >= config.MaxFeatured {
		return Entry{}, fmt.Errorf("%w: featured list is full (%d)", ErrInvalidState, config.MaxFeatured)
	}
	entry := Entry{
		ID:        ids.New(),
		ModelID:   model.ID,
		ModelName: model.Name,
		Position:  len(featured),
		AddedAt:   s.now().UTC(),
	}
	if err := s.store.AddFeatured(ctx, entry); err != nil {
		return Entry{}, err
	}
	s.audit.Record(ctx, "showroom.feature", "showroom-entry", entry.ID, model.Name, map[string]string{
		"modelId": model.ID,
	})
	return entry, nil
}

// Unfeature demotes a model back to the pool.
func (s *Service) Unfeature(ctx context.Context, modelID string) error {
	model, err := s.store.FindModel(ctx, modelID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveFeatured(ctx, modelID); err != nil {
		return err
	}
	s.audit.Record(ctx, "showroom.unfeature", "showroom-entry", modelID, model.Name, nil)
	return nil
}

// Reorder applies a new display order. The request must name every current
// entry exactly once; partial orders are rejected so positions stay dense.
func (s *Service) Reorder(ctx context.Context, orderedEntryIDs []string) error {
	featured, err := s.store.Featured(ctx)
	if err != nil {
		return err
	}
	if len(orderedEntryIDs) != len(featured) {
		return fmt.Errorf("%w: order must name all %d entries", ErrInvalidInput, len(featured))
	}
	current := make(map[string]struct{}, len(featured))
	for _, entry := range featured {
		current[entry.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(orderedEntryIDs))
	for _, id := range orderedEntryIDs {
		if _, ok := current[id]; !ok {
			return fmt.Errorf("%w: unknown entry %q", ErrInvalidInput, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: entry %q listed twice", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	if err := s.store.ReorderFeatured(ctx, orderedEntryIDs); err != nil {
		return err
	}
	s.audit.Record(ctx, "showroom.reorder", "showroom", "featured", "featured order", map[string][]string{
		"order": orderedEntryIDs,
	})
	return nil
}

// GetConfig returns the configuration singleton.
func (s *Service) GetConfig(ctx context.Context) (Config, error) {
	return s.store.Config(ctx)
}

// UpdateConfig replaces the configuration. Shrinking MaxFeatured below the
// current featured count is rejected; demote entries first.
func (s *Service) UpdateConfig(ctx context.Context, config Config) (Config, error) {
	if config.MaxFeatured < 1 {
		return Config{}, fmt.Errorf("%w: maxFeatured must be at least 1", ErrInvalidInput)
	}
	featured, err := s.store.Featured(ctx)
	if err != nil {
		return Config{}, err
	}
	if config.MaxFeatured < len(featured) {
		return Config{}, fmt.Errorf("%w: %d models are featured, demote some first", ErrInvalidState, len(featured))
	}
	if err := s.store.SaveConfig(ctx, config); err != nil {
		return Config{}, err
	}
	s.audit.Record(ctx, "showroom.config", "showroom", "config", "showcase settings", config)
	return config, nil
}
