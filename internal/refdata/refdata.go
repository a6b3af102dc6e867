// Package refdata manages the catalog of reference entities used to
// classify scoring models: statuses, product types, execution settings and
// the other lookup lists the catalog forms are built from.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/ids"
)

// Kind identifies one reference entity list.
type Kind string

const (
	KindModelStatus        Kind = "model-status"
	KindProductType        Kind = "product-type"
	KindChargeType         Kind = "charge-type"
	KindExecutionType      Kind = "execution-type"
	KindExecutionFrequency Kind = "execution-frequency"
	KindBureau             Kind = "bureau"
	KindOwnerArea          Kind = "owner-area"
	KindAudience           Kind = "audience"
	KindPurpose            Kind = "purpose"
	KindPublicProfile      Kind = "public-profile"
	KindBusinessUnit       Kind = "business-unit"
	KindProductManager     Kind = "product-manager"
)

// Kinds lists every reference entity kind in presentation order.
func Kinds() []Kind {
	return []Kind{
		KindModelStatus,
		KindProductType,
		KindChargeType,
		KindExecutionType,
		KindExecutionFrequency,
		KindBureau,
		KindOwnerArea,
		KindAudience,
		KindPurpose,
		KindPublicProfile,
		KindBusinessUnit,
		KindProductManager,
	}
}

// HasColor reports whether rows of the kind carry a display color. Only
// product types do; the catalog UI badges them.
func (k Kind) HasColor() bool {
	return k == KindProductType
}

// Valid reports whether the kind is one of the known lists.
func (k Kind) Valid() bool {
	switch k {
	case KindModelStatus, KindProductType, KindChargeType, KindExecutionType,
		KindExecutionFrequency, KindBureau, KindOwnerArea, KindAudience,
		KindPurpose, KindPublicProfile, KindBusinessUnit, KindProductManager:
		return true
	}
	return false
}

var (
	ErrUnknownKind  = errors.New("refdata: unknown entity kind")
	ErrNotFound     = errors.New("refdata: not found")
	ErrConflict     = errors.New("refdata: conflict")
	ErrInvalidInput = errors.New("refdata: invalid input")
)

// Row is one reference entity. Color is present only for kinds where
// HasColor holds.
type Row struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	IsActive    bool    `json:"isActive"`
	Color       *string `json:"color,omitempty"`
}

// Update carries the mutable fields of a row. Nil pointers leave the column
// untouched.
type Update struct {
	Description *string
	IsActive    *bool
	Color       *string
}

// Store persists the per-kind lists. Implementations translate duplicate
// descriptions to ErrConflict.
type Store interface {
	List(ctx context.Context, kind Kind, includeInactive bool) ([]Row, error)
	Find(ctx context.Context, kind Kind, id string) (Row, error)
	Create(ctx context.Context, kind Kind, row Row) (Row, error)
	Update(ctx context.Context, kind Kind, id string, update Update) (Row, error)
	// Counts returns row totals per kind for the admin dashboard.
	Counts(ctx context.Context) (map[Kind]int, error)
}

// Service exposes the reference catalog with validation and audit trail.
type Service struct {
	store Store
	audit *audit.Recorder
}

// NewService wires the service over its store and audit recorder.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, audit: recorder}
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// List returns the rows of one kind. Active rows only unless
// includeInactive is set; the catalog forms show active entries, the admin
// screen shows everything.
func (s *Service) List(ctx context.Context, kind Kind, includeInactive bool) ([]Row, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.store.List(ctx, kind, includeInactive)
}

// Get loads one row.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (Row, error) {
	if !kind.Valid() {
		return Row{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.store.Find(ctx, kind, id)
}

// Create inserts a new row into the kind's list. Descriptions are unique
// within a kind.
func (s *Service) Create(ctx context.Context, kind Kind, description string, color *string) (Row, error) {
	if !kind.Valid() {
		return Row{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return Row{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	color, err := normalizeColor(kind, color)
	if err != nil {
		return Row{}, err
	}
	row, err := s.store.Create(ctx, kind, Row{
		ID:          ids.New(),
		Description: description,
		IsActive:    true,
		Color:       color,
	})
	if err != nil {
		return Row{}, err
	}
	s.audit.Record(ctx, string(kind)+".create", string(kind), row.ID, row.Description, row)
	return row, nil
}

// Update edits a row.
func (s *Service) Update(ctx context.Context, kind Kind, id string, update Update) (Row, error) {
	if !kind.Valid() {
		return Row{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if update.Description != nil && strings.TrimSpace(*update.Description) == "" {
		return Row{}, fmt.Errorf("%w: description cannot be blank", ErrInvalidInput)
	}
	if update.Color != nil {
		color, err := normalizeColor(kind, update.Color)
		if err != nil {
			return Row{}, err
		}
		update.Color = color
	}
	row, err := s.store.Update(ctx, kind, id, update)
	if err != nil {
		return Row{}, err
	}
	s.audit.Record(ctx, string(kind)+".update", string(kind), row.ID, row.Description, update)
	return row, nil
}

// Counts returns row totals per kind.
func (s *Service) Counts(ctx context.Context) (map[Kind]int, error) {
	return s.store.Counts(ctx)
}

func normalizeColor(kind Kind, color *string) (*string, error) {
	if color == nil {
		return nil, nil
	}
	if !kind.HasColor() {
		return nil, fmt.Errorf("%w: %s rows do not carry a color", ErrInvalidInput, kind)
	}
	normalized := strings.ToLower(strings.TrimSpace(*color))
	if !colorPattern.MatchString(normalized) {
		return nil, fmt.Errorf("%w: color must be a #rrggbb value", ErrInvalidInput)
	}
	return &normalized, nil
}
