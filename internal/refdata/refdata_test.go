package refdata

import (
	"context"
	"errors"
	"testing"

	"osmadmin.org/internal/audit"
)

type stubStore struct {
	create func(ctx context.Context, kind Kind, row Row) (Row, error)
	update func(ctx context.Context, kind Kind, id string, update Update) (Row, error)
	list   func(ctx context.Context, kind Kind, includeInactive bool) ([]Row, error)
}

func (s *stubStore) List(ctx context.Context, kind Kind, includeInactive bool) ([]Row, error) {
	if s.list != nil {
		return s.list(ctx, kind, includeInactive)
	}
	return nil, nil
}

func (s *stubStore) Find(context.Context, Kind, string) (Row, error) {
	return Row{}, ErrNotFound
}

func (s *stubStore) Create(ctx context.Context, kind Kind, row Row) (Row, error) {
	if s.create != nil {
		return s.create(ctx, kind, row)
	}
	return row, nil
}

func (s *stubStore) Update(ctx context.Context, kind Kind, id string, update Update) (Row, error) {
	if s.update != nil {
		return s.update(ctx, kind, id, update)
	}
	return Row{ID: id}, nil
}

func (s *stubStore) Counts(context.Context) (map[Kind]int, error) { return nil, nil }

type nopAuditStore struct{}

func (nopAuditStore) Append(context.Context, *audit.Entry) error { return nil }
func (nopAuditStore) List(context.Context, audit.Filter, int, int) ([]audit.Entry, int, error) {
	return nil, 0, nil
}
func (nopAuditStore) Find(context.Context, string) (audit.Entry, error) {
	return audit.Entry{}, audit.ErrNotFound
}

func newTestService(store Store) *Service {
	return NewService(store, audit.NewRecorder(nopAuditStore{}))
}

func TestAllKindsAreValid(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 12 {
		t.Fatalf("expected 12 kinds, got %d", len(kinds))
	}
	for _, kind := range kinds {
		if !kind.Valid() {
			t.Fatalf("kind %q should be valid", kind)
		}
	}
	if Kind("scoring-model").Valid() {
		t.Fatal("unknown kind must not validate")
	}
}

func TestOnlyProductTypeCarriesColor(t *testing.T) {
	for _, kind := range Kinds() {
		if kind.HasColor() != (kind == KindProductType) {
			t.Fatalf("kind %q: unexpected color support", kind)
		}
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	svc := newTestService(&stubStore{})
	if _, err := svc.Create(context.Background(), Kind("bogus"), "X", nil); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestCreateRejectsColorOnColorlessKind(t *testing.T) {
	svc := newTestService(&stubStore{})
	color := "#ff0000"
	if _, err := svc.Create(context.Background(), KindBureau, "Serasa", &color); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateNormalizesProductTypeColor(t *testing.T) {
	var stored Row
	store := &stubStore{create: func(_ context.Context, _ Kind, row Row) (Row, error) {
		stored = row
		return row, nil
	}}
	svc := newTestService(store)

	color := " #FFAA00 "
	row, err := svc.Create(context.Background(), KindProductType, "Credit", &color)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stored.Color == nil || *stored.Color != "#ffaa00" {
		t.Fatalf("color should be lowercased and trimmed, got %v", stored.Color)
	}
	if !row.IsActive {
		t.Fatal("new rows start active")
	}
	if row.ID == "" {
		t.Fatal("row id should be assigned")
	}
}

func TestCreateRejectsMalformedColor(t *testing.T) {
	svc := newTestService(&stubStore{})
	for _, bad := range []string{"red", "#fff", "ffaa00", "#ggaa00"} {
		color := bad
		if _, err := svc.Create(context.Background(), KindProductType, "Credit", &color); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("color %q: expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestCreateRequiresDescription(t *testing.T) {
	svc := newTestService(&stubStore{})
	if _, err := svc.Create(context.Background(), KindModelStatus, "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateRejectsBlankDescription(t *testing.T) {
	svc := newTestService(&stubStore{})
	blank := ""
	if _, err := svc.Update(context.Background(), KindModelStatus, "id-1", Update{Description: &blank}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListPassesInactiveFlagThrough(t *testing.T) {
	var gotInclude bool
	store := &stubStore{list: func(_ context.Context, _ Kind, includeInactive bool) ([]Row, error) {
		gotInclude = includeInactive
		return []Row{{ID: "1", Description: "Active"}}, nil
	}}
	svc := newTestService(store)

	if _, err := svc.List(context.Background(), KindOwnerArea, true); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !gotInclude {
		t.Fatal("includeInactive flag lost")
	}
}
