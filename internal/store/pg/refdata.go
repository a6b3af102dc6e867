package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"osmadmin.org/internal/refdata"
)

var _ refdata.Store = (*RefdataStore)(nil)

// RefdataStore is the reference catalog view of the store. The audit surface
// already claims List and Find on Store itself, so the catalog queries hang
// off a wrapper instead.
type RefdataStore struct {
	*Store
}

// Refdata returns the reference catalog view of the store.
func (s *Store) Refdata() *RefdataStore { return &RefdataStore{s} }

// Each reference entity kind lives in its own table with the same shape.
// Mapping through a fixed registry keeps kind names out of SQL entirely.
var refTables = map[refdata.Kind]string{
	refdata.KindModelStatus:        "ref_model_statuses",
	refdata.KindProductType:        "ref_product_types",
	refdata.KindChargeType:         "ref_charge_types",
	refdata.KindExecutionType:      "ref_execution_types",
	refdata.KindExecutionFrequency: "ref_execution_frequencies",
	refdata.KindBureau:             "ref_bureaus",
	refdata.KindOwnerArea:          "ref_owner_areas",
	refdata.KindAudience:           "ref_audiences",
	refdata.KindPurpose:            "ref_purposes",
	refdata.KindPublicProfile:      "ref_public_profiles",
	refdata.KindBusinessUnit:       "ref_business_units",
	refdata.KindProductManager:     "ref_product_managers",
}

func refTable(kind refdata.Kind) (string, error) {
	table, ok := refTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", refdata.ErrUnknownKind, kind)
	}
	return table, nil
}

func (s *RefdataStore) List(ctx context.Context, kind refdata.Kind, includeInactive bool) ([]refdata.Row, error) {
	table, err := refTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`select id, description, is_active, color from %s`, table)
	if !includeInactive {
		query += ` where is_active`
	}
	query += ` order by description`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []refdata.Row{}
	for rows.Next() {
		row, err := scanRefRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *RefdataStore) Find(ctx context.Context, kind refdata.Kind, id string) (refdata.Row, error) {
	table, err := refTable(kind)
	if err != nil {
		return refdata.Row{}, err
	}
	row, err := scanRefRow(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select id, description, is_active, color from %s where id = $1`, table), id))
	if errors.Is(err, sql.ErrNoRows) {
		return refdata.Row{}, refdata.ErrNotFound
	}
	return row, err
}

func (s *RefdataStore) Create(ctx context.Context, kind refdata.Kind, row refdata.Row) (refdata.Row, error) {
	table, err := refTable(kind)
	if err != nil {
		return refdata.Row{}, err
	}
	var color sql.NullString
	if row.Color != nil {
		color = sql.NullString{String: *row.Color, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		insert into %s (id, description, is_active, color) values ($1, $2, $3, $4)
	`, table), row.ID, row.Description, row.IsActive, color); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return refdata.Row{}, refdata.ErrConflict
		}
		return refdata.Row{}, err
	}
	return row, nil
}

func (s *RefdataStore) Update(ctx context.Context, kind refdata.Kind, id string, update refdata.Update) (refdata.Row, error) {
	table, err := refTable(kind)
	if err != nil {
		return refdata.Row{}, err
	}
	sets := []string{"updated_at = now()"}
	args := []any{}
	if update.Description != nil {
		args = append(args, *update.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if update.IsActive != nil {
		args = append(args, *update.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if update.Color != nil {
		args = append(args, *update.Color)
		sets = append(sets, fmt.Sprintf("color = $%d", len(args)))
	}
	args = append(args, id)
	row, err := scanRefRow(s.db.QueryRowContext(ctx, fmt.Sprintf(`
		update %s set %s where id = $%d
		returning id, description, is_active, color
	`, table, strings.Join(sets, ", "), len(args)), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return refdata.Row{}, refdata.ErrNotFound
	}
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return refdata.Row{}, refdata.ErrConflict
		}
		return refdata.Row{}, err
	}
	return row, nil
}

func (s *RefdataStore) Counts(ctx context.Context) (map[refdata.Kind]int, error) {
	counts := make(map[refdata.Kind]int, len(refTables))
	for kind, table := range refTables {
		var n int
		if err := s.db.QueryRowContext(ctx,
			fmt.Sprintf(`select count(*) from %s`, table)).Scan(&n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, nil
}

func scanRefRow(row userScanner) (refdata.Row, error) {
	var out refdata.Row
	var color sql.NullString
	if err := row.Scan(&out.ID, &out.Description, &out.IsActive, &color); err != nil {
		return refdata.Row{}, err
	}
	if color.Valid {
		c := color.String
		out.Color = &c
	}
	return out, nil
}
