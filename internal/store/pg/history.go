package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"osmadmin.org/internal/analytics"
	"osmadmin.org/internal/history"
)

var (
	_ history.Source  = (*Store)(nil)
	_ analytics.Store = (*Store)(nil)
)

func (s *Store) Records(ctx context.Context, filter history.Filter) ([]history.Record, error) {
	where := []string{"true"}
	args := []any{}
	if model := strings.TrimSpace(filter.Model); model != "" {
		args = append(args, "%"+strings.ToLower(model)+"%")
		where = append(where, fmt.Sprintf("lower(model_name) like $%d", len(args)))
	}
	if filter.Start != nil {
		args = append(args, *filter.Start)
		where = append(where, fmt.Sprintf("queried_at >= $%d", len(args)))
	}
	if filter.End != nil {
		args = append(args, *filter.End)
		where = append(where, fmt.Sprintf("queried_at < $%d", len(args)))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select model_name, queried_at
		from query_events
		where %s
	`, strings.Join(where, " and ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var record history.Record
		if err := rows.Scan(&record.ModelName, &record.QueriedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) CountExact(ctx context.Context, model string, start, end time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from query_events
		where model_name = $1 and queried_at >= $2 and queried_at < $3
	`, model, start, end).Scan(&count)
	return count, err
}

func (s *Store) InsertEvents(ctx context.Context, events []analytics.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		insert into query_events (id, model_id, model_name, session_id, queried_at)
		values ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, event := range events {
		if _, err := stmt.ExecContext(ctx,
			event.ID, nullIfEmpty(event.ModelID), event.ModelName,
			nullIfEmpty(event.SessionID), event.QueriedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
