package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"osmadmin.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	changes := []byte("{}")
	if len(entry.Changes) > 0 {
		changes = entry.Changes
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_entries (id, actor_id, actor_name, action, entity_type, entity_id, entity_label, changes, request_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.ActorID, entry.ActorName, entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), nullIfEmpty(entry.EntityLabel), changes,
		nullIfEmpty(entry.RequestID), entry.Timestamp)
	return err
}

func (s *Store) List(ctx context.Context, filter audit.Filter, offset, limit int) ([]audit.Entry, int, error) {
	where := []string{"true"}
	args := []any{}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		where = append(where, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, "%"+strings.ToLower(filter.Action)+"%")
		where = append(where, fmt.Sprintf("lower(action) like $%d", len(args)))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from audit_entries where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select id, actor_id, actor_name, action, entity_type, coalesce(entity_id,''), coalesce(entity_label,''), changes, coalesce(request_id,''), created_at
		from audit_entries
		where %s
		order by created_at desc
		limit $%d offset $%d
	`, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *Store) Find(ctx context.Context, id string) (audit.Entry, error) {
	entry, err := scanAuditEntry(s.db.QueryRowContext(ctx, `
		select id, actor_id, actor_name, action, entity_type, coalesce(entity_id,''), coalesce(entity_label,''), changes, coalesce(request_id,''), created_at
		from audit_entries
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, audit.ErrNotFound
	}
	return entry, err
}

func scanAuditEntry(row userScanner) (audit.Entry, error) {
	var entry audit.Entry
	var changes []byte
	err := row.Scan(&entry.ID, &entry.ActorID, &entry.ActorName, &entry.Action, &entry.EntityType,
		&entry.EntityID, &entry.EntityLabel, &changes, &entry.RequestID, &entry.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, audit.ErrNotFound
	}
	if err != nil {
		return audit.Entry{}, err
	}
	if len(changes) > 0 {
		entry.Changes = json.RawMessage(changes)
	}
	return entry, nil
}
