package pg

import (
	"context"
	"database/sql"
	"errors"

	"osmadmin.org/internal/showroom"
)

var _ showroom.Store = (*Store)(nil)

func (s *Store) Featured(ctx context.Context) ([]showroom.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select e.id, e.model_id, m.name, e.position, e.created_at
		from showroom_entries e
		join models m on m.id = e.model_id
		order by e.position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []showroom.Entry{}
	for rows.Next() {
		var entry showroom.Entry
		if err := rows.Scan(&entry.ID, &entry.ModelID, &entry.ModelName, &entry.Position, &entry.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) Pool(ctx context.Context, search string) ([]showroom.Model, error) {
	rows, err := s.db.QueryContext(ctx, `
		select m.id, m.name, coalesce(m.status,''), m.showroom_eligible
		from models m
		where m.showroom_eligible
		  and m.id not in (select model_id from showroom_entries)
		  and m.name ilike $1
		order by m.name
	`, "%"+search+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []showroom.Model{}
	for rows.Next() {
		var model showroom.Model
		if err := rows.Scan(&model.ID, &model.Name, &model.Status, &model.Eligible); err != nil {
			return nil, err
		}
		out = append(out, model)
	}
	return out, rows.Err()
}

func (s *Store) FindModel(ctx context.Context, modelID string) (showroom.Model, error) {
	var model showroom.Model
	err := s.db.QueryRowContext(ctx, `
		select id, name, coalesce(status,''), showroom_eligible from models where id = $1
	`, modelID).Scan(&model.ID, &model.Name, &model.Status, &model.Eligible)
	if errors.Is(err, sql.ErrNoRows) {
		return showroom.Model{}, showroom.ErrNotFound
	}
	if err != nil {
		return showroom.Model{}, err
	}
	return model, nil
}

func (s *Store) AddFeatured(ctx context.Context, entry showroom.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into showroom_entries (id, model_id, position, created_at)
		values ($1, $2, $3, $4)
	`, entry.ID, entry.ModelID, entry.Position, entry.AddedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return showroom.ErrConflict
			case pgErrForeignKeyViolation:
				return showroom.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) RemoveFeatured(ctx context.Context, modelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `delete from showroom_entries where model_id = $1`, modelID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return showroom.ErrNotFound
	}
	// Close the position gap so the list stays dense.
	if _, err := tx.ExecContext(ctx, `
		with ordered as (
			select id, row_number() over (order by position) - 1 as new_position
			from showroom_entries
		)
		update showroom_entries e
		set position = o.new_position
		from ordered o
		where o.id = e.id
	`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ReorderFeatured(ctx context.Context, orderedEntryIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Park positions out of range first so the unique index never trips
	// mid-rewrite.
	if _, err := tx.ExecContext(ctx,
		`update showroom_entries set position = position + 1000`); err != nil {
		return err
	}
	for position, id := range orderedEntryIDs {
		if _, err := tx.ExecContext(ctx,
			`update showroom_entries set position = $2 where id = $1`, id, position); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Config(ctx context.Context) (showroom.Config, error) {
	var config showroom.Config
	err := s.db.QueryRowContext(ctx, `
		select max_featured, auto_sync, pool_title, featured_title
		from showroom_config
		where id = 1
	`).Scan(&config.MaxFeatured, &config.AutoSync, &config.PoolTitle, &config.FeaturedTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return showroom.Config{}, showroom.ErrNotFound
	}
	if err != nil {
		return showroom.Config{}, err
	}
	return config, nil
}

func (s *Store) SaveConfig(ctx context.Context, config showroom.Config) error {
	_, err := s.db.ExecContext(ctx, `
		update showroom_config
		set max_featured = $1, auto_sync = $2, pool_title = $3, featured_title = $4, updated_at = now()
		where id = 1
	`, config.MaxFeatured, config.AutoSync, config.PoolTitle, config.FeaturedTitle)
	return err
}
