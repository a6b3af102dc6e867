package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"osmadmin.org/internal/directory"
)

func (s *Store) ListRoles(ctx context.Context, search string, offset, limit int) ([]directory.RoleWithStats, int, error) {
	pattern := "%" + search + "%"
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from roles where name ilike $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, coalesce(r.description,''), r.is_active, r.created_at, r.updated_at,
		       (select count(*) from user_roles ur where ur.role_id = r.id)
		from roles r
		where r.name ilike $1
		order by r.name
		limit $2 offset $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var roles []directory.RoleWithStats
	for rows.Next() {
		var role directory.RoleWithStats
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt, &role.UserCount); err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachRolePermissions(ctx, roles); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (s *Store) FindRole(ctx context.Context, id string) (directory.RoleWithStats, error) {
	var role directory.RoleWithStats
	err := s.db.QueryRowContext(ctx, `
		select r.id, r.name, coalesce(r.description,''), r.is_active, r.created_at, r.updated_at,
		       (select count(*) from user_roles ur where ur.role_id = r.id)
		from roles r
		where r.id = $1
	`, id).Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt, &role.UserCount)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.RoleWithStats{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.RoleWithStats{}, err
	}
	roles := []directory.RoleWithStats{role}
	if err := s.attachRolePermissions(ctx, roles); err != nil {
		return directory.RoleWithStats{}, err
	}
	return roles[0], nil
}

func (s *Store) CreateRole(ctx context.Context, role directory.Role, permissionIDs []string) (directory.RoleWithStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.RoleWithStats{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into roles (id, name, description, is_active)
		values ($1, $2, $3, $4)
	`, role.ID, role.Name, nullIfEmpty(role.Description), role.IsActive); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.RoleWithStats{}, directory.ErrConflict
		}
		return directory.RoleWithStats{}, err
	}
	if err := insertRolePermissions(ctx, tx, role.ID, permissionIDs); err != nil {
		return directory.RoleWithStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return directory.RoleWithStats{}, err
	}
	return s.FindRole(ctx, role.ID)
}

func (s *Store) UpdateRole(ctx context.Context, id string, update directory.RoleUpdate, permissionIDs []string) (directory.RoleWithStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.RoleWithStats{}, err
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{"updated_at = now()"}
	args := []any{}
	if update.Name != nil {
		args = append(args, *update.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if update.Description != nil {
		args = append(args, nullIfEmpty(*update.Description))
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if update.IsActive != nil {
		args = append(args, *update.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(
		`update roles set %s where id = $%d`, strings.Join(sets, ", "), len(args)), args...)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.RoleWithStats{}, directory.ErrConflict
		}
		return directory.RoleWithStats{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.RoleWithStats{}, directory.ErrNotFound
	}

	if permissionIDs != nil {
		if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, id); err != nil {
			return directory.RoleWithStats{}, err
		}
		if err := insertRolePermissions(ctx, tx, id, permissionIDs); err != nil {
			return directory.RoleWithStats{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return directory.RoleWithStats{}, err
	}
	return s.FindRole(ctx, id)
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return directory.ErrInvalidState
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) ListRoleUsers(ctx context.Context, roleID string, offset, limit int) ([]directory.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from user_roles where role_id = $1`, roleID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select u.id, coalesce(u.external_id,''), u.email, coalesce(u.full_name,''), u.is_active, u.last_login_at, u.created_at, u.updated_at
		from user_roles ur
		join users u on u.id = ur.user_id
		where ur.role_id = $1
		order by u.email
		limit $2 offset $3
	`, roleID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []directory.User
	for rows.Next() {
		user, err := s.scanUserRows(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachUserRoles(ctx, users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func insertRolePermissions(ctx context.Context, tx *sql.Tx, roleID string, permissionIDs []string) error {
	for _, permissionID := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			`insert into role_permissions (role_id, permission_id) values ($1, $2)`, roleID, permissionID); err != nil {
			if pgErr, ok := maybePgError(err); ok {
				switch pgErr.Code {
				case pgErrForeignKeyViolation:
					return directory.ErrNotFound
				case pgErrUniqueViolation:
					return directory.ErrConflict
				}
			}
			return err
		}
	}
	return nil
}

func (s *Store) attachRolePermissions(ctx context.Context, roles []directory.RoleWithStats) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]string, len(roles))
	index := make(map[string]int, len(roles))
	for i := range roles {
		roles[i].Permissions = []directory.PermissionRef{}
		ids[i] = roles[i].ID
		index[roles[i].ID] = i
	}
	rows, err := s.db.QueryContext(ctx, `
		select rp.role_id, p.id, p.code
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		where rp.role_id = any($1)
		order by p.code
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var roleID string
		var ref directory.PermissionRef
		if err := rows.Scan(&roleID, &ref.ID, &ref.Code); err != nil {
			return err
		}
		if i, ok := index[roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, ref)
		}
	}
	return rows.Err()
}

func (s *Store) ListPermissions(ctx context.Context, search string, offset, limit int) ([]directory.PermissionWithStats, int, error) {
	pattern := "%" + search + "%"
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from permissions where code ilike $1 or description ilike $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.code, coalesce(p.description,''), p.is_active, p.deprecated_at, p.created_at, p.updated_at,
		       (select count(*) from role_permissions rp where rp.permission_id = p.id)
		from permissions p
		where p.code ilike $1 or p.description ilike $1
		order by p.code
		limit $2 offset $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var permissions []directory.PermissionWithStats
	for rows.Next() {
		var p directory.PermissionWithStats
		var deprecatedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.IsActive, &deprecatedAt, &p.CreatedAt, &p.UpdatedAt, &p.RoleCount); err != nil {
			return nil, 0, err
		}
		if deprecatedAt.Valid {
			t := deprecatedAt.Time
			p.DeprecatedAt = &t
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return permissions, total, nil
}

func (s *Store) FindPermission(ctx context.Context, id string) (directory.PermissionWithStats, error) {
	var p directory.PermissionWithStats
	var deprecatedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select p.id, p.code, coalesce(p.description,''), p.is_active, p.deprecated_at, p.created_at, p.updated_at,
		       (select count(*) from role_permissions rp where rp.permission_id = p.id)
		from permissions p
		where p.id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Description, &p.IsActive, &deprecatedAt, &p.CreatedAt, &p.UpdatedAt, &p.RoleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.PermissionWithStats{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.PermissionWithStats{}, err
	}
	if deprecatedAt.Valid {
		t := deprecatedAt.Time
		p.DeprecatedAt = &t
	}
	return p, nil
}

func (s *Store) CreatePermission(ctx context.Context, permission directory.Permission) (directory.Permission, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into permissions (id, code, description, is_active)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, permission.ID, permission.Code, nullIfEmpty(permission.Description), permission.IsActive).
		Scan(&permission.CreatedAt, &permission.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.Permission{}, directory.ErrConflict
		}
		return directory.Permission{}, err
	}
	return permission, nil
}

func (s *Store) UpdatePermission(ctx context.Context, id string, update directory.PermissionUpdate) (directory.Permission, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	if update.Description != nil {
		args = append(args, nullIfEmpty(*update.Description))
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if update.IsActive != nil {
		args = append(args, *update.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	args = append(args, id)
	return s.scanPermissionRow(s.db.QueryRowContext(ctx, fmt.Sprintf(`
		update permissions set %s where id = $%d
		returning id, code, coalesce(description,''), is_active, deprecated_at, created_at, updated_at
	`, strings.Join(sets, ", "), len(args)), args...))
}

func (s *Store) DeprecatePermission(ctx context.Context, id string, at time.Time) (directory.Permission, error) {
	return s.scanPermissionRow(s.db.QueryRowContext(ctx, `
		update permissions set deprecated_at = $2, updated_at = now()
		where id = $1
		returning id, code, coalesce(description,''), is_active, deprecated_at, created_at, updated_at
	`, id, at))
}

func (s *Store) scanPermissionRow(row userScanner) (directory.Permission, error) {
	var p directory.Permission
	var deprecatedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Code, &p.Description, &p.IsActive, &deprecatedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Permission{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Permission{}, err
	}
	if deprecatedAt.Valid {
		t := deprecatedAt.Time
		p.DeprecatedAt = &t
	}
	return p, nil
}

func (s *Store) Stats(ctx context.Context) (directory.Stats, error) {
	var stats directory.Stats
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from users),
			(select count(*) from users where is_active),
			(select count(*) from users where not is_active),
			(select count(*) from users where last_login_at > now() - interval '7 days'),
			(select count(*) from roles),
			(select count(*) from roles r where not exists (select 1 from user_roles ur where ur.role_id = r.id)),
			(select count(*) from permissions),
			(select count(*) from invitations where status = 'PENDING' and expires_at > now())
	`).Scan(&stats.TotalUsers, &stats.ActiveUsers, &stats.InactiveUsers, &stats.RecentLogins,
		&stats.TotalRoles, &stats.RolesWithoutUsers, &stats.TotalPermissions, &stats.PendingInvitations)
	if err != nil {
		return directory.Stats{}, err
	}
	return stats, nil
}
