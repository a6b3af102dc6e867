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

var _ directory.Store = (*Store)(nil)

func (s *Store) AccessBySubject(ctx context.Context, subject string) (*directory.UserAccess, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, `
		select id, coalesce(external_id,''), email, coalesce(full_name,''), is_active, last_login_at, created_at, updated_at
		from users
		where external_id = $1 or id = $1
	`, subject))
	if err != nil {
		return nil, err
	}

	access := &directory.UserAccess{User: user}
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.name, coalesce(r.description,''), r.is_active, r.created_at, r.updated_at,
		       p.id, p.code, coalesce(p.description,''), p.is_active, p.deprecated_at, p.created_at, p.updated_at
		from user_roles ur
		join roles r on r.id = ur.role_id
		left join role_permissions rp on rp.role_id = r.id
		left join permissions p on p.id = rp.permission_id
		where ur.user_id = $1
		order by r.name, p.code
	`, user.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := map[string]int{}
	for rows.Next() {
		var role directory.Role
		var roleDesc string
		var permID, permCode, permDesc sql.NullString
		var permActive sql.NullBool
		var deprecatedAt, permCreated, permUpdated sql.NullTime
		if err := rows.Scan(
			&role.ID, &role.Name, &roleDesc, &role.IsActive, &role.CreatedAt, &role.UpdatedAt,
			&permID, &permCode, &permDesc, &permActive, &deprecatedAt, &permCreated, &permUpdated,
		); err != nil {
			return nil, err
		}
		role.Description = roleDesc
		i, ok := index[role.ID]
		if !ok {
			access.Roles = append(access.Roles, directory.RoleGrant{Role: role})
			i = len(access.Roles) - 1
			index[role.ID] = i
		}
		if permID.Valid {
			permission := directory.Permission{
				ID:          permID.String,
				Code:        permCode.String,
				Description: permDesc.String,
				IsActive:    permActive.Bool,
				CreatedAt:   permCreated.Time,
				UpdatedAt:   permUpdated.Time,
			}
			if deprecatedAt.Valid {
				t := deprecatedAt.Time
				permission.DeprecatedAt = &t
			}
			access.Roles[i].Permissions = append(access.Roles[i].Permissions, permission)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return access, nil
}

func (s *Store) ListUsers(ctx context.Context, filter directory.UserFilter, offset, limit int) ([]directory.User, int, error) {
	where := []string{"true"}
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		where = append(where, fmt.Sprintf("(lower(email) like $%d or lower(coalesce(full_name,'')) like $%d)", len(args), len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.RoleID != "" {
		args = append(args, filter.RoleID)
		where = append(where, fmt.Sprintf("id in (select user_id from user_roles where role_id = $%d)", len(args)))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select id, coalesce(external_id,''), email, coalesce(full_name,''), is_active, last_login_at, created_at, updated_at
		from users
		where %s
		order by email
		limit $%d offset $%d
	`, cond, len(args)-1, len(args)), args...)
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

func (s *Store) FindUser(ctx context.Context, id string) (directory.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, `
		select id, coalesce(external_id,''), email, coalesce(full_name,''), is_active, last_login_at, created_at, updated_at
		from users where id = $1
	`, id))
	if err != nil {
		return directory.User{}, err
	}
	users := []directory.User{user}
	if err := s.attachUserRoles(ctx, users); err != nil {
		return directory.User{}, err
	}
	return users[0], nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, coalesce(external_id,''), email, coalesce(full_name,''), is_active, last_login_at, created_at, updated_at
		from users where lower(email) = lower($1)
	`, email))
}

func (s *Store) FindUserByExternalID(ctx context.Context, externalID string) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, coalesce(external_id,''), email, coalesce(full_name,''), is_active, last_login_at, created_at, updated_at
		from users where external_id = $1
	`, externalID))
}

func (s *Store) LinkExternalIdentity(ctx context.Context, id, externalID string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set external_id = $2, updated_at = now() where id = $1`, id, externalID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.ErrConflict
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user directory.NewUser) (directory.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into users (id, external_id, email, full_name, is_active)
		values ($1, $2, $3, $4, true)
	`, user.ID, nullIfEmpty(user.ExternalID), user.Email, nullIfEmpty(user.FullName)); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.User{}, directory.ErrConflict
		}
		return directory.User{}, err
	}
	if err := insertUserRoles(ctx, tx, user.ID, user.RoleIDs); err != nil {
		return directory.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return directory.User{}, err
	}
	return s.FindUser(ctx, user.ID)
}

func (s *Store) UpdateUser(ctx context.Context, id string, update directory.UserUpdate) (directory.User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	if update.FullName != nil {
		args = append(args, nullIfEmpty(*update.FullName))
		sets = append(sets, fmt.Sprintf("full_name = $%d", len(args)))
	}
	if update.IsActive != nil {
		args = append(args, *update.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`update users set %s where id = $%d`, strings.Join(sets, ", "), len(args)), args...)
	if err != nil {
		return directory.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.User{}, directory.ErrNotFound
	}
	return s.FindUser(ctx, id)
}

func (s *Store) ReplaceUserRoles(ctx context.Context, userID string, roleIDs []string) (directory.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from users where id = $1 for update`, userID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return directory.User{}, directory.ErrNotFound
		}
		return directory.User{}, err
	}
	if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id = $1`, userID); err != nil {
		return directory.User{}, err
	}
	if err := insertUserRoles(ctx, tx, userID, roleIDs); err != nil {
		return directory.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return directory.User{}, err
	}
	return s.FindUser(ctx, userID)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `update users set last_login_at = $2 where id = $1`, id, at)
	return err
}

func insertUserRoles(ctx context.Context, tx *sql.Tx, userID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles (user_id, role_id) values ($1, $2)`, userID, roleID); err != nil {
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

func (s *Store) attachUserRoles(ctx context.Context, users []directory.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	index := make(map[string]int, len(users))
	for i := range users {
		users[i].Roles = []directory.RoleRef{}
		ids[i] = users[i].ID
		index[users[i].ID] = i
	}
	rows, err := s.db.QueryContext(ctx, `
		select ur.user_id, r.id, r.name, r.is_active
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.user_id = any($1)
		order by r.name
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		var ref directory.RoleRef
		if err := rows.Scan(&userID, &ref.ID, &ref.Name, &ref.IsActive); err != nil {
			return err
		}
		if i, ok := index[userID]; ok {
			users[i].Roles = append(users[i].Roles, ref)
		}
	}
	return rows.Err()
}

type userScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row userScanner) (directory.User, error) {
	var user directory.User
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.ExternalID, &user.Email, &user.FullName, &user.IsActive, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	user.Roles = []directory.RoleRef{}
	return user, nil
}

func (s *Store) scanUserRows(rows *sql.Rows) (directory.User, error) {
	return s.scanUser(rows)
}
