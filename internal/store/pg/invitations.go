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

const invitationColumns = `
	i.id, i.email, i.token, i.status, coalesce(i.invited_by,''), coalesce(i.message,''), i.expires_at, i.accepted_at, i.created_at, i.updated_at`

func (s *Store) ListInvitations(ctx context.Context, filter directory.InvitationFilter, offset, limit int) ([]directory.Invitation, int, error) {
	where := []string{"true"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("i.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		where = append(where, fmt.Sprintf("lower(i.email) like $%d", len(args)))
	}
	cond := strings.Join(where, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from invitations i where `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select %s from invitations i
		where %s
		order by i.created_at desc
		limit $%d offset $%d
	`, invitationColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invitations []directory.Invitation
	for rows.Next() {
		invitation, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, err
		}
		invitations = append(invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachInvitationRoles(ctx, invitations); err != nil {
		return nil, 0, err
	}
	return invitations, total, nil
}

func (s *Store) FindInvitation(ctx context.Context, id string) (directory.Invitation, error) {
	return s.findInvitationWhere(ctx, "i.id = $1", id)
}

func (s *Store) FindInvitationByToken(ctx context.Context, token string) (directory.Invitation, error) {
	return s.findInvitationWhere(ctx, "i.token = $1", token)
}

func (s *Store) FindPendingInvitationByEmail(ctx context.Context, email string) (directory.Invitation, error) {
	return s.findInvitationWhere(ctx, "lower(i.email) = lower($1) and i.status = 'PENDING'", email)
}

func (s *Store) findInvitationWhere(ctx context.Context, cond string, arg any) (directory.Invitation, error) {
	invitation, err := scanInvitation(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select %s from invitations i where %s`, invitationColumns, cond), arg))
	if err != nil {
		return directory.Invitation{}, err
	}
	invitations := []directory.Invitation{invitation}
	if err := s.attachInvitationRoles(ctx, invitations); err != nil {
		return directory.Invitation{}, err
	}
	return invitations[0], nil
}

func (s *Store) CreateInvitation(ctx context.Context, invitation directory.NewInvitation) (directory.Invitation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.Invitation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into invitations (id, email, token, status, invited_by, message, expires_at)
		values ($1, $2, $3, 'PENDING', $4, $5, $6)
	`, invitation.ID, invitation.Email, invitation.Token, nullIfEmpty(invitation.InvitedBy), nullIfEmpty(invitation.Message), invitation.ExpiresAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.Invitation{}, directory.ErrConflict
		}
		return directory.Invitation{}, err
	}
	for _, roleID := range invitation.RoleIDs {
		if _, err := tx.ExecContext(ctx,
			`insert into invitation_roles (invitation_id, role_id) values ($1, $2)`,
			invitation.ID, roleID); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return directory.Invitation{}, directory.ErrNotFound
			}
			return directory.Invitation{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return directory.Invitation{}, err
	}
	return s.FindInvitation(ctx, invitation.ID)
}

func (s *Store) RenewInvitation(ctx context.Context, id string, renewal directory.InvitationRenewal) (directory.Invitation, error) {
	var err error
	if renewal.Token != "" {
		_, err = s.db.ExecContext(ctx, `
			update invitations set token = $2, expires_at = $3, updated_at = now() where id = $1
		`, id, renewal.Token, renewal.ExpiresAt)
	} else {
		_, err = s.db.ExecContext(ctx, `
			update invitations set expires_at = $2, updated_at = now() where id = $1
		`, id, renewal.ExpiresAt)
	}
	if err != nil {
		return directory.Invitation{}, err
	}
	return s.FindInvitation(ctx, id)
}

func (s *Store) SetInvitationStatus(ctx context.Context, id, status string, acceptedAt *time.Time) (directory.Invitation, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set status = $2, accepted_at = $3, updated_at = now() where id = $1
	`, id, status, nullIfZeroTime(acceptedAt))
	if err != nil {
		return directory.Invitation{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.Invitation{}, directory.ErrNotFound
	}
	return s.FindInvitation(ctx, id)
}

func (s *Store) attachInvitationRoles(ctx context.Context, invitations []directory.Invitation) error {
	if len(invitations) == 0 {
		return nil
	}
	ids := make([]string, len(invitations))
	index := make(map[string]int, len(invitations))
	for i := range invitations {
		invitations[i].Roles = []directory.RoleRef{}
		ids[i] = invitations[i].ID
		index[invitations[i].ID] = i
	}
	rows, err := s.db.QueryContext(ctx, `
		select ir.invitation_id, r.id, r.name, r.is_active
		from invitation_roles ir
		join roles r on r.id = ir.role_id
		where ir.invitation_id = any($1)
		order by r.name
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var invitationID string
		var ref directory.RoleRef
		if err := rows.Scan(&invitationID, &ref.ID, &ref.Name, &ref.IsActive); err != nil {
			return err
		}
		if i, ok := index[invitationID]; ok {
			invitations[i].Roles = append(invitations[i].Roles, ref)
		}
	}
	return rows.Err()
}

func scanInvitation(row userScanner) (directory.Invitation, error) {
	var invitation directory.Invitation
	var acceptedAt sql.NullTime
	err := row.Scan(&invitation.ID, &invitation.Email, &invitation.Token, &invitation.Status,
		&invitation.InvitedBy, &invitation.Message, &invitation.ExpiresAt, &acceptedAt, &invitation.CreatedAt, &invitation.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Invitation{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.Invitation{}, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		invitation.AcceptedAt = &t
	}
	invitation.Roles = []directory.RoleRef{}
	return invitation, nil
}
