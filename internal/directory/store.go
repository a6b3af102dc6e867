package directory

import (
	"context"
	"time"
)

// UserUpdate carries the mutable user fields. Nil pointers leave the column
// untouched.
type UserUpdate struct {
	FullName *string
	IsActive *bool
}

// RoleUpdate carries the mutable role fields.
type RoleUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// PermissionUpdate carries the mutable permission fields. The code is not
// here on purpose; it is immutable.
type PermissionUpdate struct {
	Description *string
	IsActive    *bool
}

// NewUser is the insert shape for accounts created through invitation
// acceptance.
type NewUser struct {
	ID         string
	ExternalID string
	Email      string
	FullName   string
	RoleIDs    []string
}

// NewInvitation is the insert shape for invitations.
type NewInvitation struct {
	ID        string
	Email     string
	Token     string
	RoleIDs   []string
	InvitedBy string
	Message   string
	ExpiresAt time.Time
}

// InvitationRenewal updates a pending invitation on resend. Token is empty
// when the existing token stays valid.
type InvitationRenewal struct {
	Token     string
	ExpiresAt time.Time
}

// Store is the persistence surface for users, roles, permissions and
// invitations. Implementations translate uniqueness violations to
// ErrConflict and missing rows to ErrNotFound.
type Store interface {
	// AccessBySubject loads the user and its full role and permission graph.
	// The subject matches either the external identity-provider id or the
	// internal user id.
	AccessBySubject(ctx context.Context, subject string) (*UserAccess, error)

	ListUsers(ctx context.Context, filter UserFilter, offset, limit int) ([]User, int, error)
	FindUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByExternalID(ctx context.Context, externalID string) (User, error)
	CreateUser(ctx context.Context, user NewUser) (User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (User, error)
	// ReplaceUserRoles swaps the full role assignment in one transaction.
	ReplaceUserRoles(ctx context.Context, userID string, roleIDs []string) (User, error)
	// LinkExternalIdentity stores the identity-provider subject on an account.
	LinkExternalIdentity(ctx context.Context, id, externalID string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	ListRoles(ctx context.Context, search string, offset, limit int) ([]RoleWithStats, int, error)
	FindRole(ctx context.Context, id string) (RoleWithStats, error)
	CreateRole(ctx context.Context, role Role, permissionIDs []string) (RoleWithStats, error)
	UpdateRole(ctx context.Context, id string, update RoleUpdate, permissionIDs []string) (RoleWithStats, error)
	DeleteRole(ctx context.Context, id string) error
	ListRoleUsers(ctx context.Context, roleID string, offset, limit int) ([]User, int, error)

	ListPermissions(ctx context.Context, search string, offset, limit int) ([]PermissionWithStats, int, error)
	FindPermission(ctx context.Context, id string) (PermissionWithStats, error)
	CreatePermission(ctx context.Context, permission Permission) (Permission, error)
	UpdatePermission(ctx context.Context, id string, update PermissionUpdate) (Permission, error)
	DeprecatePermission(ctx context.Context, id string, at time.Time) (Permission, error)

	ListInvitations(ctx context.Context, filter InvitationFilter, offset, limit int) ([]Invitation, int, error)
	FindInvitation(ctx context.Context, id string) (Invitation, error)
	FindInvitationByToken(ctx context.Context, token string) (Invitation, error)
	FindPendingInvitationByEmail(ctx context.Context, email string) (Invitation, error)
	CreateInvitation(ctx context.Context, invitation NewInvitation) (Invitation, error)
	RenewInvitation(ctx context.Context, id string, renewal InvitationRenewal) (Invitation, error)
	SetInvitationStatus(ctx context.Context, id, status string, acceptedAt *time.Time) (Invitation, error)

	Stats(ctx context.Context) (Stats, error)
}
