package directory

import "time"

// RoleRef is the compact role shape embedded in user payloads.
type RoleRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// User is an administrative account. ExternalID carries the identity
// provider's subject when the account was provisioned through SSO.
type User struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"externalId,omitempty"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName,omitempty"`
	IsActive    bool       `json:"isActive"`
	Roles       []RoleRef  `json:"roles"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// DisplayName returns the full name, falling back to the local part of the
// email when the profile never set one.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

// Role groups permissions for assignment to users.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PermissionRef is the compact permission shape embedded in role payloads.
type PermissionRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// RoleWithStats is the list/detail read shape for roles.
type RoleWithStats struct {
	Role
	UserCount   int             `json:"userCount"`
	Permissions []PermissionRef `json:"permissions"`
}

// Permission is one grantable capability, coded "resource:action". The code
// is immutable after creation; retiring a permission sets DeprecatedAt so
// existing role links keep their history without granting access.
type Permission struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Description  string     `json:"description,omitempty"`
	IsActive     bool       `json:"isActive"`
	DeprecatedAt *time.Time `json:"deprecatedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Grants reports whether the permission currently confers access.
func (p Permission) Grants() bool {
	return p.IsActive && p.DeprecatedAt == nil
}

// PermissionWithStats is the list read shape for permissions.
type PermissionWithStats struct {
	Permission
	RoleCount int `json:"roleCount"`
}

// Invitation statuses. Expiry is never written by a background job; a
// pending invitation past its deadline reports StatusExpired from
// EffectiveStatus.
const (
	StatusPending   = "PENDING"
	StatusAccepted  = "ACCEPTED"
	StatusExpired   = "EXPIRED"
	StatusCancelled = "CANCELLED"
)

// Invitation is a pending offer to join, carrying the roles the new account
// will start with.
type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Token      string     `json:"-"`
	Status     string     `json:"status"`
	Roles      []RoleRef  `json:"roles"`
	InvitedBy  string     `json:"invitedBy,omitempty"`
	Message    string     `json:"message,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// EffectiveStatus folds expiry into the stored status.
func (i Invitation) EffectiveStatus(now time.Time) string {
	if i.Status == StatusPending && now.After(i.ExpiresAt) {
		return StatusExpired
	}
	return i.Status
}

// Stats is the admin dashboard headline block. RecentLogins counts logins in
// the trailing seven days.
type Stats struct {
	TotalUsers         int `json:"totalUsers"`
	ActiveUsers        int `json:"activeUsers"`
	InactiveUsers      int `json:"inactiveUsers"`
	RecentLogins       int `json:"recentLogins"`
	TotalRoles         int `json:"totalRoles"`
	RolesWithoutUsers  int `json:"rolesWithoutUsers"`
	TotalPermissions   int `json:"totalPermissions"`
	PendingInvitations int `json:"pendingInvitations"`
}

// Page is a 0-based page request. Zero values mean "first page, default
// size"; Normalize clamps out-of-range sizes.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize returns a page with in-range number and size.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset converts the page to a row offset.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// UserFilter narrows user listings. Search matches email and full name as a
// case-insensitive substring.
type UserFilter struct {
	Search   string
	IsActive *bool
	RoleID   string
}

// InvitationFilter narrows invitation listings by stored status.
type InvitationFilter struct {
	Status string
	Search string
}

// RoleGrant pairs a role with the permissions it carries, as loaded for
// permission resolution.
type RoleGrant struct {
	Role        Role
	Permissions []Permission
}

// UserAccess is everything permission resolution needs about one subject.
type UserAccess struct {
	User  User
	Roles []RoleGrant
}
