package directory

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"osmadmin.org/internal/ids"
)

// Permission codes follow "resource:action"; the action may be the "*"
// wildcard covering the whole resource.
var permissionCodePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*:([a-z][a-z0-9-]*|\*)$`)

// CreatePermissionInput is the request shape for new permissions.
type CreatePermissionInput struct {
	Code        string
	Description string
}

// ListPermissions returns one page of permissions with role usage counts.
// Search matches the code and description as a case-insensitive substring,
// so filtering by a resource prefix lists one module's permissions.
func (s *Service) ListPermissions(ctx context.Context, search string, page Page) ([]PermissionWithStats, int, error) {
	page = page.Normalize()
	return s.store.ListPermissions(ctx, strings.TrimSpace(search), page.Offset(), page.Size)
}

// GetPermission loads one permission by id.
func (s *Service) GetPermission(ctx context.Context, id string) (PermissionWithStats, error) {
	return s.store.FindPermission(ctx, id)
}

// CreatePermission registers a new grantable code. Codes are unique and
// immutable once created.
func (s *Service) CreatePermission(ctx context.Context, input CreatePermissionInput) (Permission, error) {
	code := strings.ToLower(strings.TrimSpace(input.Code))
	if !permissionCodePattern.MatchString(code) {
		return Permission{}, fmt.Errorf("%w: permission code must look like resource:action", ErrInvalidInput)
	}
	permission, err := s.store.CreatePermission(ctx, Permission{
		ID:          ids.New(),
		Code:        code,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	})
	if err != nil {
		return Permission{}, err
	}
	s.audit.Record(ctx, "permission.create", "permission", permission.ID, permission.Code, map[string]string{
		"code": permission.Code,
	})
	return permission, nil
}

// UpdatePermission edits the description or active flag. The code itself is
// immutable; renames would silently change what existing roles grant.
func (s *Service) UpdatePermission(ctx context.Context, id string, update PermissionUpdate) (Permission, error) {
	permission, err := s.store.UpdatePermission(ctx, id, update)
	if err != nil {
		return Permission{}, err
	}
	s.audit.Record(ctx, "permission.update", "permission", permission.ID, permission.Code, update)
	return permission, nil
}

// DeprecatePermission retires a permission without breaking role links. A
// deprecated permission stops granting access immediately but keeps its
// history.
func (s *Service) DeprecatePermission(ctx context.Context, id string) (Permission, error) {
	existing, err := s.store.FindPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if existing.DeprecatedAt != nil {
		return Permission{}, fmt.Errorf("%w: permission is already deprecated", ErrInvalidState)
	}
	permission, err := s.store.DeprecatePermission(ctx, id, s.now().UTC())
	if err != nil {
		return Permission{}, err
	}
	s.audit.Record(ctx, "permission.deprecate", "permission", permission.ID, permission.Code, nil)
	return permission, nil
}
