package directory

import (
	"context"
	"fmt"
	"strings"

	"osmadmin.org/internal/ids"
)

// CreateRoleInput is the request shape for new roles.
type CreateRoleInput struct {
	Name          string
	Description   string
	PermissionIDs []string
}

// UpdateRoleInput is the request shape for role edits. Nil PermissionIDs
// leaves the permission links untouched; an empty non-nil slice clears them.
type UpdateRoleInput struct {
	Name          *string
	Description   *string
	IsActive      *bool
	PermissionIDs []string
}

// ListRoles returns one page of roles with their user counts and permission
// links. Search narrows by name as a case-insensitive substring.
func (s *Service) ListRoles(ctx context.Context, search string, page Page) ([]RoleWithStats, int, error) {
	page = page.Normalize()
	return s.store.ListRoles(ctx, strings.TrimSpace(search), page.Offset(), page.Size)
}

// GetRole loads one role by id.
func (s *Service) GetRole(ctx context.Context, id string) (RoleWithStats, error) {
	return s.store.FindRole(ctx, id)
}

// CreateRole inserts a role with its permission links. Role names are
// unique; a collision comes back as ErrConflict.
func (s *Service) CreateRole(ctx context.Context, input CreateRoleInput) (RoleWithStats, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return RoleWithStats{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role, err := s.store.CreateRole(ctx, Role{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}, dedupeIDs(input.PermissionIDs))
	if err != nil {
		return RoleWithStats{}, err
	}
	s.audit.Record(ctx, "role.create", "role", role.ID, role.Name, map[string]any{
		"name":          role.Name,
		"permissionIds": input.PermissionIDs,
	})
	return role, nil
}

// UpdateRole edits role fields and, when requested, replaces its permission
// links in the same transaction.
func (s *Service) UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (RoleWithStats, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return RoleWithStats{}, fmt.Errorf("%w: role name cannot be blank", ErrInvalidInput)
	}
	var permissionIDs []string
	if input.PermissionIDs != nil {
		permissionIDs = dedupeIDs(input.PermissionIDs)
		if permissionIDs == nil {
			permissionIDs = []string{}
		}
	}
	role, err := s.store.UpdateRole(ctx, id, RoleUpdate{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    input.IsActive,
	}, permissionIDs)
	if err != nil {
		return RoleWithStats{}, err
	}
	s.audit.Record(ctx, "role.update", "role", role.ID, role.Name, input)
	return role, nil
}

// DeleteRole removes a role. Roles still assigned to users cannot be
// deleted; the store reports that as ErrInvalidState.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	role, err := s.store.FindRole(ctx, id)
	if err != nil {
		return err
	}
	if role.UserCount > 0 {
		return fmt.Errorf("%w: role is still assigned to %d users", ErrInvalidState, role.UserCount)
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "role.delete", "role", role.ID, role.Name, nil)
	return nil
}

// CloneRole creates a new role carrying the source role's permission links.
// The clone starts active regardless of the source's state.
func (s *Service) CloneRole(ctx context.Context, sourceID, name string) (RoleWithStats, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RoleWithStats{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	source, err := s.store.FindRole(ctx, sourceID)
	if err != nil {
		return RoleWithStats{}, err
	}
	permissionIDs := make([]string, 0, len(source.Permissions))
	for _, permission := range source.Permissions {
		permissionIDs = append(permissionIDs, permission.ID)
	}
	clone, err := s.store.CreateRole(ctx, Role{
		ID:          ids.New(),
		Name:        name,
		Description: source.Description,
		IsActive:    true,
	}, permissionIDs)
	if err != nil {
		return RoleWithStats{}, err
	}
	s.audit.Record(ctx, "role.clone", "role", clone.ID, clone.Name, map[string]string{
		"sourceRoleId": source.ID,
	})
	return clone, nil
}

// ListRoleUsers returns one page of the users holding the role.
func (s *Service) ListRoleUsers(ctx context.Context, roleID string, page Page) ([]User, int, error) {
	if _, err := s.store.FindRole(ctx, roleID); err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	return s.store.ListRoleUsers(ctx, roleID, page.Offset(), page.Size)
}
