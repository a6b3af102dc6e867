package directory

import (
	"context"
	"fmt"
	"strings"
)

// ListUsers returns one page of users plus the total match count.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter, page Page) ([]User, int, error) {
	page = page.Normalize()
	return s.store.ListUsers(ctx, filter, page.Offset(), page.Size)
}

// GetUser loads one user by id.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.FindUser(ctx, id)
}

// SetUserActive toggles the account on or off. Deactivation takes effect on
// the subject's next permission resolution. The optional reason lands in the
// audit payload only.
func (s *Service) SetUserActive(ctx context.Context, id string, active bool, reason string) (User, error) {
	user, err := s.store.UpdateUser(ctx, id, UserUpdate{IsActive: &active})
	if err != nil {
		return User{}, err
	}
	action := "user.activate"
	if !active {
		action = "user.deactivate"
	}
	changes := map[string]any{"isActive": active}
	if reason = strings.TrimSpace(reason); reason != "" {
		changes["reason"] = reason
	}
	s.audit.Record(ctx, action, "user", user.ID, user.Email, changes)
	return user, nil
}

// UpdateUser changes profile fields.
func (s *Service) UpdateUser(ctx context.Context, id string, update UserUpdate) (User, error) {
	user, err := s.store.UpdateUser(ctx, id, update)
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, "user.update", "user", user.ID, user.Email, update)
	return user, nil
}

// AssignUserRoles replaces the user's role set with exactly the given role
// ids. The swap is atomic; concurrent readers never observe a partially
// assigned user.
func (s *Service) AssignUserRoles(ctx context.Context, id string, roleIDs []string) (User, error) {
	roleIDs = dedupeIDs(roleIDs)
	user, err := s.store.ReplaceUserRoles(ctx, id, roleIDs)
	if err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, "user.assign-roles", "user", user.ID, user.Email, map[string][]string{"roleIds": roleIDs})
	return user, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
