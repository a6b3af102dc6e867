package directory

import (
	"context"
	"errors"
	"time"

	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/auth"
)

// Service implements the people-and-access surface: permission resolution,
// user administration, roles, permissions and the invitation lifecycle.
type Service struct {
	store Store
	audit *audit.Recorder
	now   func() time.Time
}

// NewService wires the service over its store and audit recorder.
func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, audit: recorder, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Resolve computes the effective permission set for a token subject. An
// unknown or deactivated subject resolves to the empty set rather than an
// error; authorization failures downstream stay uniform for callers probing
// for account existence.
func (s *Service) Resolve(ctx context.Context, subject string) (auth.PermissionSet, error) {
	access, err := s.store.AccessBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.NewPermissionSet(nil), nil
		}
		return nil, err
	}
	return EffectivePermissions(access), nil
}

// EffectivePermissions folds a user's role graph into the set of codes that
// currently grant access. Inactive users contribute nothing, inactive roles
// are skipped whole, and inactive or deprecated permissions are skipped
// individually. Duplicate codes across roles collapse.
func EffectivePermissions(access *UserAccess) auth.PermissionSet {
	set := auth.NewPermissionSet(nil)
	if access == nil || !access.User.IsActive {
		return set
	}
	for _, grant := range access.Roles {
		if !grant.Role.IsActive {
			continue
		}
		for _, permission := range grant.Permissions {
			if !permission.Grants() {
				continue
			}
			set[permission.Code] = struct{}{}
		}
	}
	return set
}

// Profile is the caller's own view of their account, the response to
// "who am I".
type Profile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FullName    string   `json:"fullName"`
	IsActive    bool     `json:"isActive"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// ProfileOf loads the profile for the given subject and stamps the login
// time. Unlike Resolve, an unknown subject here is an error: the caller
// already holds a verified token.
func (s *Service) ProfileOf(ctx context.Context, subject string) (Profile, error) {
	access, err := s.store.AccessBySubject(ctx, subject)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{
		ID:          access.User.ID,
		Email:       access.User.Email,
		FullName:    access.User.DisplayName(),
		IsActive:    access.User.IsActive,
		Roles:       make([]string, 0, len(access.Roles)),
		Permissions: EffectivePermissions(access).Sorted(),
	}
	for _, grant := range access.Roles {
		if grant.Role.IsActive {
			profile.Roles = append(profile.Roles, grant.Role.Name)
		}
	}
	if err := s.store.TouchLastLogin(ctx, access.User.ID, s.now().UTC()); err != nil {
		// Login stamping is advisory; the profile read already succeeded.
		return profile, nil
	}
	return profile, nil
}

// AdminStats returns the dashboard headline counters.
func (s *Service) AdminStats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}
