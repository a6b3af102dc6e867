package directory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"osmadmin.org/internal/audit"
	"osmadmin.org/internal/auth"
	"osmadmin.org/internal/ids"
)

const (
	defaultInvitationDays = 7
	maxInvitationDays     = 30
	invitationTokenBytes  = 32
)

// CreateInvitationInput is the request shape for new invitations. Message is
// a free-form note shown to the invitee.
type CreateInvitationInput struct {
	Email         string
	RoleIDs       []string
	Message       string
	ExpiresInDays int
}

// CreateInvitation opens an invitation for the given email. The email must
// not belong to an existing account and must not already have a live pending
// invitation; an expired pending one is retired and replaced.
func (s *Service) CreateInvitation(ctx context.Context, input CreateInvitationInput) (Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Invitation{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	days := input.ExpiresInDays
	if days == 0 {
		days = defaultInvitationDays
	}
	if days < 1 || days > maxInvitationDays {
		return Invitation{}, fmt.Errorf("%w: expiry must be between 1 and %d days", ErrInvalidInput, maxInvitationDays)
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return Invitation{}, fmt.Errorf("%w: an account with this email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Invitation{}, err
	}

	now := s.now().UTC()
	if existing, err := s.store.FindPendingInvitationByEmail(ctx, email); err == nil {
		if existing.EffectiveStatus(now) == StatusPending {
			return Invitation{}, fmt.Errorf("%w: a pending invitation for this email already exists", ErrConflict)
		}
		if _, err := s.store.SetInvitationStatus(ctx, existing.ID, StatusExpired, nil); err != nil {
			return Invitation{}, err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return Invitation{}, err
	}

	token, err := newInvitationToken()
	if err != nil {
		return Invitation{}, err
	}
	invitedBy := audit.SystemActor
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		invitedBy = identity.SubjectID
	}
	invitation, err := s.store.CreateInvitation(ctx, NewInvitation{
		ID:        ids.New(),
		Email:     email,
		Token:     token,
		RoleIDs:   dedupeIDs(input.RoleIDs),
		InvitedBy: invitedBy,
		Message:   strings.TrimSpace(input.Message),
		ExpiresAt: now.AddDate(0, 0, days),
	})
	if err != nil {
		return Invitation{}, err
	}
	s.audit.Record(ctx, "invitation.create", "invitation", invitation.ID, invitation.Email, map[string]any{
		"email":     invitation.Email,
		"expiresAt": invitation.ExpiresAt,
	})
	return invitation, nil
}

// ListInvitations returns one page of invitations with expiry already folded
// into the reported status.
func (s *Service) ListInvitations(ctx context.Context, filter InvitationFilter, page Page) ([]Invitation, int, error) {
	page = page.Normalize()
	invitations, total, err := s.store.ListInvitations(ctx, filter, page.Offset(), page.Size)
	if err != nil {
		return nil, 0, err
	}
	now := s.now().UTC()
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus(now)
	}
	return invitations, total, nil
}

// GetInvitation loads one invitation by id with expiry folded into the
// reported status.
func (s *Service) GetInvitation(ctx context.Context, id string) (Invitation, error) {
	invitation, err := s.store.FindInvitation(ctx, id)
	if err != nil {
		return Invitation{}, err
	}
	invitation.Status = invitation.EffectiveStatus(s.now().UTC())
	return invitation, nil
}

// CancelInvitation withdraws a pending invitation. Accepted or cancelled
// invitations cannot be cancelled again.
func (s *Service) CancelInvitation(ctx context.Context, id string) (Invitation, error) {
	invitation, err := s.store.FindInvitation(ctx, id)
	if err != nil {
		return Invitation{}, err
	}
	if invitation.Status != StatusPending {
		return Invitation{}, fmt.Errorf("%w: only pending invitations can be cancelled", ErrInvalidState)
	}
	cancelled, err := s.store.SetInvitationStatus(ctx, id, StatusCancelled, nil)
	if err != nil {
		return Invitation{}, err
	}
	s.audit.Record(ctx, "invitation.cancel", "invitation", cancelled.ID, cancelled.Email, nil)
	return cancelled, nil
}

// ResendInvitation extends a pending invitation by the default window. The
// token is regenerated only when the previous one already expired, so links
// in flight keep working across a simple re-send.
func (s *Service) ResendInvitation(ctx context.Context, id string) (Invitation, error) {
	invitation, err := s.store.FindInvitation(ctx, id)
	if err != nil {
		return Invitation{}, err
	}
	if invitation.Status != StatusPending {
		return Invitation{}, fmt.Errorf("%w: only pending invitations can be re-sent", ErrInvalidState)
	}
	now := s.now().UTC()
	renewal := InvitationRenewal{ExpiresAt: now.AddDate(0, 0, defaultInvitationDays)}
	if invitation.EffectiveStatus(now) == StatusExpired {
		token, err := newInvitationToken()
		if err != nil {
			return Invitation{}, err
		}
		renewal.Token = token
	}
	renewed, err := s.store.RenewInvitation(ctx, id, renewal)
	if err != nil {
		return Invitation{}, err
	}
	s.audit.Record(ctx, "invitation.resend", "invitation", renewed.ID, renewed.Email, map[string]any{
		"expiresAt":        renewed.ExpiresAt,
		"tokenRegenerated": renewal.Token != "",
	})
	return renewed, nil
}

// InvitationCheck is the public answer for a token probe. It never reveals
// why an invitation is unusable beyond the status word.
type InvitationCheck struct {
	Valid     bool       `json:"valid"`
	Status    string     `json:"status,omitempty"`
	Email     string     `json:"email,omitempty"`
	Roles     []RoleRef  `json:"roles,omitempty"`
	Message   string     `json:"message,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ValidateInvitation checks a token without consuming it. Unknown tokens
// report invalid rather than not found.
func (s *Service) ValidateInvitation(ctx context.Context, token string) (InvitationCheck, error) {
	invitation, err := s.store.FindInvitationByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return InvitationCheck{Valid: false}, nil
		}
		return InvitationCheck{}, err
	}
	status := invitation.EffectiveStatus(s.now().UTC())
	if status != StatusPending {
		return InvitationCheck{Valid: false, Status: status}, nil
	}
	return InvitationCheck{
		Valid:     true,
		Status:    status,
		Email:     invitation.Email,
		Roles:     invitation.Roles,
		Message:   invitation.Message,
		ExpiresAt: &invitation.ExpiresAt,
	}, nil
}

// AcceptInvitation consumes a pending token. A new account is created with
// the invitation's roles; if an account already exists its role set is
// replaced instead. ExternalID links the account to the identity provider's
// subject so the first token login resolves immediately; an email-matched
// account without a link gets one here for the same reason. The flow is
// public, so the resulting audit entries attribute to the system actor.
func (s *Service) AcceptInvitation(ctx context.Context, token, externalID, fullName string) (User, error) {
	invitation, err := s.store.FindInvitationByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	if invitation.EffectiveStatus(now) != StatusPending {
		return User{}, fmt.Errorf("%w: invitation is no longer acceptable", ErrInvalidState)
	}

	roleIDs := make([]string, 0, len(invitation.Roles))
	for _, role := range invitation.Roles {
		roleIDs = append(roleIDs, role.ID)
	}
	externalID = strings.TrimSpace(externalID)

	user, err := s.findAcceptingUser(ctx, externalID, invitation.Email)
	switch {
	case err == nil:
		if externalID != "" && user.ExternalID == "" {
			if err := s.store.LinkExternalIdentity(ctx, user.ID, externalID); err != nil {
				return User{}, err
			}
		}
		user, err = s.store.ReplaceUserRoles(ctx, user.ID, roleIDs)
		if err != nil {
			return User{}, err
		}
	case errors.Is(err, ErrNotFound):
		user, err = s.store.CreateUser(ctx, NewUser{
			ID:         ids.New(),
			ExternalID: externalID,
			Email:      invitation.Email,
			FullName:   strings.TrimSpace(fullName),
			RoleIDs:    roleIDs,
		})
		if err != nil {
			return User{}, err
		}
	default:
		return User{}, err
	}

	if _, err := s.store.SetInvitationStatus(ctx, invitation.ID, StatusAccepted, &now); err != nil {
		return User{}, err
	}
	s.audit.Record(ctx, "invitation.accept", "user", user.ID, user.Email, map[string]any{
		"invitationId": invitation.ID,
	})
	return user, nil
}

// findAcceptingUser matches the accepting subject to an account, by the
// identity-provider id first and the invitation email second.
func (s *Service) findAcceptingUser(ctx context.Context, externalID, email string) (User, error) {
	if externalID != "" {
		user, err := s.store.FindUserByExternalID(ctx, externalID)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return user, err
		}
	}
	return s.store.FindUserByEmail(ctx, email)
}

func newInvitationToken() (string, error) {
	buf := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
