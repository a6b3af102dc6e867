package auth

import (
	"context"
	"strings"
)

const bearerPrefix = "Bearer "

// Resolver computes the effective permission set for a token subject. The
// source of truth is always a recomputation against storage; any caching
// belongs to the caller.
type Resolver interface {
	Resolve(ctx context.Context, subject string) (PermissionSet, error)
}

// ContextBuilder turns an Authorization header value into a per-request
// Identity: verify the bearer token, extract claims, resolve permissions.
type ContextBuilder struct {
	verifier *Verifier
	resolver Resolver
}

// NewContextBuilder wires a Verifier with a Resolver.
func NewContextBuilder(verifier *Verifier, resolver Resolver) *ContextBuilder {
	return &ContextBuilder{verifier: verifier, resolver: resolver}
}

// Build returns the identity for the request, or nil for anonymous callers.
// A missing header, a malformed scheme or a failed verification all yield
// nil identity and a nil error; only resolver infrastructure failures are
// returned as errors.
func (b *ContextBuilder) Build(ctx context.Context, authorizationHeader string) (*Identity, error) {
	token, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, nil
	}
	claims, err := b.verifier.Verify(token)
	if err != nil {
		return nil, nil
	}
	permissions, err := b.resolver.Resolve(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return &Identity{
		SubjectID:   claims.Subject,
		Email:       claims.EmailOf(),
		Permissions: permissions,
		RawToken:    token,
	}, nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
