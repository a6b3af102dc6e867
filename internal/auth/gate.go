package auth

import "strings"

// IsAuthorized decides whether the granted set satisfies the required
// permission code. Rules in order, first match wins:
//
//  1. the set contains PermSuperAdmin;
//  2. the set contains the required code exactly;
//  3. the set contains "resource:*" for the required code's resource.
//
// An empty required code never matches anything; callers gate an operation
// only when a requirement is declared for it.
func IsAuthorized(granted PermissionSet, required string) bool {
	if required == "" {
		return false
	}
	if granted.Has(PermSuperAdmin) {
		return true
	}
	if granted.Has(required) {
		return true
	}
	resource, _, ok := strings.Cut(required, ":")
	if !ok {
		return false
	}
	return granted.Has(resource + ":*")
}

// Require checks the identity against a declared requirement and returns the
// taxonomy error: ErrUnauthenticated when there is no identity, ErrForbidden
// when the set does not satisfy the requirement.
func Require(identity *Identity, required string) error {
	if required == "" {
		return nil
	}
	if identity == nil {
		return ErrUnauthenticated
	}
	if !IsAuthorized(identity.Permissions, required) {
		return ErrForbidden
	}
	return nil
}
