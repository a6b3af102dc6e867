package auth

import (
	"errors"
	"testing"
)

func TestIsAuthorizedExactMatch(t *testing.T) {
	granted := NewPermissionSet([]string{"models:list"})
	if !IsAuthorized(granted, "models:list") {
		t.Fatal("exact code should be allowed")
	}
	if IsAuthorized(granted, "models:create") {
		t.Fatal("unrelated action should be denied")
	}
}

func TestIsAuthorizedSuperAdminBypassesEverything(t *testing.T) {
	granted := NewPermissionSet([]string{PermSuperAdmin})
	for _, code := range []string{"models:create", "roles:delete", "anything:at-all"} {
		if !IsAuthorized(granted, code) {
			t.Fatalf("super admin should be allowed %q", code)
		}
	}
}

func TestIsAuthorizedWildcard(t *testing.T) {
	granted := NewPermissionSet([]string{"models:*"})
	if !IsAuthorized(granted, "models:create") {
		t.Fatal("wildcard should cover every action on the resource")
	}
	if IsAuthorized(granted, "clients:create") {
		t.Fatal("wildcard must not leak across resources")
	}
}

func TestIsAuthorizedEmptySetDenies(t *testing.T) {
	if IsAuthorized(NewPermissionSet(nil), "models:list") {
		t.Fatal("empty set should deny")
	}
}

func TestRequireDistinguishesUnauthenticatedFromForbidden(t *testing.T) {
	if err := Require(nil, "models:list"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("nil identity: expected ErrUnauthenticated, got %v", err)
	}

	identity := &Identity{SubjectID: "u1", Permissions: NewPermissionSet([]string{"models:list"})}
	if err := Require(identity, "models:create"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("insufficient set: expected ErrForbidden, got %v", err)
	}
	if err := Require(identity, "models:list"); err != nil {
		t.Fatalf("sufficient set: expected nil, got %v", err)
	}
}

func TestRequireWithoutDeclaredRequirementIsOpen(t *testing.T) {
	if err := Require(nil, ""); err != nil {
		t.Fatalf("no declared requirement should not gate: %v", err)
	}
}

func TestAnalystScenario(t *testing.T) {
	// Role "Analyst" grants models:list only.
	analyst := NewPermissionSet([]string{"models:list"})
	if IsAuthorized(analyst, "models:create") {
		t.Fatal("analyst must not create models")
	}
	if !IsAuthorized(analyst, "models:list") {
		t.Fatal("analyst must list models")
	}
}

func TestPermissionSetDeduplicatesAndTrims(t *testing.T) {
	set := NewPermissionSet([]string{" models:list ", "models:list", "", "admin:access"})
	if len(set) != 2 {
		t.Fatalf("expected 2 codes, got %d: %v", len(set), set.Sorted())
	}
	sorted := set.Sorted()
	if sorted[0] != "admin:access" || sorted[1] != "models:list" {
		t.Fatalf("unexpected order: %v", sorted)
	}
}
