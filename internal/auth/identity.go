package auth

import (
	"sort"
	"strings"
)

// PermissionSet is the effective set of permission codes granted to a caller.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from raw codes, trimming and deduplicating.
func NewPermissionSet(codes []string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

// Has reports whether the exact code is in the set.
func (s PermissionSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the codes in lexical order, for responses and tokens.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Identity is the resolved caller for one request: subject, email and the
// effective permission set. It is recomputed per request; permissions can
// change between requests through role edits or deactivation.
type Identity struct {
	SubjectID   string
	Email       string
	Permissions PermissionSet
	RawToken    string
}
