// Package auth implements the authorization capability consulted before
// administrative engine operations.
package auth

import (
	"context"
	"strings"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Static authorizes a fixed allowlist of admin accounts loaded from
// configuration. Matching is case-insensitive so hex addresses compare
// regardless of checksum casing.
type Static struct {
	admins map[domain.Account]struct{}
}

// NewStatic builds an authorizer from the configured admin accounts. Empty
// entries are ignored; an empty allowlist authorizes nobody.
func NewStatic(admins []string) *Static {
	set := make(map[domain.Account]struct{}, len(admins))
	for _, a := range admins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		set[domain.Account(strings.ToLower(a))] = struct{}{}
	}
	return &Static{admins: set}
}

// IsAdmin reports whether the account is on the allowlist.
func (s *Static) IsAdmin(_ context.Context, account domain.Account) bool {
	_, ok := s.admins[domain.Account(strings.ToLower(string(account)))]
	return ok
}

// Compile-time interface check.
var _ domain.Authorizer = (*Static)(nil)
