// Package scoped is the only sanctioned way domain code touches tenant
// data. Every statement it builds is mechanically bound to the
// workspace resolved for the current request: the account filter is
// appended by the builder, never by the caller, so a code path that
// never resolved a tenant cannot produce a runnable query.
package scoped

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tryequipped/equipped/internal/tenant"
)

// ErrTenantRequired is returned when a scope is requested from a
// request that never resolved a workspace.
var ErrTenantRequired = errors.New("tenant context required")

// ErrNotFound is returned when no row matches within the current
// workspace. Ids belonging to another tenant land here too: the scope
// filter simply never matches them.
var ErrNotFound = errors.New("not found")

// Scope pins statements to one workspace. The account id is
// unexported and the only constructors derive it from a populated
// tenant context. A zero Scope filters on the nil UUID, which matches
// no rows.
type Scope struct {
	accountID uuid.UUID
}

// For derives a scope from a tenant context.
func For(tc *tenant.Context) (Scope, error) {
	if tc == nil || tc.Account == nil {
		return Scope{}, ErrTenantRequired
	}
	return Scope{accountID: tc.Account.ID}, nil
}

// FromContext derives a scope straight from a request context.
func FromContext(ctx context.Context) (Scope, error) {
	return For(tenant.FromContext(ctx))
}

// AccountID exposes the bound workspace for audit payloads and logs.
func (s Scope) AccountID() uuid.UUID {
	return s.accountID
}
