package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoTenant is returned when an operation requires a resolved
// workspace and the request carries none.
var ErrNoTenant = errors.New("tenant context required")

// Account is the resolved workspace as seen by the request pipeline.
// The full organization record (billing fields and so on) lives in the
// account package; resolution only needs identity and naming.
type Account struct {
	ID   uuid.UUID
	Slug string
	Name string
}

// Context is the per-request tenant state. The resolver middleware
// populates it exactly once; nothing mutates it afterwards.
type Context struct {
	// Account is the resolved workspace. Nil on apex and reserved hosts.
	Account *Account

	// Subdomain is the host label that drove resolution.
	Subdomain string

	// Reserved marks infrastructure hosts that skip workspace lookup.
	Reserved bool
}

type ctxKey int

const contextKey ctxKey = 0

// WithContext returns a request context carrying tc.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey, tc)
}

// FromContext returns the tenant context, or nil when the resolver
// never ran (apex requests reach handlers without one).
func FromContext(ctx context.Context) *Context {
	tc, _ := ctx.Value(contextKey).(*Context)
	return tc
}

// RequireAccount returns the resolved workspace or ErrNoTenant.
func RequireAccount(ctx context.Context) (*Account, error) {
	tc := FromContext(ctx)
	if tc == nil || tc.Account == nil {
		return nil, ErrNoTenant
	}
	return tc.Account, nil
}
