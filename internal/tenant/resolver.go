package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
)

// ErrAccountNotFound is returned by AccountLookup implementations when
// no workspace matches the short name.
var ErrAccountNotFound = errors.New("account not found")

// ErrLookupUnavailable is returned when the datastore cannot serve the
// lookup at all (unconfigured or unreachable).
var ErrLookupUnavailable = errors.New("account lookup unavailable")

// AccountLookup resolves a workspace short name to an account.
type AccountLookup interface {
	LookupBySlug(ctx context.Context, slug string) (*Account, error)
}

// Resolver classifies the Host header of every request and attaches
// the tenant context. Constructed with its lookup dependency so tests
// can substitute one.
type Resolver struct {
	lookup AccountLookup
	cfg    HostConfig
}

// NewResolver creates a resolver over the given lookup.
func NewResolver(lookup AccountLookup, cfg HostConfig) *Resolver {
	return &Resolver{lookup: lookup, cfg: cfg}
}

// Middleware resolves the workspace for each request. Redirect hosts
// 301 to the apex, reserved hosts and the apex continue without a
// workspace, unknown subdomains fail with 404, and an unreachable
// datastore fails with 503 so callers can tell outage from absence.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := ParseHost(r.Host, rs.cfg)

		switch info.Kind {
		case HostRedirect:
			target := url.URL{
				Scheme:   requestScheme(r),
				Host:     rs.cfg.BaseDomain,
				Path:     r.URL.Path,
				RawQuery: r.URL.RawQuery,
			}
			http.Redirect(w, r, target.String(), http.StatusMovedPermanently)
			return

		case HostReserved:
			ctx := WithContext(r.Context(), &Context{Subdomain: info.Name, Reserved: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return

		case HostCandidate:
			acct, err := rs.lookup.LookupBySlug(r.Context(), info.Name)
			if err != nil {
				rs.writeLookupError(w, r, info.Name, err)
				return
			}

			ctx := WithContext(r.Context(), &Context{Account: acct, Subdomain: info.Name})
			next.ServeHTTP(w, r.WithContext(ctx))
			return

		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (rs *Resolver) writeLookupError(w http.ResponseWriter, r *http.Request, name string, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		apperrors.WriteError(w, r, http.StatusNotFound, "tenant_not_found",
			fmt.Sprintf("No workspace named %q", name))
	case errors.Is(err, ErrLookupUnavailable):
		log.Warn().Err(err).Str("subdomain", name).Msg("Workspace lookup unavailable")
		apperrors.WriteServiceUnavailable(w, r, "Workspace lookup is unavailable")
	default:
		log.Error().Err(err).Str("subdomain", name).Msg("Workspace lookup failed")
		apperrors.WriteInternalError(w, r, "Internal server error")
	}
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
