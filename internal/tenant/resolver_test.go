package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	accounts map[string]*Account
	err      error
	calls    int
}

func (f *fakeLookup) LookupBySlug(_ context.Context, slug string) (*Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if acct, ok := f.accounts[slug]; ok {
		return acct, nil
	}
	return nil, ErrAccountNotFound
}

func resolveRequest(t *testing.T, lookup AccountLookup, target string, inner http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	resolver := NewResolver(lookup, HostConfig{BaseDomain: "tryequipped.com"})
	handler := resolver.Middleware(inner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	handler.ServeHTTP(rec, req)
	return rec
}

func TestResolver_CandidateResolvesAndPopulatesContext(t *testing.T) {
	acmeID := uuid.New()
	lookup := &fakeLookup{accounts: map[string]*Account{
		"acme": {ID: acmeID, Slug: "acme", Name: "Acme Robotics"},
	}}

	var seen *Context
	rec := resolveRequest(t, lookup, "http://acme.tryequipped.com/api/v1/team", func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, lookup.calls)
	require.NotNil(t, seen)
	require.NotNil(t, seen.Account)
	require.Equal(t, acmeID, seen.Account.ID)
	require.Equal(t, "acme", seen.Subdomain)
	require.False(t, seen.Reserved)
}

func TestResolver_UnknownSubdomainIsNotFound(t *testing.T) {
	lookup := &fakeLookup{accounts: map[string]*Account{}}

	rec := resolveRequest(t, lookup, "http://ghost.tryequipped.com/", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for unknown workspaces")
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "tenant_not_found")
	require.Contains(t, rec.Body.String(), "ghost")
}

func TestResolver_RedirectHostMovesToApex(t *testing.T) {
	lookup := &fakeLookup{}

	rec := resolveRequest(t, lookup, "http://www.tryequipped.com/pricing?plan=growth", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for redirect hosts")
	})

	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "http://tryequipped.com/pricing?plan=growth", rec.Header().Get("Location"))
	require.Zero(t, lookup.calls)
}

func TestResolver_ReservedHostSkipsLookup(t *testing.T) {
	lookup := &fakeLookup{}

	var seen *Context
	rec := resolveRequest(t, lookup, "http://admin.tryequipped.com/", func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, lookup.calls)
	require.NotNil(t, seen)
	require.Nil(t, seen.Account)
	require.True(t, seen.Reserved)
	require.Equal(t, "admin", seen.Subdomain)
}

func TestResolver_ApexContinuesWithoutTenant(t *testing.T) {
	lookup := &fakeLookup{}

	var sawContext bool
	rec := resolveRequest(t, lookup, "http://tryequipped.com/", func(w http.ResponseWriter, r *http.Request) {
		sawContext = FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, lookup.calls)
	require.False(t, sawContext)
}

func TestResolver_UnreachableLookupIsServiceUnavailable(t *testing.T) {
	lookup := &fakeLookup{err: ErrLookupUnavailable}

	rec := resolveRequest(t, lookup, "http://acme.tryequipped.com/", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when lookup is unavailable")
	})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "service_unavailable")
}

func TestResolver_LookupFailureIsInternal(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("connection reset")}

	rec := resolveRequest(t, lookup, "http://acme.tryequipped.com/", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when lookup fails")
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "connection reset")
}

func TestRequireAccount_MissingTenant(t *testing.T) {
	_, err := RequireAccount(context.Background())
	require.ErrorIs(t, err, ErrNoTenant)

	reserved := WithContext(context.Background(), &Context{Reserved: true, Subdomain: "admin"})
	_, err = RequireAccount(reserved)
	require.ErrorIs(t, err, ErrNoTenant)
}
