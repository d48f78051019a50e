package scoped

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/tenant"
)

func TestFor_RequiresResolvedWorkspace(t *testing.T) {
	_, err := For(nil)
	require.ErrorIs(t, err, ErrTenantRequired)

	_, err = For(&tenant.Context{Reserved: true, Subdomain: "admin"})
	require.ErrorIs(t, err, ErrTenantRequired)
}

func TestFromContext_RequiresResolvedWorkspace(t *testing.T) {
	_, err := FromContext(context.Background())
	require.ErrorIs(t, err, ErrTenantRequired)
}

func TestFromContext_CarriesResolvedAccount(t *testing.T) {
	acct := uuid.New()
	ctx := tenant.WithContext(context.Background(), &tenant.Context{
		Account:   &tenant.Account{ID: acct, Slug: "acme"},
		Subdomain: "acme",
	})

	s, err := FromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, acct, s.AccountID())
}
