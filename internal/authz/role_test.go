package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole_AcceptsKnownRoles(t *testing.T) {
	for _, name := range []string{"owner", "admin", "member", "buyer", "viewer", "noaccess"} {
		role, err := ParseRole(name)
		require.NoError(t, err)
		require.Equal(t, name, role.String())
	}
}

func TestParseRole_RejectsUnknown(t *testing.T) {
	_, err := ParseRole("superuser")
	require.Error(t, err)

	_, err = ParseRole("")
	require.Error(t, err)

	_, err = ParseRole("Owner")
	require.Error(t, err)
}

func TestRank_OrdersHierarchy(t *testing.T) {
	require.Greater(t, RoleOwner.Rank(), RoleAdmin.Rank())
	require.Greater(t, RoleAdmin.Rank(), RoleMember.Rank())
	require.Greater(t, RoleMember.Rank(), RoleBuyer.Rank())
	require.Greater(t, RoleBuyer.Rank(), RoleViewer.Rank())
	require.Greater(t, RoleViewer.Rank(), RoleNoAccess.Rank())
}
