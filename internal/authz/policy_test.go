package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allRoles = []Role{RoleOwner, RoleAdmin, RoleMember, RoleBuyer, RoleViewer, RoleNoAccess}

func TestCanAssignRole_OwnerAssignsAnything(t *testing.T) {
	for _, target := range allRoles {
		require.True(t, CanAssignRole(RoleOwner, target), "owner should assign %s", target)
	}
}

func TestCanAssignRole_AdminAssignsAllButOwner(t *testing.T) {
	require.False(t, CanAssignRole(RoleAdmin, RoleOwner))

	for _, target := range allRoles {
		if target == RoleOwner {
			continue
		}
		require.True(t, CanAssignRole(RoleAdmin, target), "admin should assign %s", target)
	}
}

func TestCanAssignRole_LowerRolesAssignNothing(t *testing.T) {
	for _, actor := range []Role{RoleMember, RoleBuyer, RoleViewer, RoleNoAccess} {
		for _, target := range allRoles {
			require.False(t, CanAssignRole(actor, target), "%s must not assign %s", actor, target)
		}
	}
}

func TestCanAssignRole_RejectsUnknownTarget(t *testing.T) {
	require.False(t, CanAssignRole(RoleOwner, Role("superuser")))
	require.False(t, CanAssignRole(RoleAdmin, Role("")))
}

func TestCanManageTeam(t *testing.T) {
	require.True(t, CanManageTeam(RoleOwner))
	require.True(t, CanManageTeam(RoleAdmin))
	require.False(t, CanManageTeam(RoleMember))
	require.False(t, CanManageTeam(RoleBuyer))
	require.False(t, CanManageTeam(RoleViewer))
	require.False(t, CanManageTeam(RoleNoAccess))
}

func TestCanManageInvitations_MatchesCanManageTeam(t *testing.T) {
	for _, role := range allRoles {
		require.Equal(t, CanManageTeam(role), CanManageInvitations(role), "role %s", role)
	}
}

func TestCanModifyOrganizationProfile(t *testing.T) {
	require.True(t, CanModifyOrganizationProfile(RoleOwner))
	require.True(t, CanModifyOrganizationProfile(RoleAdmin))
	require.False(t, CanModifyOrganizationProfile(RoleMember))
	require.False(t, CanModifyOrganizationProfile(RoleViewer))
}

func TestCanDeleteOrganization_OwnerOnly(t *testing.T) {
	require.True(t, CanDeleteOrganization(RoleOwner))

	for _, role := range []Role{RoleAdmin, RoleMember, RoleBuyer, RoleViewer, RoleNoAccess} {
		require.False(t, CanDeleteOrganization(role), "role %s", role)
	}
}

func TestCanViewWorkspace(t *testing.T) {
	for _, role := range []Role{RoleOwner, RoleAdmin, RoleMember, RoleBuyer, RoleViewer} {
		require.True(t, CanViewWorkspace(role), "role %s", role)
	}
	require.False(t, CanViewWorkspace(RoleNoAccess))
	require.False(t, CanViewWorkspace(Role("stranger")))
}

func TestFleetCapabilities(t *testing.T) {
	require.True(t, CanEditFleet(RoleMember))
	require.False(t, CanEditFleet(RoleBuyer))
	require.False(t, CanEditFleet(RoleViewer))

	require.True(t, CanManageOrders(RoleBuyer))
	require.False(t, CanManageOrders(RoleViewer))

	require.True(t, CanDeleteFleetRows(RoleAdmin))
	require.False(t, CanDeleteFleetRows(RoleMember))
}
