package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/app"
)

func TestE2E_TeamLifecycle_InvitesGuardrailsAudit(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(app.NewRouter(pool, testConfig()))
	t.Cleanup(srv.Close)

	accountID := uuid.New()
	syncAccount(t, srv.URL, accountID, "Acme Robotics", "acme")
	syncUser(t, srv.URL, "usr_owner", "olive@example.com", "Olive Owner")
	syncUser(t, srv.URL, "usr_casey", "casey@example.com", "Casey Casey")
	syncUser(t, srv.URL, "usr_mallory", "mallory@example.com", "Mallory Mallory")
	syncMembership(t, srv.URL, accountID, "usr_owner", "owner")

	ownerToken := mintSession(t, "usr_owner", "olive@example.com", "Olive Owner")
	caseyToken := mintSession(t, "usr_casey", "casey@example.com", "Casey Casey")
	malloryToken := mintSession(t, "usr_mallory", "mallory@example.com", "Mallory Mallory")
	acmeHost := "acme." + testBaseDomain

	// The owner sees themselves on the roster; a synced user without a
	// membership sees nothing at all.
	members := listTeam(t, srv.URL, acmeHost, ownerToken)
	require.Len(t, members, 1)
	require.Equal(t, "usr_owner", members[0].UserID)
	require.Equal(t, "owner", members[0].Role.String())

	errEnv := doJSONExpectError(t, http.MethodGet, srv.URL+"/api/v1/team", acmeHost, caseyToken, http.StatusForbidden, nil)
	require.Equal(t, "forbidden", errEnv.Error.Code)

	// Invite Casey, then change your mind about the role. The second
	// invitation supersedes the first; only one stays actionable.
	first := createInvite(t, srv.URL, acmeHost, ownerToken, "casey@example.com", "member")
	require.Equal(t, "pending", first.Status)

	second := createInvite(t, srv.URL, acmeHost, ownerToken, "casey@example.com", "buyer")
	require.NotEqual(t, first.ID, second.ID)

	pending := listInvites(t, srv.URL, acmeHost, ownerToken)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)
	require.Equal(t, "buyer", pending[0].Role.String())

	// Only the invited address may act on an invitation.
	errEnv = doJSONExpectError(t, http.MethodPost, srv.URL+"/api/v1/invitations/"+second.ID.String()+"/accept", acmeHost, malloryToken, http.StatusForbidden, nil)
	require.Equal(t, "forbidden", errEnv.Error.Code)

	// Casey accepts and joins at the invited role.
	env := doJSONExpectSuccess(t, http.MethodPost, srv.URL+"/api/v1/invitations/"+second.ID.String()+"/accept", acmeHost, caseyToken, http.StatusOK, nil)
	require.Contains(t, string(env.Data), `"role":"buyer"`)

	// The invitation is spent; accepting twice conflicts.
	errEnv = doJSONExpectError(t, http.MethodPost, srv.URL+"/api/v1/invitations/"+second.ID.String()+"/accept", acmeHost, caseyToken, http.StatusBadRequest, nil)
	require.Equal(t, "conflict", errEnv.Error.Code)

	members = listTeam(t, srv.URL, acmeHost, ownerToken)
	require.Len(t, members, 2)
	require.Equal(t, "usr_owner", members[0].UserID, "owners sort first")
	require.Equal(t, "usr_casey", members[1].UserID)
	ownerMembership := members[0].MembershipID
	caseyMembership := members[1].MembershipID

	// Buyers cannot manage invitations.
	errEnv = doJSONExpectError(t, http.MethodPost, srv.URL+"/api/v1/invitations", acmeHost, caseyToken, http.StatusForbidden, map[string]any{
		"email": "friend@example.com",
		"role":  "viewer",
	})
	require.Equal(t, "forbidden", errEnv.Error.Code)

	// Promote Casey to admin. Their next request carries the new role
	// without re-authentication.
	doJSONExpectSuccess(t, http.MethodPut, srv.URL+"/api/v1/team/"+caseyMembership.String()+"/role", acmeHost, ownerToken, http.StatusOK, map[string]any{
		"role": "admin",
	})

	// Admins cannot touch an owner's membership.
	errEnv = doJSONExpectError(t, http.MethodPut, srv.URL+"/api/v1/team/"+ownerMembership.String()+"/role", acmeHost, caseyToken, http.StatusForbidden, map[string]any{
		"role": "member",
	})
	require.Equal(t, "forbidden", errEnv.Error.Code)

	// Nobody edits their own membership, owners included.
	errEnv = doJSONExpectError(t, http.MethodPut, srv.URL+"/api/v1/team/"+ownerMembership.String()+"/role", acmeHost, ownerToken, http.StatusBadRequest, map[string]any{
		"role": "member",
	})
	require.Equal(t, "bad_request", errEnv.Error.Code)

	// Granting someone who already holds a membership conflicts.
	errEnv = doJSONExpectError(t, http.MethodPost, srv.URL+"/api/v1/team/grant", acmeHost, ownerToken, http.StatusBadRequest, map[string]any{
		"email": "casey@example.com",
		"role":  "viewer",
	})
	require.Equal(t, "conflict", errEnv.Error.Code)

	// Direct grants need a synced user.
	errEnv = doJSONExpectError(t, http.MethodPost, srv.URL+"/api/v1/team/grant", acmeHost, ownerToken, http.StatusNotFound, map[string]any{
		"email": "ghost@example.com",
		"role":  "viewer",
	})
	require.Equal(t, "not_found", errEnv.Error.Code)

	// Mallory declines their invitation.
	malloryInvite := createInvite(t, srv.URL, acmeHost, ownerToken, "mallory@example.com", "viewer")
	doJSONExpectSuccess(t, http.MethodPost, srv.URL+"/api/v1/invitations/"+malloryInvite.ID.String()+"/decline", acmeHost, malloryToken, http.StatusOK, nil)

	// A revoked invitation cannot be revoked twice.
	danaInvite := createInvite(t, srv.URL, acmeHost, ownerToken, "dana@example.com", "viewer")
	doJSONExpectSuccess(t, http.MethodPost, srv.URL+"/api/v1/invitations/"+danaInvite.ID.String()+"/revoke", acmeHost, ownerToken, http.StatusOK, nil)
	errEnv = doJSONExpectError(t, http.MethodPost, srv.URL+"/api/v1/invitations/"+danaInvite.ID.String()+"/revoke", acmeHost, ownerToken, http.StatusBadRequest, nil)
	require.Equal(t, "conflict", errEnv.Error.Code)

	// Mallory joins by direct grant after all; declining an invitation
	// does not burn the address.
	doJSONExpectSuccess(t, http.MethodPost, srv.URL+"/api/v1/team/grant", acmeHost, ownerToken, http.StatusCreated, map[string]any{
		"email": "mallory@example.com",
		"role":  "viewer",
	})

	// Remove Casey; their access evaporates on the next request.
	doJSONExpectSuccess(t, http.MethodDelete, srv.URL+"/api/v1/team/"+caseyMembership.String(), acmeHost, ownerToken, http.StatusOK, nil)
	errEnv = doJSONExpectError(t, http.MethodGet, srv.URL+"/api/v1/team", acmeHost, caseyToken, http.StatusForbidden, nil)
	require.Equal(t, "forbidden", errEnv.Error.Code)

	// The sole owner cannot remove themselves.
	errEnv = doJSONExpectError(t, http.MethodDelete, srv.URL+"/api/v1/team/"+ownerMembership.String(), acmeHost, ownerToken, http.StatusBadRequest, nil)
	require.Equal(t, "bad_request", errEnv.Error.Code)

	members = listTeam(t, srv.URL, acmeHost, ownerToken)
	require.Len(t, members, 2)
	require.Equal(t, "usr_owner", members[0].UserID)
	require.Equal(t, "usr_mallory", members[1].UserID)

	// Every privileged step above left a trail.
	events := listAudit(t, srv.URL, acmeHost, ownerToken, 50)
	seen := make(map[string]bool)
	for _, ev := range events {
		seen[ev.Action] = true
	}
	for _, action := range []string{"assign", "invite", "accept", "decline", "revoke", "role_change", "remove"} {
		require.True(t, seen[action], "missing %q audit event", action)
	}
}
