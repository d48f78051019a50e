package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/team"
)

// Over HTTP the self-action and role-ceiling checks always fire before
// the owner count, so the last-owner guard is only reachable when two
// requests race. These tests drive the service directly with the state
// such a race leaves behind: an actor whose owner claim is already
// stale while the workspace is down to a single owner row.

func TestIntegration_LastOwnerGuard_BlocksDemotion(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	accountID := seedWorkspace(t, pool, "Acme Robotics", "acme")
	seedSyncedUser(t, pool, "usr_sole", "sole@acme.test", "Sole Owner")
	soleOwner := seedMembership(t, pool, accountID, "usr_sole", authz.RoleOwner)

	svc := team.NewService(pool)

	_, err := svc.UpdateRole(ctx, accountID, "usr_departed", authz.RoleOwner, soleOwner, authz.RoleAdmin)
	require.ErrorIs(t, err, team.ErrLastOwner)
	requireMembershipRole(t, pool, soleOwner, authz.RoleOwner)

	// Owner-to-owner is not a demotion and passes.
	previous, err := svc.UpdateRole(ctx, accountID, "usr_departed", authz.RoleOwner, soleOwner, authz.RoleOwner)
	require.NoError(t, err)
	require.Equal(t, authz.RoleOwner, previous.Role)

	// A second owner lifts the guard.
	seedSyncedUser(t, pool, "usr_second", "second@acme.test", "Second Owner")
	seedMembership(t, pool, accountID, "usr_second", authz.RoleOwner)

	previous, err = svc.UpdateRole(ctx, accountID, "usr_departed", authz.RoleOwner, soleOwner, authz.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, authz.RoleOwner, previous.Role)
	requireMembershipRole(t, pool, soleOwner, authz.RoleAdmin)
}

func TestIntegration_LastOwnerGuard_BlocksRemoval(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	accountID := seedWorkspace(t, pool, "Beta Industries", "beta")
	seedSyncedUser(t, pool, "usr_sole", "sole@beta.test", "Sole Owner")
	soleOwner := seedMembership(t, pool, accountID, "usr_sole", authz.RoleOwner)

	svc := team.NewService(pool)

	_, err := svc.Remove(ctx, accountID, "usr_departed", authz.RoleOwner, soleOwner)
	require.ErrorIs(t, err, team.ErrLastOwner)
	requireMembershipRole(t, pool, soleOwner, authz.RoleOwner)

	seedSyncedUser(t, pool, "usr_second", "second@beta.test", "Second Owner")
	secondOwner := seedMembership(t, pool, accountID, "usr_second", authz.RoleOwner)

	removed, err := svc.Remove(ctx, accountID, "usr_departed", authz.RoleOwner, soleOwner)
	require.NoError(t, err)
	require.Equal(t, "usr_sole", removed.UserID)

	// And now the survivor is protected in turn.
	_, err = svc.Remove(ctx, accountID, "usr_departed", authz.RoleOwner, secondOwner)
	require.ErrorIs(t, err, team.ErrLastOwner)
}

func TestIntegration_ExpiredInvitationLadder(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	accountID := seedWorkspace(t, pool, "Acme Robotics", "acme")
	seedSyncedUser(t, pool, "usr_dana", "dana@acme.test", "Dana")

	inviteID := seedInvitation(t, pool, accountID, "dana@acme.test", "pending", time.Now().AddDate(0, 0, -1), nil)

	svc := team.NewService(pool)

	// Past expiry the invitation can no longer change hands.
	_, _, err := svc.Accept(ctx, accountID, inviteID, "usr_dana", "dana@acme.test")
	require.ErrorIs(t, err, team.ErrInviteExpired)

	_, err = svc.Decline(ctx, accountID, inviteID, "usr_dana", "dana@acme.test")
	require.ErrorIs(t, err, team.ErrInviteExpired)

	// Revoke still works; that is how managers clean up lapsed invites.
	inv, err := svc.Revoke(ctx, accountID, inviteID, "usr_owner")
	require.NoError(t, err)
	require.Equal(t, "dana@acme.test", inv.Email)

	// Once terminal, the terminal answer wins over the expired one.
	_, _, err = svc.Accept(ctx, accountID, inviteID, "usr_dana", "dana@acme.test")
	require.ErrorIs(t, err, team.ErrInviteNotActive)

	// And it no longer shows on the pending list.
	items, err := svc.ListInvites(ctx, accountID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestIntegration_PendingExpiredInvitationIsAnnotated(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	accountID := seedWorkspace(t, pool, "Beta Industries", "beta")

	seedInvitation(t, pool, accountID, "lapsed@beta.test", "pending", time.Now().AddDate(0, 0, -1), nil)
	seedInvitation(t, pool, accountID, "live@beta.test", "pending", time.Now().AddDate(0, 0, 7), nil)

	items, err := team.NewService(pool).ListInvites(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byEmail := map[string]bool{}
	for _, item := range items {
		byEmail[item.Email] = item.Expired
	}
	require.True(t, byEmail["lapsed@beta.test"])
	require.False(t, byEmail["live@beta.test"])
}

func requireMembershipRole(t *testing.T, pool *pgxpool.Pool, membershipID uuid.UUID, want authz.Role) {
	t.Helper()

	var got authz.Role
	err := pool.QueryRow(context.Background(), `
		SELECT role FROM account_access WHERE id = $1
	`, membershipID).Scan(&got)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
