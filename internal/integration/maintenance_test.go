package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/ids"
	"github.com/tryequipped/equipped/internal/maintenance"
)

func TestIntegration_MaintenancePurgesStaleInvitations(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	accountID := seedWorkspace(t, pool, "Acme Robotics", "acme")

	now := time.Now()
	oldActioned := now.AddDate(0, 0, -40)
	recentActioned := now.AddDate(0, 0, -5)

	// Terminal invitations past retention go, recent ones stay.
	seedInvitation(t, pool, accountID, "accepted-old@acme.test", "accepted", now.AddDate(0, 0, -33), &oldActioned)
	seedInvitation(t, pool, accountID, "declined-old@acme.test", "declined", now.AddDate(0, 0, -33), &oldActioned)
	seedInvitation(t, pool, accountID, "revoked-recent@acme.test", "revoked", now.AddDate(0, 0, 2), &recentActioned)

	// Pending invitations purge on expiry age, not creation age.
	seedInvitation(t, pool, accountID, "pending-long-expired@acme.test", "pending", now.AddDate(0, 0, -40), nil)
	seedInvitation(t, pool, accountID, "pending-just-expired@acme.test", "pending", now.AddDate(0, 0, -5), nil)
	seedInvitation(t, pool, accountID, "pending-live@acme.test", "pending", now.AddDate(0, 0, 7), nil)

	// The audit log is out of scope for every cleanup job.
	auditID := ids.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO audit_log (id, account_id, actor_user_id, action, entity_type, entity_id, created_at)
		VALUES ($1, $2, 'usr_old', 'invite', 'invitation', '', NOW() - INTERVAL '400 days')
	`, auditID, accountID)
	require.NoError(t, err)

	require.NoError(t, maintenance.RunMaintenanceJob(ctx, pool, 30))

	require.ElementsMatch(t, []string{
		"revoked-recent@acme.test",
		"pending-just-expired@acme.test",
		"pending-live@acme.test",
	}, remainingInviteEmails(t, pool, accountID))

	var auditCount int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log WHERE account_id = $1`, accountID).Scan(&auditCount)
	require.NoError(t, err)
	require.Equal(t, 1, auditCount)

	// Idempotent on rerun.
	require.NoError(t, maintenance.RunMaintenanceJob(ctx, pool, 30))
	require.Len(t, remainingInviteEmails(t, pool, accountID), 3)
}

func seedInvitation(t *testing.T, pool *pgxpool.Pool, accountID uuid.UUID, email, status string, expiresAt time.Time, actionedAt *time.Time) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO invitations (account_id, email, role, status, expires_at, actioned_at)
		VALUES ($1, $2, 'member', $3, $4, $5)
		RETURNING id
	`, accountID, email, status, expiresAt, actionedAt).Scan(&id)
	require.NoError(t, err)
	return id
}

func remainingInviteEmails(t *testing.T, pool *pgxpool.Pool, accountID uuid.UUID) []string {
	t.Helper()

	rows, err := pool.Query(context.Background(), `
		SELECT email FROM invitations WHERE account_id = $1
	`, accountID)
	require.NoError(t, err)
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		require.NoError(t, rows.Scan(&email))
		emails = append(emails, email)
	}
	require.NoError(t, rows.Err())

	return emails
}
