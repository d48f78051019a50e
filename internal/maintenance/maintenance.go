// Package maintenance holds the scheduled cleanup jobs. Invitations
// that reached a terminal state, and pending ones long past expiry,
// are rows nobody will act on again; the audit log is deliberately
// untouched by any job here.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PurgeTerminalInvitations deletes accepted, declined, and revoked
// invitations whose action happened more than retentionDays ago.
// Idempotent - safe to run repeatedly.
//
// Returns the number of rows deleted.
func PurgeTerminalInvitations(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	query := `
		DELETE FROM invitations
		WHERE status IN ('accepted', 'declined', 'revoked')
		  AND actioned_at < NOW() - INTERVAL '1 day' * $1
	`

	tag, err := pool.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to purge terminal invitations: %w", err)
	}

	return tag.RowsAffected(), nil
}

// PurgeExpiredInvitations deletes pending invitations whose expiry
// passed more than retentionDays ago. Recently expired ones stay
// visible so managers can see them lapse and re-send.
//
// Returns the number of rows deleted.
func PurgeExpiredInvitations(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	query := `
		DELETE FROM invitations
		WHERE status = 'pending'
		  AND expires_at < NOW() - INTERVAL '1 day' * $1
	`

	tag, err := pool.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired invitations: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RunMaintenanceJob executes every cleanup and logs the results. This
// is the entry point called by the cron scheduler.
func RunMaintenanceJob(ctx context.Context, pool *pgxpool.Pool, retentionDays int) error {
	log.Info().
		Int("retention_days", retentionDays).
		Msg("Starting maintenance job")

	startTime := time.Now()

	terminalPurged, err := PurgeTerminalInvitations(ctx, pool, retentionDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge terminal invitations")
		return fmt.Errorf("terminal invitation cleanup failed: %w", err)
	}

	expiredPurged, err := PurgeExpiredInvitations(ctx, pool, retentionDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired invitations")
		return fmt.Errorf("expired invitation cleanup failed: %w", err)
	}

	duration := time.Since(startTime)

	log.Info().
		Int64("terminal_invitations_purged", terminalPurged).
		Int64("expired_invitations_purged", expiredPurged).
		Dur("duration", duration).
		Msg("Maintenance job completed")

	return nil
}
