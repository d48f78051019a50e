package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/validation"
)

// DefaultInviteTTL applies when the configured TTL is missing or
// nonsensical.
const DefaultInviteTTL = 7 * 24 * time.Hour

const invitationColumns = `id, account_id, email, role, status, invited_by, created_at, expires_at`

// CreateInvite opens an invitation for email at the given role. Any
// pending invitation for the same address is revoked first, so at most
// one invitation per address is ever actionable.
func (s *Service) CreateInvite(ctx context.Context, accountID uuid.UUID, actorUserID string, actorRole authz.Role, email string, role authz.Role, ttl time.Duration) (*Invitation, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if !authz.CanAssignRole(actorRole, role) {
		return nil, ErrRoleNotAllowed
	}
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}

	// Inviting someone who already holds a membership is a conflict, not
	// a new invitation.
	var existingMembership uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT a.id
		FROM account_access a
		INNER JOIN users u ON u.id = a.user_id
		WHERE a.account_id = $1 AND u.email = $2
	`, accountID, email).Scan(&existingMembership)
	if err == nil {
		return nil, ErrAlreadyMember
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Revoke any pending invitation for this email; the new one
	// supersedes it.
	_, err = tx.Exec(ctx, `
		UPDATE invitations
		SET status = $3, actioned_at = NOW(), actioned_by = $4
		WHERE account_id = $1
		  AND email = $2
		  AND status = $5
	`, accountID, email, StatusRevoked, actorUserID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to supersede existing invitations: %w", err)
	}

	expiresAt := time.Now().UTC().Add(ttl)

	var inv Invitation
	err = tx.QueryRow(ctx, `
		INSERT INTO invitations (account_id, email, role, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+invitationColumns+`
	`, accountID, email, role, actorUserID, expiresAt).Scan(
		&inv.ID,
		&inv.AccountID,
		&inv.Email,
		&inv.Role,
		&inv.Status,
		&inv.InvitedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &inv, nil
}

// ListInvites retrieves the workspace's pending invitations, newest
// first. Expiry is annotated, not filtered: an expired pending
// invitation stays visible so a manager can see it lapsed and revoke
// or re-send it.
func (s *Service) ListInvites(ctx context.Context, accountID uuid.UUID) ([]InvitationListItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
		  i.id,
		  i.email,
		  i.role,
		  i.created_at,
		  i.expires_at,
		  i.expires_at <= NOW() AS expired,
		  u.email AS invited_by_email
		FROM invitations i
		LEFT JOIN users u ON u.id = i.invited_by
		WHERE i.account_id = $1
		  AND i.status = $2
		ORDER BY i.created_at DESC
	`, accountID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invites []InvitationListItem
	for rows.Next() {
		var inv InvitationListItem
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.CreatedAt, &inv.ExpiresAt, &inv.Expired, &inv.InvitedByEmail); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invites, nil
}

// Accept turns a pending invitation into a membership for the signed-in
// user. The user's email must match the invitation's; acceptance is
// checked in order: existence, terminal status, expiry, email match,
// existing membership.
func (s *Service) Accept(ctx context.Context, accountID, inviteID uuid.UUID, userID, userEmail string) (membershipID uuid.UUID, role authz.Role, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	inv, err := loadInviteForUpdate(ctx, tx, accountID, inviteID)
	if err != nil {
		return uuid.Nil, "", err
	}

	if inv.Status != StatusPending {
		return uuid.Nil, "", ErrInviteNotActive
	}
	if !inv.ExpiresAt.After(time.Now().UTC()) {
		return uuid.Nil, "", ErrInviteExpired
	}
	if !strings.EqualFold(userEmail, inv.Email) {
		return uuid.Nil, "", ErrEmailMismatch
	}

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM account_access
		WHERE account_id = $1 AND user_id = $2
	`, accountID, userID).Scan(&existing)
	if err == nil {
		return uuid.Nil, "", ErrAlreadyMember
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, "", fmt.Errorf("failed to check existing membership: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invitations
		SET status = $2, actioned_at = NOW(), actioned_by = $3
		WHERE id = $1 AND status = $4
	`, inv.ID, StatusAccepted, userID, StatusPending)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, "", ErrInviteNotActive
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO account_access (account_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, accountID, userID, inv.Role).Scan(&membershipID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to create membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return membershipID, inv.Role, nil
}

// Decline marks a pending invitation declined. Only the invited address
// may decline, under the same ladder of checks as Accept.
func (s *Service) Decline(ctx context.Context, accountID, inviteID uuid.UUID, userID, userEmail string) (*Invitation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	inv, err := loadInviteForUpdate(ctx, tx, accountID, inviteID)
	if err != nil {
		return nil, err
	}

	if inv.Status != StatusPending {
		return nil, ErrInviteNotActive
	}
	if !inv.ExpiresAt.After(time.Now().UTC()) {
		return nil, ErrInviteExpired
	}
	if !strings.EqualFold(userEmail, inv.Email) {
		return nil, ErrEmailMismatch
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invitations
		SET status = $2, actioned_at = NOW(), actioned_by = $3
		WHERE id = $1 AND status = $4
	`, inv.ID, StatusDeclined, userID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invitation declined: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInviteNotActive
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inv, nil
}

// Revoke withdraws a pending invitation. Expired pending invitations
// can still be revoked; that is how managers clean them up.
func (s *Service) Revoke(ctx context.Context, accountID, inviteID uuid.UUID, actorUserID string) (*Invitation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	inv, err := loadInviteForUpdate(ctx, tx, accountID, inviteID)
	if err != nil {
		return nil, err
	}

	if inv.Status != StatusPending {
		return nil, ErrInviteNotActive
	}

	tag, err := tx.Exec(ctx, `
		UPDATE invitations
		SET status = $2, actioned_at = NOW(), actioned_by = $3
		WHERE id = $1 AND status = $4
	`, inv.ID, StatusRevoked, actorUserID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrInviteNotActive
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inv, nil
}

// loadInviteForUpdate locks one invitation row within its workspace.
// Ids from other workspaces read as missing.
func loadInviteForUpdate(ctx context.Context, tx pgx.Tx, accountID, inviteID uuid.UUID) (*Invitation, error) {
	var inv Invitation
	err := tx.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations
		WHERE id = $1 AND account_id = $2
		FOR UPDATE
	`, inviteID, accountID).Scan(
		&inv.ID,
		&inv.AccountID,
		&inv.Email,
		&inv.Role,
		&inv.Status,
		&inv.InvitedBy,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	return &inv, nil
}
