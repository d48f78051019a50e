package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/validation"
)

// Service provides membership and invitation operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new team service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ListMembers retrieves every membership in the workspace, highest role
// first, ties broken by join time.
func (s *Service) ListMembers(ctx context.Context, accountID uuid.UUID) ([]Member, error) {
	query := `
		SELECT a.id, a.user_id, u.email, u.name, a.role, a.created_at
		FROM account_access a
		INNER JOIN users u ON u.id = a.user_id
		WHERE a.account_id = $1
		ORDER BY
		  CASE a.role
		    WHEN 'owner' THEN 0
		    WHEN 'admin' THEN 1
		    WHEN 'member' THEN 2
		    WHEN 'buyer' THEN 3
		    WHEN 'viewer' THEN 4
		    ELSE 5
		  END,
		  a.created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		err := rows.Scan(
			&m.MembershipID,
			&m.UserID,
			&m.Email,
			&m.Name,
			&m.Role,
			&m.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

// DirectGrant adds an existing user to the workspace without an
// invitation. The target is addressed by email and must already have a
// user record from the identity provider.
func (s *Service) DirectGrant(ctx context.Context, accountID uuid.UUID, actorRole authz.Role, email string, role authz.Role) (*Member, error) {
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

	var m Member
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name
		FROM users
		WHERE email = $1
	`, email).Scan(&m.UserID, &m.Email, &m.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO account_access (account_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, accountID, m.UserID, role).Scan(&m.MembershipID, &m.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	m.Role = role
	return &m, nil
}

// UpdateRole changes a membership's role.
//
// Self role changes are rejected outright. The actor must be allowed to
// grant both the member's current role and the new one, which is what
// keeps an admin from touching an owner. Demoting the last owner is
// blocked under a row lock so two concurrent demotions cannot both
// slip through.
func (s *Service) UpdateRole(ctx context.Context, accountID uuid.UUID, actorUserID string, actorRole authz.Role, membershipID uuid.UUID, newRole authz.Role) (previous *Member, err error) {
	if !newRole.Valid() {
		return nil, ErrInvalidRole
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var m Member
	if err := tx.QueryRow(ctx, `
		SELECT a.id, a.user_id, u.email, u.name, a.role, a.created_at
		FROM account_access a
		INNER JOIN users u ON u.id = a.user_id
		WHERE a.id = $1 AND a.account_id = $2
		FOR UPDATE OF a
	`, membershipID, accountID).Scan(
		&m.MembershipID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.JoinedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	if m.UserID == actorUserID {
		return nil, ErrSelfAction
	}
	if !authz.CanAssignRole(actorRole, m.Role) || !authz.CanAssignRole(actorRole, newRole) {
		return nil, ErrRoleNotAllowed
	}

	if m.Role == authz.RoleOwner && newRole != authz.RoleOwner {
		owners, err := countOwnersForUpdate(ctx, tx, accountID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE account_access
		SET role = $3, updated_at = NOW()
		WHERE id = $1 AND account_id = $2
	`, membershipID, accountID, newRole); err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &m, nil
}

// Remove deletes a membership. Same guards as UpdateRole: no self
// removal, the actor must outrank the target, and the last owner stays.
func (s *Service) Remove(ctx context.Context, accountID uuid.UUID, actorUserID string, actorRole authz.Role, membershipID uuid.UUID) (removed *Member, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var m Member
	if err := tx.QueryRow(ctx, `
		SELECT a.id, a.user_id, u.email, u.name, a.role, a.created_at
		FROM account_access a
		INNER JOIN users u ON u.id = a.user_id
		WHERE a.id = $1 AND a.account_id = $2
		FOR UPDATE OF a
	`, membershipID, accountID).Scan(
		&m.MembershipID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.JoinedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	if m.UserID == actorUserID {
		return nil, ErrSelfAction
	}
	if !authz.CanAssignRole(actorRole, m.Role) {
		return nil, ErrRoleNotAllowed
	}

	if m.Role == authz.RoleOwner {
		owners, err := countOwnersForUpdate(ctx, tx, accountID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM account_access
		WHERE id = $1 AND account_id = $2
	`, membershipID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrMemberNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &m, nil
}

// countOwnersForUpdate locks every owner row in the workspace and
// returns how many there are. Both last-owner guards go through here so
// concurrent demote/remove calls serialize on the same locks.
func countOwnersForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error) {
	rows, err := tx.Query(ctx, `
		SELECT id
		FROM account_access
		WHERE account_id = $1 AND role = $2
		FOR UPDATE
	`, accountID, authz.RoleOwner)
	if err != nil {
		return 0, fmt.Errorf("failed to lock owners: %w", err)
	}

	var owners int
	for rows.Next() {
		owners++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("failed to lock owners: %w", err)
	}
	rows.Close()

	return owners, nil
}
