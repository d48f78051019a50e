package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB is the minimal query surface the role resolver needs. Satisfied
// by *pgxpool.Pool and pgx.Tx.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResolveRole loads the caller's role within an account. A missing
// membership row resolves to RoleNoAccess, never an error: absence of
// access is an answer, not a failure.
func ResolveRole(ctx context.Context, db DB, accountID uuid.UUID, userID string) (Role, error) {
	var role Role

	err := db.QueryRow(ctx,
		`SELECT role FROM account_access WHERE account_id = $1 AND user_id = $2`,
		accountID, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleNoAccess, nil
		}
		return RoleNoAccess, fmt.Errorf("failed to resolve role: %w", err)
	}

	if !role.Valid() {
		return RoleNoAccess, fmt.Errorf("unknown role %q in account_access", role)
	}

	return role, nil
}
