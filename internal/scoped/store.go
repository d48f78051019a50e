package scoped

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the execution surface shared by *pgxpool.Pool and pgx.Tx,
// so services run the same statements inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Get runs a single-row statement, scanning into dest. A miss, within
// or outside the workspace, is ErrNotFound.
func Get(ctx context.Context, db DBTX, stmt Statement, dest ...any) error {
	if err := db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get row: %w", err)
	}
	return nil
}

// Query runs a multi-row statement. Callers own the returned rows.
func Query(ctx context.Context, db DBTX, stmt Statement) (pgx.Rows, error) {
	rows, err := db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	return rows, nil
}

// Exec runs a mutation. Zero rows affected means the target does not
// exist in this workspace: ErrNotFound, whether the id is absent or
// belongs to someone else.
func Exec(ctx context.Context, db DBTX, stmt Statement) error {
	tag, err := db.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertReturningID runs a statement built by Scope.Insert and scans
// the generated row id.
func InsertReturningID(ctx context.Context, db DBTX, stmt Statement) (uuid.UUID, error) {
	var id uuid.UUID
	if err := db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert row: %w", err)
	}
	return id, nil
}
