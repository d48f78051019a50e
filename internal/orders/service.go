package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/scoped"
)

// Service provides order operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new orders service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// CreateInput carries the fields of a new order. Status is not among
// them; every order starts as a draft.
type CreateInput struct {
	Kind       string `json:"kind"`
	TotalCents int64  `json:"total_cents"`
	Notes      string `json:"notes"`
}

// UpdateInput carries the fields editable while an order is a draft.
type UpdateInput struct {
	TotalCents int64  `json:"total_cents"`
	Notes      string `json:"notes"`
}

func scanOrder(dest *Order) []any {
	return []any{
		&dest.ID, &dest.Kind, &dest.Status, &dest.TotalCents, &dest.Notes,
		&dest.CreatedAt, &dest.UpdatedAt,
	}
}

// List retrieves the workspace's orders, newest first, optionally
// filtered by status.
func (s *Service) List(ctx context.Context, scope scoped.Scope, status string) ([]Order, error) {
	var stmt scoped.Statement
	if status != "" {
		if !ValidStatus(status) {
			return nil, ErrInvalidStatus
		}
		stmt = scope.SelectWhere(Table, "status = $1", []any{status}, "created_at DESC")
	} else {
		stmt = scope.SelectAll(Table, "created_at DESC")
	}

	rows, err := scoped.Query(ctx, s.pool, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(scanOrder(&o)...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	return orders, nil
}

// Get retrieves one order within the workspace.
func (s *Service) Get(ctx context.Context, scope scoped.Scope, id uuid.UUID) (*Order, error) {
	var o Order
	err := scoped.Get(ctx, s.pool, scope.SelectByID(Table, id), scanOrder(&o)...)
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Create opens a draft order.
func (s *Service) Create(ctx context.Context, scope scoped.Scope, in CreateInput) (*Order, error) {
	if !ValidKind(in.Kind) {
		return nil, ErrInvalidKind
	}
	if in.TotalCents < 0 {
		return nil, ErrNegativeTotal
	}

	id, err := scoped.InsertReturningID(ctx, s.pool, scope.Insert(Table, map[string]any{
		"kind":        in.Kind,
		"total_cents": in.TotalCents,
		"notes":       strings.TrimSpace(in.Notes),
	}))
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, scope, id)
}

// Update rewrites the total and notes of a draft. The current status is
// read under a row lock so an order cannot be edited and submitted at
// the same moment.
func (s *Service) Update(ctx context.Context, scope scoped.Scope, id uuid.UUID, in UpdateInput) (*Order, error) {
	if in.TotalCents < 0 {
		return nil, ErrNegativeTotal
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var o Order
	err = scoped.Get(ctx, tx, scope.SelectByIDForUpdate(Table, id), scanOrder(&o)...)
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.Status != StatusDraft {
		return nil, ErrNotEditable
	}

	err = scoped.Exec(ctx, tx, scope.Update(Table, id, map[string]any{
		"total_cents": in.TotalCents,
		"notes":       strings.TrimSpace(in.Notes),
	}))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.Get(ctx, scope, id)
}

// SetStatus moves an order through the state machine under a row lock.
func (s *Service) SetStatus(ctx context.Context, scope scoped.Scope, id uuid.UUID, to string) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var o Order
	err = scoped.Get(ctx, tx, scope.SelectByIDForUpdate(Table, id), scanOrder(&o)...)
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, ErrInvalidTransition
	}

	err = scoped.Exec(ctx, tx, scope.Update(Table, id, map[string]any{
		"status": to,
	}))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.Get(ctx, scope, id)
}

// Delete removes an order. Only drafts and cancelled orders may go;
// submitted and later states are part of the purchasing record.
func (s *Service) Delete(ctx context.Context, scope scoped.Scope, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var o Order
	err = scoped.Get(ctx, tx, scope.SelectByIDForUpdate(Table, id), scanOrder(&o)...)
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if o.Status != StatusDraft && o.Status != StatusCancelled {
		return ErrNotEditable
	}

	if err := scoped.Exec(ctx, tx, scope.Delete(Table, id)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
