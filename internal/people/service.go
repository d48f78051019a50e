package people

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/scoped"
	"github.com/tryequipped/equipped/internal/validation"
)

// Service provides directory operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new people service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// PersonInput carries the writable fields of a person.
type PersonInput struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

func (in *PersonInput) normalize() error {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return ErrNameRequired
	}
	in.Email = validation.NormalizeEmail(in.Email)
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return err
		}
	}
	in.Department = strings.TrimSpace(in.Department)
	return nil
}

// List retrieves the workspace directory, alphabetical.
func (s *Service) List(ctx context.Context, scope scoped.Scope) ([]Person, error) {
	rows, err := scoped.Query(ctx, s.pool, scope.SelectAll(Table, "full_name ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Department, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people rows: %w", err)
	}

	return people, nil
}

// Get retrieves one person within the workspace.
func (s *Service) Get(ctx context.Context, scope scoped.Scope, id uuid.UUID) (*Person, error) {
	var p Person
	err := scoped.Get(ctx, s.pool, scope.SelectByID(Table, id),
		&p.ID, &p.FullName, &p.Email, &p.Department, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create adds a directory entry.
func (s *Service) Create(ctx context.Context, scope scoped.Scope, in PersonInput) (*Person, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	id, err := scoped.InsertReturningID(ctx, s.pool, scope.Insert(Table, map[string]any{
		"full_name":  in.FullName,
		"email":      in.Email,
		"department": in.Department,
	}))
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, scope, id)
}

// Update rewrites a directory entry.
func (s *Service) Update(ctx context.Context, scope scoped.Scope, id uuid.UUID, in PersonInput) (*Person, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	err := scoped.Exec(ctx, s.pool, scope.Update(Table, id, map[string]any{
		"full_name":  in.FullName,
		"email":      in.Email,
		"department": in.Department,
	}))
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}

	return s.Get(ctx, scope, id)
}

// Delete removes a directory entry. Devices assigned to the person are
// unassigned by the schema, not orphaned.
func (s *Service) Delete(ctx context.Context, scope scoped.Scope, id uuid.UUID) error {
	err := scoped.Exec(ctx, s.pool, scope.Delete(Table, id))
	if err != nil {
		if errors.Is(err, scoped.ErrNotFound) {
			return ErrPersonNotFound
		}
		return err
	}
	return nil
}
