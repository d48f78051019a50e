package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/tenant"
	"github.com/tryequipped/equipped/internal/validation"
)

var (
	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrSlugConflict is returned when an account slug already exists
	ErrSlugConflict = errors.New("account slug already exists")

	// ErrSlugReserved is returned when a slug collides with an
	// infrastructure subdomain
	ErrSlugReserved = errors.New("slug is reserved")

	// ErrNameRequired is returned when the account name is blank
	ErrNameRequired = errors.New("name is required")

	// ErrInvalidPlan is returned for an unknown billing plan
	ErrInvalidPlan = errors.New("invalid billing plan")

	// ErrConfirmationMismatch is returned when the deletion confirmation
	// does not match the account slug
	ErrConfirmationMismatch = errors.New("confirmation does not match account slug")
)

const accountColumns = `id, name, slug, billing_email, billing_plan, stripe_customer_id, created_at, updated_at`

// Service provides account-level operations
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a new account service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// LookupBySlug implements tenant.AccountLookup for the host resolver.
// Connection failures map to tenant.ErrLookupUnavailable so the
// resolver can answer 503 instead of treating an outage as a missing
// workspace.
func (s *Service) LookupBySlug(ctx context.Context, slug string) (*tenant.Account, error) {
	if s == nil || s.pool == nil {
		return nil, tenant.ErrLookupUnavailable
	}

	var acct tenant.Account

	query := `
		SELECT id, slug, name
		FROM accounts
		WHERE slug = $1
	`

	err := s.pool.QueryRow(ctx, query, validation.NormalizeSlug(slug)).Scan(
		&acct.ID,
		&acct.Slug,
		&acct.Name,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrAccountNotFound
		}
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) {
			return nil, fmt.Errorf("%w: %v", tenant.ErrLookupUnavailable, err)
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	return &acct, nil
}

// GetByID retrieves the full account record
func (s *Service) GetByID(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	var acct Account

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	err := s.pool.QueryRow(ctx, query, accountID).Scan(
		&acct.ID,
		&acct.Name,
		&acct.Slug,
		&acct.BillingEmail,
		&acct.BillingPlan,
		&acct.StripeCustomerID,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acct, nil
}

// Create provisions a new account. Used by the admin CLI; the public
// API has no self-serve signup.
func (s *Service) Create(ctx context.Context, name, slug, billingEmail string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	slug = validation.NormalizeSlug(slug)
	if err := validation.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if tenant.IsReservedSubdomain(slug) {
		return nil, ErrSlugReserved
	}

	billingEmail = validation.NormalizeEmail(billingEmail)
	if billingEmail != "" {
		if err := validation.ValidateEmail(billingEmail); err != nil {
			return nil, err
		}
	}

	var acct Account

	query := `
		INSERT INTO accounts (name, slug, billing_email)
		VALUES ($1, $2, $3)
		RETURNING ` + accountColumns + `
	`

	err := s.pool.QueryRow(ctx, query, name, slug, billingEmail).Scan(
		&acct.ID,
		&acct.Name,
		&acct.Slug,
		&acct.BillingEmail,
		&acct.BillingPlan,
		&acct.StripeCustomerID,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &acct, nil
}

// UpdateProfile renames the account and/or moves it to a new slug.
// Moving the slug moves the workspace subdomain, so the same DNS label
// rules apply as at provisioning time.
func (s *Service) UpdateProfile(ctx context.Context, accountID uuid.UUID, name, slug string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	slug = validation.NormalizeSlug(slug)
	if err := validation.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if tenant.IsReservedSubdomain(slug) {
		return nil, ErrSlugReserved
	}

	var acct Account

	query := `
		UPDATE accounts
		SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns + `
	`

	err := s.pool.QueryRow(ctx, query, accountID, name, slug).Scan(
		&acct.ID,
		&acct.Name,
		&acct.Slug,
		&acct.BillingEmail,
		&acct.BillingPlan,
		&acct.StripeCustomerID,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return &acct, nil
}

// UpdateBilling changes the billing contact and plan.
func (s *Service) UpdateBilling(ctx context.Context, accountID uuid.UUID, billingEmail, plan string) (*Account, error) {
	billingEmail = validation.NormalizeEmail(billingEmail)
	if billingEmail != "" {
		if err := validation.ValidateEmail(billingEmail); err != nil {
			return nil, err
		}
	}
	if !ValidPlan(plan) {
		return nil, ErrInvalidPlan
	}

	var acct Account

	query := `
		UPDATE accounts
		SET billing_email = $2, billing_plan = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns + `
	`

	err := s.pool.QueryRow(ctx, query, accountID, billingEmail, plan).Scan(
		&acct.ID,
		&acct.Name,
		&acct.Slug,
		&acct.BillingEmail,
		&acct.BillingPlan,
		&acct.StripeCustomerID,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update billing: %w", err)
	}

	return &acct, nil
}

// Delete removes the account and, through foreign keys, every row it
// owns. The caller must retype the slug; a workspace is not something
// to lose to a stray request. Returns the deleted record so the caller
// can audit it.
func (s *Service) Delete(ctx context.Context, accountID uuid.UUID, confirmSlug string) (*Account, error) {
	acct, err := s.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if validation.NormalizeSlug(confirmSlug) != acct.Slug {
		return nil, ErrConfirmationMismatch
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAccountNotFound
	}

	return acct, nil
}
