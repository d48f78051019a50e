package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/tenant"
	"github.com/tryequipped/equipped/internal/validation"
)

// Validation runs before any query, so these paths are exercised with
// no pool behind the service.

func TestLookupBySlug_UnconfiguredPoolIsUnavailableNotMissing(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.LookupBySlug(context.Background(), "acme")
	require.ErrorIs(t, err, tenant.ErrLookupUnavailable)

	var nilSvc *Service
	_, err = nilSvc.LookupBySlug(context.Background(), "acme")
	require.ErrorIs(t, err, tenant.ErrLookupUnavailable)
}

func TestCreate_RequiresName(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Create(context.Background(), "   ", "acme", "")
	require.ErrorIs(t, err, ErrNameRequired)
}

func TestCreate_RejectsMalformedSlugs(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.Create(context.Background(), "Acme", "ab", "")
	require.ErrorIs(t, err, validation.ErrSlugTooShort)

	_, err = svc.Create(context.Background(), "Acme", "acme_robotics", "")
	require.ErrorIs(t, err, validation.ErrInvalidSlug)

	_, err = svc.Create(context.Background(), "Acme", "-acme", "")
	require.ErrorIs(t, err, validation.ErrInvalidSlug)
}

func TestCreate_RejectsReservedSlugs(t *testing.T) {
	svc := NewService(nil)

	// Granting a customer the api subdomain would shadow infrastructure.
	_, err := svc.Create(context.Background(), "Acme", "api", "")
	require.ErrorIs(t, err, ErrSlugReserved)

	_, err = svc.Create(context.Background(), "Acme", "www", "")
	require.ErrorIs(t, err, ErrSlugReserved)
}

func TestCreate_RejectsBadBillingEmail(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Create(context.Background(), "Acme", "acme", "not-an-address")
	require.ErrorIs(t, err, validation.ErrInvalidEmail)
}

func TestUpdateProfile_ValidatesLikeCreate(t *testing.T) {
	svc := NewService(nil)
	id := uuid.New()

	_, err := svc.UpdateProfile(context.Background(), id, "", "acme")
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.UpdateProfile(context.Background(), id, "Acme", "Bad Slug")
	require.ErrorIs(t, err, validation.ErrInvalidSlug)

	_, err = svc.UpdateProfile(context.Background(), id, "Acme", "billing")
	require.ErrorIs(t, err, ErrSlugReserved)
}

func TestUpdateBilling_RejectsUnknownPlan(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.UpdateBilling(context.Background(), uuid.New(), "billing@acme.test", "platinum")
	require.ErrorIs(t, err, ErrInvalidPlan)
}

func TestValidPlan(t *testing.T) {
	require.True(t, ValidPlan(PlanStarter))
	require.True(t, ValidPlan(PlanGrowth))
	require.True(t, ValidPlan(PlanEnterprise))
	require.False(t, ValidPlan("platinum"))
	require.False(t, ValidPlan(""))
}
