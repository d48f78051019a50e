package account

import (
	"time"

	"github.com/google/uuid"
)

// Billing plans an account can be on.
const (
	PlanStarter    = "starter"
	PlanGrowth     = "growth"
	PlanEnterprise = "enterprise"
)

// ValidPlan reports whether plan is one of the known billing plans.
func ValidPlan(plan string) bool {
	switch plan {
	case PlanStarter, PlanGrowth, PlanEnterprise:
		return true
	}
	return false
}

// Account is the organization record backing one workspace. The slug
// doubles as the workspace subdomain.
type Account struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	BillingEmail     string    `json:"billing_email"`
	BillingPlan      string    `json:"billing_plan"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
