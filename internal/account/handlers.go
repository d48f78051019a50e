package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/audit"
	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/identity"
	"github.com/tryequipped/equipped/internal/validation"
)

type ProfileUpdateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type BillingUpdateRequest struct {
	BillingEmail string `json:"billing_email"`
	BillingPlan  string `json:"billing_plan"`
}

type DeleteRequest struct {
	ConfirmSlug string `json:"confirm_slug"`
}

// HandleGetOrganization handles GET /api/v1/organization
func HandleGetOrganization(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanViewWorkspace(p.Role) {
			apperrors.WriteForbidden(w, r, "You do not have access to this workspace")
			return
		}

		service := NewService(pool)
		acct, err := service.GetByID(ctx, p.Account.ID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get organization")
			apperrors.WriteInternalError(w, r, "Failed to get organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"organization": acct,
			"your_role":    p.Role,
		})
	}
}

// HandleUpdateOrganization handles PUT /api/v1/organization
func HandleUpdateOrganization(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanModifyOrganizationProfile(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can modify the organization")
			return
		}

		var req ProfileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)

		// Load the current record first so the audit entry can carry a
		// before image.
		before, err := service.GetByID(ctx, p.Account.ID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to load organization")
			apperrors.WriteInternalError(w, r, "Failed to update organization")
			return
		}

		acct, err := service.UpdateProfile(ctx, p.Account.ID, req.Name, req.Slug)
		if err != nil {
			switch {
			case errors.Is(err, ErrNameRequired),
				errors.Is(err, validation.ErrInvalidSlug),
				errors.Is(err, validation.ErrSlugTooShort),
				errors.Is(err, validation.ErrSlugTooLong):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, ErrSlugReserved):
				apperrors.WriteBadRequest(w, r, "That slug is reserved")
			case errors.Is(err, ErrSlugConflict):
				apperrors.WriteConflict(w, r, "That slug is already in use")
			case errors.Is(err, ErrAccountNotFound):
				apperrors.WriteNotFound(w, r, "Organization not found")
			default:
				log.Error().Err(err).Msg("Failed to update organization")
				apperrors.WriteInternalError(w, r, "Failed to update organization")
			}
			return
		}

		if err := auditor.LogAccountUpdate(ctx, acct.ID, p.User.UserID,
			map[string]any{"name": before.Name, "slug": before.Slug},
			map[string]any{"name": acct.Name, "slug": acct.Slug},
		); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"organization": acct,
		})
	}
}

// HandleUpdateBilling handles PUT /api/v1/organization/billing
func HandleUpdateBilling(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanModifyOrganizationProfile(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can modify billing")
			return
		}

		var req BillingUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)

		before, err := service.GetByID(ctx, p.Account.ID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to load organization")
			apperrors.WriteInternalError(w, r, "Failed to update billing")
			return
		}

		acct, err := service.UpdateBilling(ctx, p.Account.ID, req.BillingEmail, req.BillingPlan)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidPlan), errors.Is(err, validation.ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, err.Error())
			case errors.Is(err, ErrAccountNotFound):
				apperrors.WriteNotFound(w, r, "Organization not found")
			default:
				log.Error().Err(err).Msg("Failed to update billing")
				apperrors.WriteInternalError(w, r, "Failed to update billing")
			}
			return
		}

		if err := auditor.LogBillingUpdate(ctx, acct.ID, p.User.UserID,
			map[string]any{"billing_email": before.BillingEmail, "billing_plan": before.BillingPlan},
			map[string]any{"billing_email": acct.BillingEmail, "billing_plan": acct.BillingPlan},
		); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"organization": acct,
		})
	}
}

// HandleDeleteOrganization handles DELETE /api/v1/organization
func HandleDeleteOrganization(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanDeleteOrganization(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners can delete the organization")
			return
		}

		var req DeleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)
		acct, err := service.Delete(ctx, p.Account.ID, req.ConfirmSlug)
		if err != nil {
			switch {
			case errors.Is(err, ErrConfirmationMismatch):
				apperrors.WriteBadRequest(w, r, "Confirmation does not match the workspace slug")
			case errors.Is(err, ErrAccountNotFound):
				apperrors.WriteNotFound(w, r, "Organization not found")
			default:
				log.Error().Err(err).Msg("Failed to delete organization")
				apperrors.WriteInternalError(w, r, "Failed to delete organization")
			}
			return
		}

		// The audit table carries no account foreign key, so this entry
		// survives the cascade.
		if err := auditor.LogAccountDelete(ctx, acct.ID, p.User.UserID, acct.Slug); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}
