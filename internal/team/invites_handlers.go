package team

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/audit"
	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/identity"
	"github.com/tryequipped/equipped/internal/validation"
)

type InviteCreateRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleCreateInvite handles POST /api/v1/invitations
func HandleCreateInvite(pool *pgxpool.Pool, auditor *audit.Writer, inviteTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageInvitations(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can manage invitations")
			return
		}

		var req InviteCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		role, err := authz.ParseRole(req.Role)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid role")
			return
		}

		service := NewService(pool)
		inv, err := service.CreateInvite(ctx, p.Account.ID, p.User.UserID, p.Role, req.Email, role, inviteTTL)
		if err != nil {
			switch {
			case errors.Is(err, validation.ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, "Invalid email address")
			case errors.Is(err, ErrInvalidRole):
				apperrors.WriteBadRequest(w, r, "Invalid role")
			case errors.Is(err, ErrRoleNotAllowed):
				apperrors.WriteForbidden(w, r, "Your role cannot grant that role")
			case errors.Is(err, ErrAlreadyMember):
				apperrors.WriteConflict(w, r, "That person is already a member")
			default:
				log.Error().Err(err).Msg("Failed to create invitation")
				apperrors.WriteInternalError(w, r, "Failed to create invitation")
			}
			return
		}

		if err := auditor.LogInvite(ctx, p.Account.ID, p.User.UserID, inv.ID, inv.Email, inv.Role.String()); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"invitation": inv,
		})
	}
}

// HandleListInvites handles GET /api/v1/invitations
func HandleListInvites(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageInvitations(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can manage invitations")
			return
		}

		service := NewService(pool)
		invites, err := service.ListInvites(ctx, p.Account.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list invitations")
			apperrors.WriteInternalError(w, r, "Failed to list invitations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitations": invites,
		})
	}
}

// HandleAcceptInvite handles POST /api/v1/invitations/{invitation_id}/accept
//
// The accepting user is usually not yet a member, so there is no role
// gate here; the service checks that the invitation was addressed to
// the signed-in user's email.
func HandleAcceptInvite(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}

		inviteID, err := uuid.Parse(chi.URLParam(r, "invitation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		service := NewService(pool)
		membershipID, role, err := service.Accept(ctx, p.Account.ID, inviteID, p.User.UserID, p.User.Email)
		if err != nil {
			writeInviteActionError(w, r, err, "accept")
			return
		}

		if err := auditor.LogInviteAccepted(ctx, p.Account.ID, p.User.UserID, inviteID, membershipID, role.String()); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"membership_id": membershipID,
			"role":          role,
		})
	}
}

// HandleDeclineInvite handles POST /api/v1/invitations/{invitation_id}/decline
func HandleDeclineInvite(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}

		inviteID, err := uuid.Parse(chi.URLParam(r, "invitation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		service := NewService(pool)
		if _, err := service.Decline(ctx, p.Account.ID, inviteID, p.User.UserID, p.User.Email); err != nil {
			writeInviteActionError(w, r, err, "decline")
			return
		}

		if err := auditor.LogInviteDeclined(ctx, p.Account.ID, p.User.UserID, inviteID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"declined": true,
		})
	}
}

// HandleRevokeInvite handles POST /api/v1/invitations/{invitation_id}/revoke
func HandleRevokeInvite(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageInvitations(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can manage invitations")
			return
		}

		inviteID, err := uuid.Parse(chi.URLParam(r, "invitation_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid invitation ID")
			return
		}

		service := NewService(pool)
		inv, err := service.Revoke(ctx, p.Account.ID, inviteID, p.User.UserID)
		if err != nil {
			switch {
			case errors.Is(err, ErrInviteNotFound):
				apperrors.WriteNotFound(w, r, "Invitation not found")
			case errors.Is(err, ErrInviteNotActive):
				apperrors.WriteConflict(w, r, "This invitation is no longer active")
			default:
				log.Error().Err(err).Msg("Failed to revoke invitation")
				apperrors.WriteInternalError(w, r, "Failed to revoke invitation")
			}
			return
		}

		if err := auditor.LogInviteRevoked(ctx, p.Account.ID, p.User.UserID, inv.ID, inv.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"revoked": true,
		})
	}
}

// writeInviteActionError maps accept/decline failures onto the HTTP
// surface. The ladder mirrors the service's order of checks.
func writeInviteActionError(w http.ResponseWriter, r *http.Request, err error, verb string) {
	switch {
	case errors.Is(err, ErrInviteNotFound):
		apperrors.WriteNotFound(w, r, "Invitation not found")
	case errors.Is(err, ErrInviteNotActive):
		apperrors.WriteConflict(w, r, "This invitation is no longer active")
	case errors.Is(err, ErrInviteExpired):
		apperrors.WriteError(w, r, http.StatusBadRequest, "invite_expired", "This invitation has expired")
	case errors.Is(err, ErrEmailMismatch):
		apperrors.WriteForbidden(w, r, "This invitation was sent to a different email address")
	case errors.Is(err, ErrAlreadyMember):
		apperrors.WriteConflict(w, r, "You are already a member of this workspace")
	default:
		log.Error().Err(err).Str("verb", verb).Msg("Failed to action invitation")
		apperrors.WriteInternalError(w, r, "Failed to "+verb+" invitation")
	}
}
