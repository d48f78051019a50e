package team

import (
	"encoding/json"
	"errors"
	"net/http"

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

type DirectGrantRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type RoleUpdateRequest struct {
	Role string `json:"role"`
}

// HandleListMembers handles GET /api/v1/team
func HandleListMembers(pool *pgxpool.Pool) http.HandlerFunc {
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
		members, err := service.ListMembers(ctx, p.Account.ID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"members": members,
		})
	}
}

// HandleDirectGrant handles POST /api/v1/team/grant
//
// Adds a user who already exists in the identity directory. For people
// without a user record yet, the invitation flow is the only path in.
func HandleDirectGrant(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageTeam(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can manage the team")
			return
		}

		var req DirectGrantRequest
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
		member, err := service.DirectGrant(ctx, p.Account.ID, p.Role, req.Email, role)
		if err != nil {
			switch {
			case errors.Is(err, validation.ErrInvalidEmail):
				apperrors.WriteBadRequest(w, r, "Invalid email address")
			case errors.Is(err, ErrInvalidRole):
				apperrors.WriteBadRequest(w, r, "Invalid role")
			case errors.Is(err, ErrRoleNotAllowed):
				apperrors.WriteForbidden(w, r, "Your role cannot grant that role")
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "No user with that email; send an invitation instead")
			case errors.Is(err, ErrAlreadyMember):
				apperrors.WriteConflict(w, r, "That person is already a member")
			default:
				log.Error().Err(err).Msg("Failed to grant membership")
				apperrors.WriteInternalError(w, r, "Failed to grant membership")
			}
			return
		}

		if err := auditor.LogAssign(ctx, p.Account.ID, &p.User.UserID, member.MembershipID, member.UserID, member.Role.String()); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"member": member,
		})
	}
}

// HandleUpdateMemberRole handles PUT /api/v1/team/{membership_id}/role
func HandleUpdateMemberRole(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageTeam(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can manage the team")
			return
		}

		membershipID, err := uuid.Parse(chi.URLParam(r, "membership_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid membership ID")
			return
		}

		var req RoleUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		newRole, err := authz.ParseRole(req.Role)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid role")
			return
		}

		service := NewService(pool)
		previous, err := service.UpdateRole(ctx, p.Account.ID, p.User.UserID, p.Role, membershipID, newRole)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidRole):
				apperrors.WriteBadRequest(w, r, "Invalid role")
			case errors.Is(err, ErrSelfAction):
				apperrors.WriteBadRequest(w, r, "You cannot change your own role")
			case errors.Is(err, ErrRoleNotAllowed):
				apperrors.WriteForbidden(w, r, "Your role cannot modify that member")
			case errors.Is(err, ErrMemberNotFound):
				apperrors.WriteNotFound(w, r, "Member not found")
			case errors.Is(err, ErrLastOwner):
				apperrors.WriteConflict(w, r, "Cannot demote the last owner")
			default:
				log.Error().Err(err).Msg("Failed to update member role")
				apperrors.WriteInternalError(w, r, "Failed to update member role")
			}
			return
		}

		if err := auditor.LogRoleChange(ctx, p.Account.ID, p.User.UserID, membershipID, previous.UserID, previous.Role.String(), newRole.String()); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"updated":       true,
			"previous_role": previous.Role,
			"new_role":      newRole,
		})
	}
}

// HandleRemoveMember handles DELETE /api/v1/team/{membership_id}
func HandleRemoveMember(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageTeam(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can manage the team")
			return
		}

		membershipID, err := uuid.Parse(chi.URLParam(r, "membership_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid membership ID")
			return
		}

		service := NewService(pool)
		removed, err := service.Remove(ctx, p.Account.ID, p.User.UserID, p.Role, membershipID)
		if err != nil {
			switch {
			case errors.Is(err, ErrSelfAction):
				apperrors.WriteBadRequest(w, r, "You cannot remove yourself from the workspace")
			case errors.Is(err, ErrRoleNotAllowed):
				apperrors.WriteForbidden(w, r, "Your role cannot remove that member")
			case errors.Is(err, ErrMemberNotFound):
				apperrors.WriteNotFound(w, r, "Member not found")
			case errors.Is(err, ErrLastOwner):
				apperrors.WriteConflict(w, r, "Cannot remove the last owner")
			default:
				log.Error().Err(err).Msg("Failed to remove member")
				apperrors.WriteInternalError(w, r, "Failed to remove member")
			}
			return
		}

		if err := auditor.LogRemove(ctx, p.Account.ID, p.User.UserID, membershipID, removed.UserID, removed.Role.String()); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"removed": true,
		})
	}
}
