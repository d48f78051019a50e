package team

import (
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/audit"
	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/identity"
)

// HandleListAudit handles GET /api/v1/audit
//
// The audit trail names people and role changes, so it is restricted to
// the same roles that can make those changes.
func HandleListAudit(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p, ok := identity.RequirePrincipal(w, r, pool)
		if !ok {
			return
		}
		if !authz.CanManageTeam(p.Role) {
			apperrors.WriteForbidden(w, r, "Only owners and admins can read the audit trail")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				limit = v
			}
		}

		reader := audit.NewReader(pool)
		events, err := reader.ListByAccount(ctx, p.Account.ID, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit log")
			apperrors.WriteInternalError(w, r, "Failed to list audit log")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"events": events,
		})
	}
}
