package identity

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/tenant"
)

// Principal is the resolved caller for one workspace request: the
// workspace named by the host, the signed-in user, and the user's role
// in that workspace.
type Principal struct {
	Account *tenant.Account
	User    *Identity
	Role    authz.Role
}

// RequirePrincipal resolves the workspace, the user, and the role for
// the current request. It writes the error response itself when any
// step fails; the bool reports whether the caller may proceed.
//
// Users with no membership row still get a principal, carrying the
// noaccess role. Handlers decide per operation what noaccess may see.
func RequirePrincipal(w http.ResponseWriter, r *http.Request, db authz.DB) (*Principal, bool) {
	ctx := r.Context()

	acct, err := tenant.RequireAccount(ctx)
	if err != nil {
		apperrors.WriteNotFound(w, r, "No workspace on this host")
		return nil, false
	}

	user := FromContext(ctx)
	if user == nil {
		apperrors.WriteUnauthorized(w, r, "Authentication required")
		return nil, false
	}

	role, err := authz.ResolveRole(ctx, db, acct.ID, user.UserID)
	if err != nil {
		log.Error().Err(err).
			Str("account_id", acct.ID.String()).
			Str("user_id", user.UserID).
			Msg("Failed to resolve workspace role")
		apperrors.WriteInternalError(w, r, "Failed to resolve workspace role")
		return nil, false
	}

	return &Principal{Account: acct, User: user, Role: role}, true
}
