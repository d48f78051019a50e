package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tryequipped/equipped/internal/account"
	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/audit"
	"github.com/tryequipped/equipped/internal/config"
	"github.com/tryequipped/equipped/internal/devices"
	"github.com/tryequipped/equipped/internal/identity"
	"github.com/tryequipped/equipped/internal/obs"
	"github.com/tryequipped/equipped/internal/orders"
	"github.com/tryequipped/equipped/internal/people"
	"github.com/tryequipped/equipped/internal/team"
	"github.com/tryequipped/equipped/internal/tenant"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
// Every /api/v1 route runs behind the tenant resolver and the session
// middleware; handlers do their own role checks via identity.RequirePrincipal.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)                 // Set RemoteAddr to real IP
	r.Use(apperrors.RequestIDMiddleware)     // Add request ID to context
	r.Use(LoggingMiddleware)                 // Structured request logging
	r.Use(RecoveryMiddleware)                // Recover from panics
	r.Use(obs.Instrument)                    // Request metrics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	resolver := tenant.NewResolver(account.NewService(pool), tenant.HostConfig{
		BaseDomain:    cfg.BaseDomain,
		PreviewSuffix: cfg.PreviewSuffix,
	})
	r.Use(resolver.Middleware)                    // Classify Host, attach workspace
	r.Use(identity.Middleware(cfg.SessionSecret)) // Validate session cookies

	// Audit writer (shared across API routes)
	auditor := audit.NewWriter(pool)
	inviteTTL := cfg.InviteTTL()

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	// Identity provider webhook. HMAC-authenticated, not session-authenticated.
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.With(RateLimitMiddleware(cfg.RateLimitRPM)).
			Method(http.MethodPost, "/identity", identity.NewWebhookHandler(pool, cfg.WebhookSecret, auditor))
	})

	// API routes - Workspace organization
	r.Route("/api/v1/organization", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SameOriginMiddleware(corsOrigins(cfg)))

		r.Get("/", account.HandleGetOrganization(pool))
		r.Put("/", account.HandleUpdateOrganization(pool, auditor))
		r.Put("/billing", account.HandleUpdateBilling(pool, auditor))
		r.Delete("/", account.HandleDeleteOrganization(pool, auditor))
	})

	// API routes - Team membership
	r.Route("/api/v1/team", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SameOriginMiddleware(corsOrigins(cfg)))

		r.Get("/", team.HandleListMembers(pool))
		r.Post("/grant", team.HandleDirectGrant(pool, auditor))
		// The dashboard posts invitations from the team page too.
		r.Post("/invite", team.HandleCreateInvite(pool, auditor, inviteTTL))
		r.Put("/{membership_id}/role", team.HandleUpdateMemberRole(pool, auditor))
		r.Delete("/{membership_id}", team.HandleRemoveMember(pool, auditor))
	})

	// API routes - Invitations
	r.Route("/api/v1/invitations", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SameOriginMiddleware(corsOrigins(cfg)))

		r.Post("/", team.HandleCreateInvite(pool, auditor, inviteTTL))
		r.Get("/", team.HandleListInvites(pool))
		r.Post("/{invitation_id}/revoke", team.HandleRevokeInvite(pool, auditor))

		// Accept and decline are reachable by not-yet-members, so they
		// get a per-IP ceiling against invitation id probing.
		r.Group(func(r chi.Router) {
			r.Use(InviteActionRateLimitMiddleware())
			r.Post("/{invitation_id}/accept", team.HandleAcceptInvite(pool, auditor))
			r.Post("/{invitation_id}/decline", team.HandleDeclineInvite(pool, auditor))
		})
	})

	// API routes - Audit trail
	r.With(ContentTypeJSON).Get("/api/v1/audit", team.HandleListAudit(pool))

	// API routes - Device fleet
	r.Route("/api/v1/devices", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SameOriginMiddleware(corsOrigins(cfg)))

		r.Get("/", devices.HandleListDevices(pool))
		r.Post("/", devices.HandleCreateDevice(pool))
		r.Get("/{device_id}", devices.HandleGetDevice(pool))
		r.Put("/{device_id}", devices.HandleUpdateDevice(pool))
		r.Delete("/{device_id}", devices.HandleDeleteDevice(pool))
		r.Post("/{device_id}/assign", devices.HandleAssignDevice(pool))
		r.Post("/{device_id}/unassign", devices.HandleUnassignDevice(pool))
	})

	// API routes - People directory
	r.Route("/api/v1/people", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SameOriginMiddleware(corsOrigins(cfg)))

		r.Get("/", people.HandleListPeople(pool))
		r.Post("/", people.HandleCreatePerson(pool))
		r.Get("/{person_id}", people.HandleGetPerson(pool))
		r.Put("/{person_id}", people.HandleUpdatePerson(pool))
		r.Delete("/{person_id}", people.HandleDeletePerson(pool))
	})

	// API routes - Purchase orders
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SameOriginMiddleware(corsOrigins(cfg)))

		r.Get("/", orders.HandleListOrders(pool))
		r.Post("/", orders.HandleCreateOrder(pool))
		r.Get("/{order_id}", orders.HandleGetOrder(pool))
		r.Put("/{order_id}", orders.HandleUpdateOrder(pool))
		r.Delete("/{order_id}", orders.HandleDeleteOrder(pool))
		r.Post("/{order_id}/submit", orders.HandleSubmitOrder(pool))
		r.Post("/{order_id}/approve", orders.HandleApproveOrder(pool))
		r.Post("/{order_id}/fulfill", orders.HandleFulfillOrder(pool))
		r.Post("/{order_id}/cancel", orders.HandleCancelOrder(pool))
	})

	return r
}

// corsOrigins returns the configured origins plus the apex and its
// wildcard subdomains, so every workspace host is allowed.
func corsOrigins(cfg *config.Config) []string {
	origins := []string{
		"https://" + cfg.BaseDomain,
		"https://*." + cfg.BaseDomain,
	}
	if cfg.PreviewSuffix != "" {
		origins = append(origins, "https://*."+cfg.PreviewSuffix)
	}
	return append(origins, cfg.CORSOrigins...)
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check database connectivity
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
