package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/apperrors"
	"github.com/tryequipped/equipped/internal/audit"
	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/obs"
)

// Webhook signature scheme: hex HMAC-SHA256 over "<timestamp>.<body>"
// with a shared secret, plus a freshness window against replays.
const (
	SignatureHeader = "X-Equipped-Signature"
	TimestampHeader = "X-Equipped-Timestamp"

	signatureTolerance = 5 * time.Minute
	maxWebhookBody     = 1 << 20
)

// WebhookHandler mirrors provider events (users, accounts, membership
// assignments) into the local datastore. Constructed with its
// collaborators at startup; there is no package-level default.
type WebhookHandler struct {
	pool    *pgxpool.Pool
	secret  string
	auditor *audit.Writer
}

func NewWebhookHandler(pool *pgxpool.Pool, secret string, auditor *audit.Writer) *WebhookHandler {
	return &WebhookHandler{pool: pool, secret: secret, auditor: auditor}
}

type webhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type accountPayload struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

type userPayload struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type membershipPayload struct {
	AccountID uuid.UUID `json:"account_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Failed to read request body")
		return
	}
	if len(body) > maxWebhookBody {
		apperrors.WritePayloadTooLarge(w, r, "Webhook payload too large")
		return
	}

	if err := h.verifySignature(r, body); err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Webhook signature rejected")
		apperrors.WriteUnauthorized(w, r, "Invalid webhook signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Type == "" {
		apperrors.WriteBadRequest(w, r, "Malformed webhook payload")
		return
	}

	outcome, err := h.apply(r.Context(), event)
	if err != nil {
		obs.WebhookEvent(event.Type, "error")
		log.Error().Err(err).Str("event", event.Type).Msg("Failed to apply webhook event")
		apperrors.WriteInternalError(w, r, "Failed to apply event")
		return
	}

	obs.WebhookEvent(event.Type, outcome)
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{"status": outcome})
}

func (h *WebhookHandler) verifySignature(r *http.Request, body []byte) error {
	tsHeader := r.Header.Get(TimestampHeader)
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("missing or malformed timestamp")
	}

	drift := time.Since(time.Unix(ts, 0))
	if drift > signatureTolerance || drift < -signatureTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	sig, err := hex.DecodeString(r.Header.Get(SignatureHeader))
	if err != nil || len(sig) == 0 {
		return fmt.Errorf("missing or malformed signature")
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write([]byte(tsHeader))
	mac.Write([]byte("."))
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return fmt.Errorf("signature mismatch")
	}

	return nil
}

// Sign computes the signature the provider attaches. Shared with tests
// and local replay tooling.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// apply routes one event. Upserts are idempotent: redelivery of the
// same event converges on the same rows. Unknown event types are
// acknowledged so the provider does not retry them forever.
func (h *WebhookHandler) apply(ctx context.Context, event webhookEvent) (string, error) {
	switch event.Type {
	case "account.created", "account.updated":
		var p accountPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return "", fmt.Errorf("bad account payload: %w", err)
		}
		return "applied", h.upsertAccount(ctx, p)

	case "user.created", "user.updated":
		var p userPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return "", fmt.Errorf("bad user payload: %w", err)
		}
		return "applied", h.upsertUser(ctx, p)

	case "membership.assigned":
		var p membershipPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return "", fmt.Errorf("bad membership payload: %w", err)
		}
		return "applied", h.assignMembership(ctx, p)

	case "membership.unassigned":
		var p membershipPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return "", fmt.Errorf("bad membership payload: %w", err)
		}
		return "applied", h.unassignMembership(ctx, p)

	default:
		log.Info().Str("event", event.Type).Msg("Ignoring unknown webhook event")
		return "ignored", nil
	}
}

func (h *WebhookHandler) upsertAccount(ctx context.Context, p accountPayload) error {
	if p.ID == uuid.Nil || p.Slug == "" {
		return fmt.Errorf("account payload missing id or slug")
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug, updated_at = NOW()
	`, p.ID, p.Name, p.Slug)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (h *WebhookHandler) upsertUser(ctx context.Context, p userPayload) error {
	if p.ID == "" || p.Email == "" {
		return fmt.Errorf("user payload missing id or email")
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, avatar_url)
		VALUES ($1, LOWER($2), $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		  email = EXCLUDED.email,
		  name = EXCLUDED.name,
		  avatar_url = EXCLUDED.avatar_url,
		  updated_at = NOW()
	`, p.ID, p.Email, p.Name, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// assignMembership upserts on the (account, user) pair so redelivery
// and role changes both land on the one existing row.
func (h *WebhookHandler) assignMembership(ctx context.Context, p membershipPayload) error {
	role, err := authz.ParseRole(p.Role)
	if err != nil {
		return err
	}

	var membershipID uuid.UUID
	err = h.pool.QueryRow(ctx, `
		INSERT INTO account_access (account_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
		RETURNING id
	`, p.AccountID, p.UserID, role.String()).Scan(&membershipID)
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}

	_ = h.auditor.LogAssign(ctx, p.AccountID, nil, membershipID, p.UserID, role.String())
	return nil
}

func (h *WebhookHandler) unassignMembership(ctx context.Context, p membershipPayload) error {
	var membershipID uuid.UUID
	var role string
	err := h.pool.QueryRow(ctx, `
		DELETE FROM account_access WHERE account_id = $1 AND user_id = $2
		RETURNING id, role
	`, p.AccountID, p.UserID).Scan(&membershipID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already gone; redelivery converges here.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	_ = h.auditor.LogUnassign(ctx, p.AccountID, nil, membershipID, p.UserID, role)
	return nil
}
