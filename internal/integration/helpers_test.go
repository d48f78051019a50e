package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/authz"
	"github.com/tryequipped/equipped/internal/config"
	"github.com/tryequipped/equipped/internal/identity"
	"github.com/tryequipped/equipped/internal/team"
)

const (
	testBaseDomain    = "tryequipped.test"
	testSessionSecret = "integration-session-secret"
	testWebhookSecret = "integration-webhook-secret"
)

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		HTTPAddr:       ":0",
		BaseDomain:     testBaseDomain,
		DBDSN:          "unused",
		SessionSecret:  testSessionSecret,
		WebhookSecret:  testWebhookSecret,
		LogLevel:       "error",
		RateLimitRPM:   300,
		InviteTTLHours: 168,
	}
}

func mintSession(t *testing.T, userID, email, name string) string {
	t.Helper()

	token, err := identity.MintSessionToken(userID, email, name, testSessionSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// postWebhook delivers one signed provider event, as the identity
// provider would.
func postWebhook(t *testing.T, serverURL string, event map[string]any) {
	t.Helper()

	body, err := json.Marshal(event)
	require.NoError(t, err)

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req, err := http.NewRequest(http.MethodPost, serverURL+"/webhooks/identity", bytes.NewReader(body))
	require.NoError(t, err)
	req.Host = testBaseDomain
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.TimestampHeader, ts)
	req.Header.Set(identity.SignatureHeader, identity.Sign(testWebhookSecret, ts, body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", string(respBody))
}

func syncAccount(t *testing.T, serverURL string, accountID uuid.UUID, name, slug string) {
	t.Helper()

	postWebhook(t, serverURL, map[string]any{
		"type": "account.created",
		"data": map[string]any{"id": accountID, "name": name, "slug": slug},
	})
}

func syncUser(t *testing.T, serverURL, userID, email, name string) {
	t.Helper()

	postWebhook(t, serverURL, map[string]any{
		"type": "user.created",
		"data": map[string]any{"id": userID, "email": email, "name": name},
	})
}

func syncMembership(t *testing.T, serverURL string, accountID uuid.UUID, userID, role string) {
	t.Helper()

	postWebhook(t, serverURL, map[string]any{
		"type": "membership.assigned",
		"data": map[string]any{"account_id": accountID, "user_id": userID, "role": role},
	})
}

// doJSON issues one request against a workspace host. The host goes in
// req.Host so the tenant resolver sees it, while the connection still
// dials the test server.
func doJSON(t *testing.T, method, urlStr, host, token string, payload any) (int, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, urlStr, bodyReader)
	require.NoError(t, err)
	req.Host = host
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func doJSONExpectSuccess(t *testing.T, method, urlStr, host, token string, wantStatus int, payload any) envelopeResponse {
	t.Helper()

	status, body := doJSON(t, method, urlStr, host, token, payload)
	require.Equal(t, wantStatus, status, "body: %s", string(body))

	var env envelopeResponse
	require.NoError(t, json.Unmarshal(body, &env))
	require.NotEmpty(t, env.RequestID)

	return env
}

func doJSONExpectError(t *testing.T, method, urlStr, host, token string, wantStatus int, payload any) errorEnvelope {
	t.Helper()

	status, body := doJSON(t, method, urlStr, host, token, payload)
	require.Equal(t, wantStatus, status, "body: %s", string(body))

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	require.NotEmpty(t, env.Error.RequestID)

	return env
}

func listTeam(t *testing.T, serverURL, host, token string) []team.Member {
	t.Helper()

	env := doJSONExpectSuccess(t, http.MethodGet, serverURL+"/api/v1/team", host, token, http.StatusOK, nil)

	var parsed struct {
		Members []team.Member `json:"members"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))

	return parsed.Members
}

func createInvite(t *testing.T, serverURL, host, token, email, role string) team.Invitation {
	t.Helper()

	env := doJSONExpectSuccess(t, http.MethodPost, serverURL+"/api/v1/invitations", host, token, http.StatusCreated, map[string]any{
		"email": email,
		"role":  role,
	})

	var parsed struct {
		Invitation team.Invitation `json:"invitation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	require.NotEqual(t, uuid.Nil, parsed.Invitation.ID)

	return parsed.Invitation
}

func listInvites(t *testing.T, serverURL, host, token string) []team.InvitationListItem {
	t.Helper()

	env := doJSONExpectSuccess(t, http.MethodGet, serverURL+"/api/v1/invitations", host, token, http.StatusOK, nil)

	var parsed struct {
		Invitations []team.InvitationListItem `json:"invitations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))

	return parsed.Invitations
}

func listAudit(t *testing.T, serverURL, host, token string, limit int) []struct {
	Action string `json:"action"`
} {
	t.Helper()

	env := doJSONExpectSuccess(t, http.MethodGet, serverURL+"/api/v1/audit?limit="+strconv.Itoa(limit), host, token, http.StatusOK, nil)

	var parsed struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))

	return parsed.Events
}

// Service-level tests seed rows in SQL directly when the interesting
// state is awkward to reach through the HTTP surface.

func seedWorkspace(t *testing.T, pool *pgxpool.Pool, name, slug string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO accounts (name, slug)
		VALUES ($1, $2)
		RETURNING id
	`, name, slug).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedSyncedUser(t *testing.T, pool *pgxpool.Pool, userID, email, name string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
	`, userID, email, name)
	require.NoError(t, err)
}

func seedMembership(t *testing.T, pool *pgxpool.Pool, accountID uuid.UUID, userID string, role authz.Role) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO account_access (account_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, accountID, userID, role).Scan(&id)
	require.NoError(t, err)
	return id
}
