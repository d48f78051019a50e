// Package audit appends an immutable record of every privileged
// mutation. Entries are written after the mutation commits; a failed
// write is logged and counted, never rolled into the client response.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/tryequipped/equipped/internal/ids"
	"github.com/tryequipped/equipped/internal/obs"
)

// Actions recorded for privileged operations.
const (
	ActionInvite     = "invite"
	ActionAccept     = "accept"
	ActionDecline    = "decline"
	ActionRevoke     = "revoke"
	ActionAssign     = "assign"
	ActionUnassign   = "unassign"
	ActionRoleChange = "role_change"
	ActionRemove     = "remove"

	ActionAccountUpdate = "update"
	ActionBillingUpdate = "billing_update"
	ActionAccountDelete = "delete"
)

// Entity types referenced by entries.
const (
	EntityMembership = "membership"
	EntityInvitation = "invitation"
	EntityAccount    = "account"
)

// Change is the structured before/after payload stored with an entry.
type Change struct {
	Before any `json:"before,omitempty"`
	After  any `json:"after,omitempty"`
}

// Entry is one audit record. ActorUserID is nil for system-originated
// changes (identity webhook sync).
type Entry struct {
	AccountID   uuid.UUID
	ActorUserID *string
	Action      string
	EntityType  string
	EntityID    string
	Change      Change
}

// DB is the slice of the pgx pool the writer needs. Narrow so tests
// can substitute an implementation that fails.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Writer appends audit entries. There is no update or delete path.
type Writer struct {
	db DB
}

func NewWriter(db DB) *Writer {
	return &Writer{db: db}
}

// Log appends one entry. Callers invoke it only after their mutation
// has committed, so an entry never describes a change that did not
// happen. The reverse failure mode (mutation committed, entry lost) is
// surfaced through the failure counter and the error log.
func (w *Writer) Log(ctx context.Context, e Entry) error {
	changeJSON, err := json.Marshal(e.Change)
	if err != nil {
		w.fail(e, err)
		return err
	}

	_, err = w.db.Exec(ctx, `
		INSERT INTO audit_log (id, account_id, actor_user_id, action, entity_type, entity_id, change)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ids.New(), e.AccountID, e.ActorUserID, e.Action, e.EntityType, e.EntityID, changeJSON)
	if err != nil {
		w.fail(e, err)
		return err
	}

	log.Info().
		Str("action", e.Action).
		Str("entity_type", e.EntityType).
		Str("entity_id", e.EntityID).
		Str("account_id", e.AccountID.String()).
		Msg("Audit event logged")

	return nil
}

func (w *Writer) fail(e Entry, err error) {
	obs.AuditWriteFailed()
	log.Error().
		Err(err).
		Str("action", e.Action).
		Str("entity_type", e.EntityType).
		Str("account_id", e.AccountID.String()).
		Msg("Failed to write audit log")
}

func (w *Writer) LogInvite(ctx context.Context, accountID uuid.UUID, actorID string, inviteID uuid.UUID, email, role string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionInvite,
		EntityType:  EntityInvitation,
		EntityID:    inviteID.String(),
		Change:      Change{After: map[string]any{"email": email, "role": role}},
	})
}

func (w *Writer) LogInviteAccepted(ctx context.Context, accountID uuid.UUID, actorID string, inviteID, membershipID uuid.UUID, role string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionAccept,
		EntityType:  EntityInvitation,
		EntityID:    inviteID.String(),
		Change: Change{After: map[string]any{
			"membership_id": membershipID.String(),
			"role":          role,
		}},
	})
}

func (w *Writer) LogInviteDeclined(ctx context.Context, accountID uuid.UUID, actorID string, inviteID uuid.UUID) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionDecline,
		EntityType:  EntityInvitation,
		EntityID:    inviteID.String(),
	})
}

func (w *Writer) LogInviteRevoked(ctx context.Context, accountID uuid.UUID, actorID string, inviteID uuid.UUID, email string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionRevoke,
		EntityType:  EntityInvitation,
		EntityID:    inviteID.String(),
		Change:      Change{Before: map[string]any{"email": email, "status": "pending"}},
	})
}

func (w *Writer) LogAssign(ctx context.Context, accountID uuid.UUID, actor *string, membershipID uuid.UUID, targetUserID, role string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: actor,
		Action:      ActionAssign,
		EntityType:  EntityMembership,
		EntityID:    membershipID.String(),
		Change: Change{After: map[string]any{
			"user_id": targetUserID,
			"role":    role,
		}},
	})
}

func (w *Writer) LogUnassign(ctx context.Context, accountID uuid.UUID, actor *string, membershipID uuid.UUID, targetUserID, role string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: actor,
		Action:      ActionUnassign,
		EntityType:  EntityMembership,
		EntityID:    membershipID.String(),
		Change: Change{Before: map[string]any{
			"user_id": targetUserID,
			"role":    role,
		}},
	})
}

func (w *Writer) LogRoleChange(ctx context.Context, accountID uuid.UUID, actorID string, membershipID uuid.UUID, targetUserID, previousRole, newRole string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionRoleChange,
		EntityType:  EntityMembership,
		EntityID:    membershipID.String(),
		Change: Change{
			Before: map[string]any{"user_id": targetUserID, "role": previousRole},
			After:  map[string]any{"user_id": targetUserID, "role": newRole},
		},
	})
}

func (w *Writer) LogRemove(ctx context.Context, accountID uuid.UUID, actorID string, membershipID uuid.UUID, targetUserID, removedRole string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionRemove,
		EntityType:  EntityMembership,
		EntityID:    membershipID.String(),
		Change: Change{Before: map[string]any{
			"user_id": targetUserID,
			"role":    removedRole,
		}},
	})
}

func (w *Writer) LogAccountUpdate(ctx context.Context, accountID uuid.UUID, actorID string, before, after any) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionAccountUpdate,
		EntityType:  EntityAccount,
		EntityID:    accountID.String(),
		Change:      Change{Before: before, After: after},
	})
}

func (w *Writer) LogBillingUpdate(ctx context.Context, accountID uuid.UUID, actorID string, before, after any) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionBillingUpdate,
		EntityType:  EntityAccount,
		EntityID:    accountID.String(),
		Change:      Change{Before: before, After: after},
	})
}

func (w *Writer) LogAccountDelete(ctx context.Context, accountID uuid.UUID, actorID string, slug string) error {
	return w.Log(ctx, Entry{
		AccountID:   accountID,
		ActorUserID: &actorID,
		Action:      ActionAccountDelete,
		EntityType:  EntityAccount,
		EntityID:    accountID.String(),
		Change:      Change{Before: map[string]any{"slug": slug}},
	})
}
