package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

type ListItem struct {
	ID          string         `json:"id"`
	AccountID   uuid.UUID      `json:"account_id"`
	ActorUserID *string        `json:"actor_user_id,omitempty"`
	ActorEmail  string         `json:"actor_email,omitempty"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Change      map[string]any `json:"change"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ListByAccount returns the newest entries for one workspace. Actor
// emails resolve through a left join so deleted users leave the
// history intact.
func (r *Reader) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]ListItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT
		  al.id,
		  al.account_id,
		  al.actor_user_id,
		  u.email,
		  al.action,
		  al.entity_type,
		  al.entity_id,
		  al.change,
		  al.created_at
		FROM audit_log al
		LEFT JOIN users u ON u.id = al.actor_user_id
		WHERE al.account_id = $1
		ORDER BY al.created_at DESC, al.id DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []ListItem
	for rows.Next() {
		var item ListItem
		var actorEmail *string
		var changeRaw []byte

		if err := rows.Scan(&item.ID, &item.AccountID, &item.ActorUserID, &actorEmail,
			&item.Action, &item.EntityType, &item.EntityID, &changeRaw, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		if actorEmail != nil {
			item.ActorEmail = *actorEmail
		}

		item.Change = map[string]any{}
		if len(changeRaw) > 0 {
			_ = json.Unmarshal(changeRaw, &item.Change)
		}

		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return out, nil
}
