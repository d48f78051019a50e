package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	sql  string
	args []any
	err  error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestWriter_LogInsertsOneEntry(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(db)

	accountID := uuid.New()
	actor := "usr_admin"

	err := w.Log(context.Background(), Entry{
		AccountID:   accountID,
		ActorUserID: &actor,
		Action:      ActionRoleChange,
		EntityType:  EntityMembership,
		EntityID:    "mem_1",
		Change: Change{
			Before: map[string]any{"role": "member"},
			After:  map[string]any{"role": "admin"},
		},
	})
	require.NoError(t, err)

	require.Contains(t, db.sql, "INSERT INTO audit_log")
	require.Len(t, db.args, 7)

	// A ULID id is minted per entry.
	id, ok := db.args[0].(string)
	require.True(t, ok)
	require.Len(t, id, 26)

	require.Equal(t, accountID, db.args[1])
	require.Equal(t, &actor, db.args[2])
	require.Equal(t, ActionRoleChange, db.args[3])
	require.Equal(t, EntityMembership, db.args[4])
	require.Equal(t, "mem_1", db.args[5])

	change, ok := db.args[6].([]byte)
	require.True(t, ok)
	require.JSONEq(t, `{"before":{"role":"member"},"after":{"role":"admin"}}`, string(change))
}

func TestWriter_LogReturnsWriteFailure(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	w := NewWriter(db)

	err := w.Log(context.Background(), Entry{
		AccountID:  uuid.New(),
		Action:     ActionAssign,
		EntityType: EntityMembership,
	})
	require.Error(t, err)
}

func TestWriter_ChangeSidesAreOptional(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(db)

	err := w.Log(context.Background(), Entry{
		AccountID:  uuid.New(),
		Action:     ActionUnassign,
		EntityType: EntityMembership,
		EntityID:   "mem_2",
		Change:     Change{Before: map[string]any{"user_id": "usr_gone"}},
	})
	require.NoError(t, err)

	change, ok := db.args[6].([]byte)
	require.True(t, ok)
	require.JSONEq(t, `{"before":{"user_id":"usr_gone"}}`, string(change))
}

func TestWriter_SystemEntriesCarryNoActor(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(db)

	err := w.LogAssign(context.Background(), uuid.New(), nil, uuid.New(), "usr_synced", "member")
	require.NoError(t, err)

	require.Nil(t, db.args[2])
}
