package scoped

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tryequipped/equipped/internal/tenant"
)

var testTable = Table{
	Name:    "devices",
	Columns: []string{"name", "serial_number", "status", "created_at", "updated_at"},
}

func scopeFor(t *testing.T, accountID uuid.UUID) Scope {
	t.Helper()
	s, err := For(&tenant.Context{Account: &tenant.Account{ID: accountID, Slug: "acme"}})
	require.NoError(t, err)
	return s
}

func TestStatements_AlwaysFilterOnResolvedWorkspace(t *testing.T) {
	acct := uuid.New()
	foreign := uuid.New()
	rowID := uuid.New()
	s := scopeFor(t, acct)

	stmts := []Statement{
		s.SelectAll(testTable, "created_at DESC"),
		s.SelectByID(testTable, rowID),
		s.SelectWhere(testTable, "status = $1", []any{"active"}, ""),
		s.Insert(testTable, map[string]any{"name": "mbp-14", "account_id": foreign}),
		s.Update(testTable, rowID, map[string]any{"name": "mbp-16", "account_id": foreign}),
		s.Delete(testTable, rowID),
		s.Count(testTable),
		s.CountWhere(testTable, "status = $1", []any{"retired"}),
	}

	for _, stmt := range stmts {
		require.Contains(t, stmt.SQL, "account_id", "sql: %s", stmt.SQL)
		require.Contains(t, stmt.Args, acct, "sql: %s", stmt.SQL)
		require.NotContains(t, stmt.Args, foreign,
			"caller-supplied account ids must never bind: %s", stmt.SQL)
	}
}

func TestSelectByID_FiltersOnIDAndWorkspace(t *testing.T) {
	acct, row := uuid.New(), uuid.New()

	stmt := scopeFor(t, acct).SelectByID(testTable, row)

	require.Equal(t,
		`SELECT id, name, serial_number, status, created_at, updated_at FROM devices WHERE id = $1 AND account_id = $2`,
		stmt.SQL)
	require.Equal(t, []any{row, acct}, stmt.Args)
}

func TestSelectWhere_AppendsWorkspaceAfterCallerArgs(t *testing.T) {
	acct := uuid.New()

	stmt := scopeFor(t, acct).SelectWhere(testTable,
		"status = $1 AND serial_number = $2", []any{"active", "SN-9"}, "name")

	require.Equal(t,
		`SELECT id, name, serial_number, status, created_at, updated_at FROM devices WHERE (status = $1 AND serial_number = $2) AND account_id = $3 ORDER BY name`,
		stmt.SQL)
	require.Equal(t, []any{"active", "SN-9", acct}, stmt.Args)
}

func TestInsert_InjectsWorkspaceFirst(t *testing.T) {
	acct := uuid.New()

	stmt := scopeFor(t, acct).Insert(testTable, map[string]any{
		"name":          "dell-xps",
		"serial_number": "SN-1",
		"status":        "active",
	})

	require.Equal(t,
		`INSERT INTO devices (account_id, name, serial_number, status) VALUES ($1, $2, $3, $4) RETURNING id`,
		stmt.SQL)
	require.Equal(t, []any{acct, "dell-xps", "SN-1", "active"}, stmt.Args)
}

func TestInsert_DropsUnknownColumns(t *testing.T) {
	acct := uuid.New()

	stmt := scopeFor(t, acct).Insert(testTable, map[string]any{
		"name":     "x1-carbon",
		"is_admin": true,
	})

	require.NotContains(t, stmt.SQL, "is_admin")
	require.NotContains(t, stmt.Args, true)
}

func TestUpdate_RefreshesUpdatedAtAndScopesWrite(t *testing.T) {
	acct, row := uuid.New(), uuid.New()

	stmt := scopeFor(t, acct).Update(testTable, row, map[string]any{"status": "retired"})

	require.Equal(t,
		`UPDATE devices SET status = $1, updated_at = NOW() WHERE id = $2 AND account_id = $3`,
		stmt.SQL)
	require.Equal(t, []any{"retired", row, acct}, stmt.Args)
}

func TestUpdate_IgnoresProtectedColumns(t *testing.T) {
	acct, row := uuid.New(), uuid.New()

	stmt := scopeFor(t, acct).Update(testTable, row, map[string]any{
		"status":     "sold",
		"id":         uuid.New(),
		"created_at": "1970-01-01",
	})

	require.Equal(t,
		`UPDATE devices SET status = $1, updated_at = NOW() WHERE id = $2 AND account_id = $3`,
		stmt.SQL)
}

func TestDelete_ScopesRemoval(t *testing.T) {
	acct, row := uuid.New(), uuid.New()

	stmt := scopeFor(t, acct).Delete(testTable, row)

	require.Equal(t, `DELETE FROM devices WHERE id = $1 AND account_id = $2`, stmt.SQL)
	require.Equal(t, []any{row, acct}, stmt.Args)
}
