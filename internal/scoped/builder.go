package scoped

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Table describes one scoped entity. Columns lists every selectable
// column except id and account_id, which the builder manages itself.
// Columns double as the write whitelist: values for unknown columns
// are dropped, so a hostile payload cannot smuggle extra assignments.
type Table struct {
	Name    string
	Columns []string
}

// Statement is one parameterized query ready to execute.
type Statement struct {
	SQL  string
	Args []any
}

// protectedColumns are never writable through Insert or Update values.
var protectedColumns = map[string]bool{
	"id":         true,
	"account_id": true,
	"created_at": true,
	"updated_at": true,
}

// SelectAll lists every row in the workspace.
func (s Scope) SelectAll(t Table, orderBy string) Statement {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE account_id = $1`, selectList(t), t.Name)
	if orderBy != "" {
		sql += " ORDER BY " + orderBy
	}
	return Statement{SQL: sql, Args: []any{s.accountID}}
}

// SelectByID fetches one row by id within the workspace.
func (s Scope) SelectByID(t Table, id uuid.UUID) Statement {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND account_id = $2`, selectList(t), t.Name)
	return Statement{SQL: sql, Args: []any{id, s.accountID}}
}

// SelectByIDForUpdate is SelectByID with a row lock, for callers that
// check-then-mutate inside a transaction.
func (s Scope) SelectByIDForUpdate(t Table, id uuid.UUID) Statement {
	stmt := s.SelectByID(t, id)
	stmt.SQL += " FOR UPDATE"
	return stmt
}

// SelectWhere lists rows matching cond. cond references its own
// arguments as $1..$n; the workspace filter is appended after them.
func (s Scope) SelectWhere(t Table, cond string, condArgs []any, orderBy string) Statement {
	args := append(append([]any{}, condArgs...), s.accountID)
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE (%s) AND account_id = $%d`,
		selectList(t), t.Name, cond, len(args))
	if orderBy != "" {
		sql += " ORDER BY " + orderBy
	}
	return Statement{SQL: sql, Args: args}
}

// Insert creates a row owned by the workspace. The account id comes
// from the scope alone; an account_id key in values is discarded.
func (s Scope) Insert(t Table, values map[string]any) Statement {
	cols := []string{"account_id"}
	placeholders := []string{"$1"}
	args := []any{s.accountID}

	for _, col := range t.Columns {
		if protectedColumns[col] {
			continue
		}
		v, ok := values[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, v)
	}

	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		t.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return Statement{SQL: sql, Args: args}
}

// Update rewrites columns of one row within the workspace. Only
// whitelisted columns present in values are assigned; updated_at is
// always refreshed when the table carries it.
func (s Scope) Update(t Table, id uuid.UUID, values map[string]any) Statement {
	var sets []string
	var args []any

	hasUpdatedAt := false
	for _, col := range t.Columns {
		if col == "updated_at" {
			hasUpdatedAt = true
		}
		if protectedColumns[col] {
			continue
		}
		v, ok := values[col]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if hasUpdatedAt {
		sets = append(sets, "updated_at = NOW()")
	}

	args = append(args, id, s.accountID)
	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d AND account_id = $%d`,
		t.Name, strings.Join(sets, ", "), len(args)-1, len(args))
	return Statement{SQL: sql, Args: args}
}

// Delete removes one row within the workspace.
func (s Scope) Delete(t Table, id uuid.UUID) Statement {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND account_id = $2`, t.Name)
	return Statement{SQL: sql, Args: []any{id, s.accountID}}
}

// Count reports how many rows the workspace owns.
func (s Scope) Count(t Table) Statement {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE account_id = $1`, t.Name)
	return Statement{SQL: sql, Args: []any{s.accountID}}
}

// CountWhere counts rows matching cond, same argument convention as
// SelectWhere.
func (s Scope) CountWhere(t Table, cond string, condArgs []any) Statement {
	args := append(append([]any{}, condArgs...), s.accountID)
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE (%s) AND account_id = $%d`,
		t.Name, cond, len(args))
	return Statement{SQL: sql, Args: args}
}

func selectList(t Table) string {
	return "id, " + strings.Join(t.Columns, ", ")
}
