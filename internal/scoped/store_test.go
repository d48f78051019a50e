package scoped

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	err  error
	scan func(dest ...any) error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.scan != nil {
		return f.scan(dest...)
	}
	return f.err
}

type fakeDB struct {
	execTag pgconn.CommandTag
	execErr error
	row     pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return f.row
}

func TestGet_MapsNoRowsToNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}

	err := Get(context.Background(), db, Statement{SQL: "SELECT 1"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_WrapsOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	db := &fakeDB{row: fakeRow{err: boom}}

	err := Get(context.Background(), db, Statement{SQL: "SELECT 1"})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestExec_ZeroRowsAffectedIsNotFound(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 0")}

	err := Exec(context.Background(), db, Statement{SQL: "DELETE"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExec_AffectedRowsSucceed(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}

	require.NoError(t, Exec(context.Background(), db, Statement{SQL: "UPDATE"}))
}

func TestInsertReturningID_ScansGeneratedID(t *testing.T) {
	want := uuid.New()
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*uuid.UUID)) = want
		return nil
	}}}

	id, err := InsertReturningID(context.Background(), db, Statement{SQL: "INSERT"})
	require.NoError(t, err)
	require.Equal(t, want, id)
}
