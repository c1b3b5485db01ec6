package progress

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGBackendLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	backend := NewPGBackend(db)

	mock.ExpectQuery("SELECT snapshot FROM wizard_progress").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot"}).AddRow([]byte(`{"step":2}`)))
	doc, err := backend.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":2}`, string(doc))

	mock.ExpectQuery("SELECT snapshot FROM wizard_progress").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = backend.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBackendSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO wizard_progress .* ON CONFLICT \\(session_key\\) DO UPDATE").
		WithArgs("s1", `{"step":0}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPGBackend(db).Save(context.Background(), "s1", []byte(`{"step":0}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBackendDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	backend := NewPGBackend(db)

	mock.ExpectExec("DELETE FROM wizard_progress").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM wizard_progress").WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM wizard_progress").WithArgs("s2").WillReturnError(assert.AnError)

	require.NoError(t, backend.Delete(context.Background(), "s1"))
	assert.ErrorIs(t, backend.Delete(context.Background(), "s1"), ErrNotFound)
	assert.ErrorIs(t, backend.Delete(context.Background(), "s2"), assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}
