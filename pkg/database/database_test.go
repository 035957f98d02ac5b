package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, "test-instance"), mock
}

func TestNewDefaultsInstanceID(t *testing.T) {
	db, _ := newMockDatabase(t)
	assert.Equal(t, "test-instance", db.InstanceID())

	fallback := New(db.DB(), "")
	assert.Equal(t, "local", fallback.InstanceID())
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO auth_subject").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(),
			"INSERT INTO auth_subject (subject_id, subject_kind) VALUES ($1, $2)", "alice", "U")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBack(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	failure := errors.New("boom")
	err := db.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionCommitFailure(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	err := db.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		return nil
	})
	assert.ErrorContains(t, err, "failed to commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	assert.NoError(t, db.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	assert.ErrorContains(t, db.HealthCheck(context.Background()), "database unhealthy")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMigrationsOrdering(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)

	seen := make(map[int]bool)
	last := 0
	for _, m := range migrations {
		assert.Greater(t, m.Version, last, "versions must be ascending")
		assert.False(t, seen[m.Version], "versions must be unique")
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.SQL)
		seen[m.Version] = true
		last = m.Version
	}
}
