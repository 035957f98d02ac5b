package security

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consoleworks/authcore/pkg/authprov"
	"github.com/consoleworks/authcore/pkg/database"
	"github.com/consoleworks/authcore/pkg/observability"
)

func newMockController(t *testing.T) (*Controller, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	c := NewController(database.New(db, "test-instance"), newTestRegistry(t), authprov.NewCipher("test-secret"), log, nil)
	return c, mock
}

func TestGetUserByIDStorageError(t *testing.T) {
	c, mock := newMockController(t)

	mock.ExpectQuery("SELECT user_id, is_active, create_time FROM auth_user").
		WithArgs("alice").
		WillReturnError(errors.New("connection refused"))

	_, err := c.GetUserByID(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUserRolesRollsBackOnFailure(t *testing.T) {
	c, mock := newMockController(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM auth_user_role").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO auth_user_role").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := c.SetUserRoles(context.Background(), "alice", []string{"ops"}, "admin")
	assert.ErrorIs(t, err, ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserSubjectLookupFailure(t *testing.T) {
	c, mock := newMockController(t)

	mock.ExpectQuery("SELECT 1 FROM auth_subject").
		WithArgs("alice").
		WillReturnError(errors.New("connection refused"))

	err := c.CreateUser(context.Background(), NewUser("alice"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSessionStorageError(t *testing.T) {
	c, mock := newMockController(t)

	mock.ExpectExec("DELETE FROM auth_session").
		WithArgs("s-1").
		WillReturnError(errors.New("connection refused"))

	err := c.DeleteSession(context.Background(), "s-1")
	assert.ErrorIs(t, err, ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
