package security

import (
	"database/sql"
	"io"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/consoleworks/authcore/pkg/authprov"
	"github.com/consoleworks/authcore/pkg/database"
	"github.com/consoleworks/authcore/pkg/observability"
)

const testSchema = `
	CREATE TABLE auth_subject (
		subject_id VARCHAR(128) PRIMARY KEY,
		subject_kind CHAR(1) NOT NULL
	);

	CREATE TABLE auth_user (
		user_id VARCHAR(128) PRIMARY KEY,
		is_active CHAR(1) NOT NULL,
		create_time TIMESTAMP NOT NULL
	);

	CREATE TABLE auth_user_meta (
		user_id VARCHAR(128) NOT NULL,
		meta_id VARCHAR(128) NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (user_id, meta_id)
	);

	CREATE TABLE auth_user_parameters (
		user_id VARCHAR(128) NOT NULL,
		param_id VARCHAR(128) NOT NULL,
		param_value TEXT NOT NULL,
		PRIMARY KEY (user_id, param_id)
	);

	CREATE TABLE auth_role (
		role_id VARCHAR(128) PRIMARY KEY,
		role_name VARCHAR(255) NOT NULL,
		role_description TEXT NOT NULL,
		create_time TIMESTAMP NOT NULL
	);

	CREATE TABLE auth_user_role (
		user_id VARCHAR(128) NOT NULL,
		role_id VARCHAR(128) NOT NULL,
		grant_time TIMESTAMP NOT NULL,
		granted_by VARCHAR(128) NOT NULL,
		PRIMARY KEY (user_id, role_id)
	);

	CREATE TABLE auth_permissions (
		subject_id VARCHAR(128) NOT NULL,
		permission_id VARCHAR(128) NOT NULL,
		grant_time TIMESTAMP NOT NULL,
		granted_by VARCHAR(128) NOT NULL,
		PRIMARY KEY (subject_id, permission_id)
	);

	CREATE TABLE auth_user_credentials (
		user_id VARCHAR(128) NOT NULL,
		provider_id VARCHAR(128) NOT NULL,
		cred_id VARCHAR(128) NOT NULL,
		cred_value TEXT NOT NULL,
		PRIMARY KEY (user_id, provider_id, cred_id)
	);

	CREATE TABLE auth_provider (
		provider_id VARCHAR(128) PRIMARY KEY,
		is_enabled CHAR(1) NOT NULL
	);

	CREATE TABLE auth_session (
		session_id VARCHAR(128) PRIMARY KEY,
		user_id VARCHAR(128),
		create_time TIMESTAMP NOT NULL,
		last_access_time TIMESTAMP NOT NULL,
		last_access_remote_address VARCHAR(128),
		last_access_user_agent VARCHAR(255),
		last_access_instance_id VARCHAR(128) NOT NULL
	);

	CREATE TABLE auth_datasource_access (
		datasource_id VARCHAR(128) NOT NULL,
		subject_id VARCHAR(128) NOT NULL,
		grant_time TIMESTAMP NOT NULL,
		granted_by VARCHAR(128) NOT NULL,
		PRIMARY KEY (datasource_id, subject_id)
	);
`

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return database.New(db, "test-instance")
}

func newTestRegistry(t *testing.T) *authprov.Registry {
	t.Helper()

	registry := authprov.NewRegistry()
	require.NoError(t, registry.Register(authprov.LocalProvider()))
	return registry
}

func newTestController(t *testing.T) *Controller {
	t.Helper()

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewController(setupTestDB(t), newTestRegistry(t), authprov.NewCipher("test-secret"), log, nil)
}
