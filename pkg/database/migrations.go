package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all authorization schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create subject, user and role tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS auth_subject (
					subject_id VARCHAR(128) PRIMARY KEY,
					subject_kind CHAR(1) NOT NULL
				);

				CREATE TABLE IF NOT EXISTS auth_user (
					user_id VARCHAR(128) PRIMARY KEY REFERENCES auth_subject(subject_id) ON DELETE CASCADE,
					is_active CHAR(1) NOT NULL,
					create_time TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS auth_user_meta (
					user_id VARCHAR(128) NOT NULL REFERENCES auth_user(user_id) ON DELETE CASCADE,
					meta_id VARCHAR(128) NOT NULL,
					meta_value TEXT NOT NULL,
					PRIMARY KEY (user_id, meta_id)
				);

				CREATE TABLE IF NOT EXISTS auth_user_parameters (
					user_id VARCHAR(128) NOT NULL REFERENCES auth_user(user_id) ON DELETE CASCADE,
					param_id VARCHAR(128) NOT NULL,
					param_value TEXT NOT NULL,
					PRIMARY KEY (user_id, param_id)
				);

				CREATE TABLE IF NOT EXISTS auth_role (
					role_id VARCHAR(128) PRIMARY KEY REFERENCES auth_subject(subject_id) ON DELETE CASCADE,
					role_name VARCHAR(255) NOT NULL,
					role_description TEXT NOT NULL,
					create_time TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS auth_user_role (
					user_id VARCHAR(128) NOT NULL REFERENCES auth_user(user_id) ON DELETE CASCADE,
					role_id VARCHAR(128) NOT NULL REFERENCES auth_role(role_id),
					grant_time TIMESTAMP NOT NULL,
					granted_by VARCHAR(128) NOT NULL,
					PRIMARY KEY (user_id, role_id)
				);

				CREATE INDEX IF NOT EXISTS idx_auth_user_role_role_id ON auth_user_role(role_id);
			`,
		},
		{
			Version:     2,
			Description: "Create permission and credential tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS auth_permissions (
					subject_id VARCHAR(128) NOT NULL REFERENCES auth_subject(subject_id) ON DELETE CASCADE,
					permission_id VARCHAR(128) NOT NULL,
					grant_time TIMESTAMP NOT NULL,
					granted_by VARCHAR(128) NOT NULL,
					PRIMARY KEY (subject_id, permission_id)
				);

				CREATE TABLE IF NOT EXISTS auth_user_credentials (
					user_id VARCHAR(128) NOT NULL REFERENCES auth_user(user_id) ON DELETE CASCADE,
					provider_id VARCHAR(128) NOT NULL,
					cred_id VARCHAR(128) NOT NULL,
					cred_value TEXT NOT NULL,
					PRIMARY KEY (user_id, provider_id, cred_id)
				);

				CREATE INDEX IF NOT EXISTS idx_auth_user_credentials_provider
					ON auth_user_credentials(provider_id, cred_id);

				CREATE TABLE IF NOT EXISTS auth_provider (
					provider_id VARCHAR(128) PRIMARY KEY,
					is_enabled CHAR(1) NOT NULL
				);
			`,
		},
		{
			Version:     3,
			Description: "Create session table",
			SQL: `
				CREATE TABLE IF NOT EXISTS auth_session (
					session_id VARCHAR(128) PRIMARY KEY,
					user_id VARCHAR(128),
					create_time TIMESTAMP NOT NULL,
					last_access_time TIMESTAMP NOT NULL,
					last_access_remote_address VARCHAR(128),
					last_access_user_agent VARCHAR(255),
					last_access_instance_id VARCHAR(128) NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_auth_session_last_access ON auth_session(last_access_time);
			`,
		},
		{
			Version:     4,
			Description: "Create datasource access table",
			SQL: `
				CREATE TABLE IF NOT EXISTS auth_datasource_access (
					datasource_id VARCHAR(128) NOT NULL,
					subject_id VARCHAR(128) NOT NULL REFERENCES auth_subject(subject_id) ON DELETE CASCADE,
					grant_time TIMESTAMP NOT NULL,
					granted_by VARCHAR(128) NOT NULL,
					PRIMARY KEY (datasource_id, subject_id)
				);

				CREATE INDEX IF NOT EXISTS idx_auth_datasource_access_subject
					ON auth_datasource_access(subject_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS auth_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM auth_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO auth_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
