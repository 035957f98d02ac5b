package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds database connection configuration
type Config struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	InstanceID  string
}

// Database is the transactional store gateway. It owns the connection pool,
// the serving-instance identity, and the scoped-transaction helper every
// security operation runs inside.
type Database struct {
	db         *sql.DB
	instanceID string
}

// Open opens the PostgreSQL connection described by config and verifies it
// with a ping bounded by config.Timeout.
func Open(config Config) (*Database, error) {
	db, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConns)
	db.SetMaxIdleConns(config.MinConns)
	db.SetConnMaxLifetime(config.MaxLifetime)

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, config.InstanceID), nil
}

// New wraps an existing connection. Used by tests that supply an in-memory
// or mocked connection.
func New(db *sql.DB, instanceID string) *Database {
	if instanceID == "" {
		instanceID = "local"
	}
	return &Database{db: db, instanceID: instanceID}
}

// DB exposes the underlying connection for read-only statements that do not
// need a transaction scope.
func (d *Database) DB() *sql.DB {
	return d.db
}

// InstanceID returns the serving-instance identifier stamped on session rows.
func (d *Database) InstanceID() string {
	return d.instanceID
}

// WithTransaction runs fn inside a transaction. The transaction commits when
// fn returns nil and rolls back on any error, so a mid-sequence failure never
// leaves a partially-applied write visible.
func (d *Database) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// HealthCheck verifies the connection is alive
func (d *Database) HealthCheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	return d.db.Close()
}
