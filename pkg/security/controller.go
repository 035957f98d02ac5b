package security

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/consoleworks/authcore/pkg/authprov"
	"github.com/consoleworks/authcore/pkg/database"
	"github.com/consoleworks/authcore/pkg/observability"
)

// Controller implements the authorization and credential-management core
// against the store gateway. Every public operation is request scoped: it
// opens its own transaction where it mutates and holds no state between
// calls.
type Controller struct {
	db        *database.Database
	providers *authprov.Registry
	cipher    *authprov.Cipher
	log       *observability.Logger
	metrics   *observability.Metrics
}

// NewController creates a security controller. The provider registry and
// cipher are required; logger and metrics fall back to inert defaults when
// nil.
func NewController(db *database.Database, providers *authprov.Registry, cipher *authprov.Cipher, log *observability.Logger, metrics *observability.Metrics) *Controller {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, io.Discard)
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	return &Controller{
		db:        db,
		providers: providers,
		cipher:    cipher,
		log:       log,
		metrics:   metrics,
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// isSubjectExists reports whether a user or role with the id exists
func (c *Controller) isSubjectExists(ctx context.Context, q querier, subjectID string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM auth_subject WHERE subject_id=$1", subjectID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageError("error while searching subject", err)
	}
	return true, nil
}

func (c *Controller) createAuthSubject(ctx context.Context, tx *sql.Tx, subjectID string, kind SubjectKind) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO auth_subject (subject_id, subject_kind) VALUES ($1, $2)",
		subjectID, string(kind))
	return err
}

func (c *Controller) deleteAuthSubject(ctx context.Context, tx *sql.Tx, subjectID string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM auth_subject WHERE subject_id=$1", subjectID)
	return err
}

// storageError wraps a driver failure with the ErrStorage sentinel
func storageError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, msg, err)
}

// placeholders renders "$start,$start+1,...,$start+n-1" for IN clauses
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ",")
}

func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// dedupe returns ids with duplicates and empty entries removed, preserving
// first-seen order
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
