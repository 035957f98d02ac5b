package security

import (
	"context"
	"database/sql"
	"time"
)

// SetSubjectPermissions replaces all permissions directly granted to the
// subject (user or role) with the given set, atomically.
func (c *Controller) SetSubjectPermissions(ctx context.Context, subjectID string, permissionIDs []string, grantorID string) error {
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM auth_permissions WHERE subject_id=$1", subjectID); err != nil {
			return err
		}
		return insertPermissions(ctx, tx, subjectID, permissionIDs, grantorID)
	})
	if err != nil {
		return storageError("error saving subject permissions in database", err)
	}
	return nil
}

func insertPermissions(ctx context.Context, tx *sql.Tx, subjectID string, permissionIDs []string, grantorID string) error {
	grantTime := time.Now().UTC()
	for _, permissionID := range dedupe(permissionIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO auth_permissions (subject_id, permission_id, grant_time, granted_by) VALUES ($1, $2, $3, $4)",
			subjectID, permissionID, grantTime, grantorID); err != nil {
			return err
		}
	}
	return nil
}

// GetSubjectPermissions returns the permissions directly granted to the
// subject, without role expansion.
func (c *Controller) GetSubjectPermissions(ctx context.Context, subjectID string) (map[string]bool, error) {
	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT permission_id FROM auth_permissions WHERE subject_id=$1", subjectID)
	if err != nil {
		return nil, storageError("error while reading subject permissions", err)
	}
	defer rows.Close()

	permissions := make(map[string]bool)
	for rows.Next() {
		var permissionID string
		if err := rows.Scan(&permissionID); err != nil {
			return nil, storageError("error while reading subject permissions", err)
		}
		permissions[permissionID] = true
	}
	return permissions, rows.Err()
}

// GetUserPermissions returns the union of the permissions granted to the
// user's roles and those granted to the user directly.
func (c *Controller) GetUserPermissions(ctx context.Context, userID string) (map[string]bool, error) {
	permissions := make(map[string]bool)

	rows, err := c.db.DB().QueryContext(ctx, `
		SELECT DISTINCT p.permission_id
		FROM auth_permissions p, auth_user_role ur
		WHERE ur.user_id=$1 AND ur.role_id=p.subject_id`, userID)
	if err != nil {
		return nil, storageError("error while reading user role permissions", err)
	}
	defer rows.Close()
	for rows.Next() {
		var permissionID string
		if err := rows.Scan(&permissionID); err != nil {
			return nil, storageError("error while reading user role permissions", err)
		}
		permissions[permissionID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error while reading user role permissions", err)
	}

	direct, err := c.GetSubjectPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for permissionID := range direct {
		permissions[permissionID] = true
	}
	return permissions, nil
}
