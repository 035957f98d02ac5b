package security

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetSubjectConnectionAccess returns the datasources accessible to any of the
// given subjects. User ids are expanded with the roles they hold before the
// grants are read, so a grant to a role reaches its members.
func (c *Controller) GetSubjectConnectionAccess(ctx context.Context, subjectIDs []string) ([]*ConnectionGrant, error) {
	subjectIDs = dedupe(subjectIDs)
	if len(subjectIDs) == 0 {
		return nil, nil
	}

	roleQuery := fmt.Sprintf(
		"SELECT DISTINCT role_id FROM auth_user_role WHERE user_id IN (%s)",
		placeholders(1, len(subjectIDs)))
	rows, err := c.db.DB().QueryContext(ctx, roleQuery, stringArgs(subjectIDs)...)
	if err != nil {
		return nil, storageError("error while expanding subject roles", err)
	}
	defer rows.Close()

	expanded := append([]string{}, subjectIDs...)
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, storageError("error while expanding subject roles", err)
		}
		expanded = append(expanded, roleID)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error while expanding subject roles", err)
	}
	expanded = dedupe(expanded)

	grantQuery := fmt.Sprintf(`
		SELECT da.datasource_id, da.subject_id, s.subject_kind
		FROM auth_datasource_access da, auth_subject s
		WHERE da.subject_id=s.subject_id AND da.subject_id IN (%s)`,
		placeholders(1, len(expanded)))
	grantRows, err := c.db.DB().QueryContext(ctx, grantQuery, stringArgs(expanded)...)
	if err != nil {
		return nil, storageError("error while reading connection access", err)
	}
	defer grantRows.Close()

	var grants []*ConnectionGrant
	for grantRows.Next() {
		grant := &ConnectionGrant{}
		var kind string
		if err := grantRows.Scan(&grant.DataSourceID, &grant.SubjectID, &kind); err != nil {
			return nil, storageError("error while reading connection access", err)
		}
		grant.SubjectKind = SubjectKind(kind)
		grants = append(grants, grant)
	}
	return grants, grantRows.Err()
}

// SetSubjectConnectionAccess replaces the set of datasources the subject may
// access, atomically.
func (c *Controller) SetSubjectConnectionAccess(ctx context.Context, subjectID string, dataSourceIDs []string, grantorID string) error {
	grantTime := time.Now().UTC()
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM auth_datasource_access WHERE subject_id=$1", subjectID); err != nil {
			return err
		}
		for _, dataSourceID := range dedupe(dataSourceIDs) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO auth_datasource_access (datasource_id, subject_id, grant_time, granted_by) VALUES ($1, $2, $3, $4)",
				dataSourceID, subjectID, grantTime, grantorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageError("error saving subject access in database", err)
	}
	return nil
}

// GetConnectionSubjectAccess returns the subjects granted access to the
// datasource.
func (c *Controller) GetConnectionSubjectAccess(ctx context.Context, dataSourceID string) ([]*ConnectionGrant, error) {
	rows, err := c.db.DB().QueryContext(ctx, `
		SELECT da.datasource_id, da.subject_id, s.subject_kind
		FROM auth_datasource_access da, auth_subject s
		WHERE da.subject_id=s.subject_id AND da.datasource_id=$1`, dataSourceID)
	if err != nil {
		return nil, storageError("error while reading connection access", err)
	}
	defer rows.Close()

	var grants []*ConnectionGrant
	for rows.Next() {
		grant := &ConnectionGrant{}
		var kind string
		if err := rows.Scan(&grant.DataSourceID, &grant.SubjectID, &kind); err != nil {
			return nil, storageError("error while reading connection access", err)
		}
		grant.SubjectKind = SubjectKind(kind)
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// SetConnectionSubjectAccess replaces the set of subjects allowed to access
// the datasource, atomically.
func (c *Controller) SetConnectionSubjectAccess(ctx context.Context, dataSourceID string, subjectIDs []string, grantorID string) error {
	grantTime := time.Now().UTC()
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM auth_datasource_access WHERE datasource_id=$1", dataSourceID); err != nil {
			return err
		}
		for _, subjectID := range dedupe(subjectIDs) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO auth_datasource_access (datasource_id, subject_id, grant_time, granted_by) VALUES ($1, $2, $3, $4)",
				dataSourceID, subjectID, grantTime, grantorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageError("error saving connection access in database", err)
	}
	return nil
}
