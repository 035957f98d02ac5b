package security

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateRole persists a new role and grants it the public permission,
// attributed to the grantor. Fails with ErrSubjectExists when any subject
// (user or role) already holds the id.
func (c *Controller) CreateRole(ctx context.Context, role *Role, grantorID string) error {
	exists, err := c.isSubjectExists(ctx, c.db.DB(), role.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("user or role %q: %w", role.ID, ErrSubjectExists)
	}

	createTime := role.CreatedAt
	if createTime.IsZero() {
		createTime = time.Now().UTC()
	}

	err = c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := c.createAuthSubject(ctx, tx, role.ID, SubjectRole); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO auth_role (role_id, role_name, role_description, create_time) VALUES ($1, $2, $3, $4)",
			role.ID, role.Name, role.Description, createTime); err != nil {
			return err
		}
		return insertPermissions(ctx, tx, role.ID, []string{PermissionPublic}, grantorID)
	})
	if err != nil {
		return storageError("error saving role in database", err)
	}

	role.CreatedAt = createTime
	return nil
}

// UpdateRole rewrites the role's name and description
func (c *Controller) UpdateRole(ctx context.Context, role *Role) error {
	result, err := c.db.DB().ExecContext(ctx,
		"UPDATE auth_role SET role_name=$1, role_description=$2 WHERE role_id=$3",
		role.Name, role.Description, role.ID)
	if err != nil {
		return storageError("error updating role info", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("error updating role info", err)
	}
	if affected == 0 {
		return fmt.Errorf("role %q: %w", role.ID, ErrNotFound)
	}
	return nil
}

// DeleteRole removes the role and its subject row. It refuses with
// ErrRoleInUse while any user still holds the role; dropping the assignments
// first is the caller's responsibility.
func (c *Controller) DeleteRole(ctx context.Context, roleID string) error {
	var userCount int
	err := c.db.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM auth_user_role WHERE role_id=$1", roleID).Scan(&userCount)
	if err != nil {
		return storageError("error while counting role users", err)
	}
	if userCount > 0 {
		return fmt.Errorf("role %q is used by %d users: %w", roleID, userCount, ErrRoleInUse)
	}

	err = c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := c.deleteAuthSubject(ctx, tx, roleID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM auth_role WHERE role_id=$1", roleID)
		return err
	})
	if err != nil {
		return storageError("error deleting role from database", err)
	}
	return nil
}

// ReadAllRoles returns every role ordered by id, permissions included
func (c *Controller) ReadAllRoles(ctx context.Context) ([]*Role, error) {
	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT role_id, role_name, role_description, create_time FROM auth_role ORDER BY role_id")
	if err != nil {
		return nil, storageError("error while loading roles", err)
	}
	defer rows.Close()

	var roles []*Role
	byID := make(map[string]*Role)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, storageError("error while loading roles", err)
		}
		roles = append(roles, role)
		byID[role.ID] = role
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error while loading roles", err)
	}

	permRows, err := c.db.DB().QueryContext(ctx,
		"SELECT subject_id, permission_id FROM auth_permissions")
	if err != nil {
		return nil, storageError("error while loading role permissions", err)
	}
	defer permRows.Close()
	for permRows.Next() {
		var subjectID, permissionID string
		if err := permRows.Scan(&subjectID, &permissionID); err != nil {
			return nil, storageError("error while loading role permissions", err)
		}
		if role := byID[subjectID]; role != nil {
			role.Permissions = append(role.Permissions, permissionID)
		}
	}
	return roles, permRows.Err()
}

// FindRole returns the role with the given id, or nil when absent
func (c *Controller) FindRole(ctx context.Context, roleID string) (*Role, error) {
	roles, err := c.ReadAllRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, nil
}

// GetRoleSubjects returns the ids of users holding the role
func (c *Controller) GetRoleSubjects(ctx context.Context, roleID string) ([]string, error) {
	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT user_id FROM auth_user_role WHERE role_id=$1", roleID)
	if err != nil {
		return nil, storageError("error while reading role users", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, storageError("error while reading role users", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

func scanRole(rows *sql.Rows) (*Role, error) {
	role := &Role{}
	var name, description sql.NullString
	if err := rows.Scan(&role.ID, &name, &description, &role.CreatedAt); err != nil {
		return nil, err
	}
	role.Name = name.String
	role.Description = description.String
	return role, nil
}
