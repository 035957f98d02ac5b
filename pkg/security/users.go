package security

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// CreateUser persists a new user and its initial meta parameters in one
// transaction. Fails with ErrSubjectExists when any subject (user or role)
// already holds the id.
func (c *Controller) CreateUser(ctx context.Context, user *User) error {
	exists, err := c.isSubjectExists(ctx, c.db.DB(), user.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("user or role %q: %w", user.ID, ErrSubjectExists)
	}

	createTime := user.CreatedAt
	if createTime.IsZero() {
		createTime = time.Now().UTC()
	}

	err = c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := c.createAuthSubject(ctx, tx, user.ID, SubjectUser); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO auth_user (user_id, is_active, create_time) VALUES ($1, $2, $3)",
			user.ID, charBool(user.Active), createTime); err != nil {
			return err
		}
		if err := insertUserMeta(ctx, tx, user.ID, user.MetaParameters); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return storageError("error saving user in database", err)
	}

	user.CreatedAt = createTime
	return nil
}

// DeleteUser removes the user and its subject row atomically
func (c *Controller) DeleteUser(ctx context.Context, userID string) error {
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := c.deleteAuthSubject(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM auth_user WHERE user_id=$1", userID)
		return err
	})
	if err != nil {
		return storageError("error deleting user from database", err)
	}
	return nil
}

// SetUserActive flips the active flag. A user with active=false is never
// resolved by a credential match.
func (c *Controller) SetUserActive(ctx context.Context, userID string, active bool) error {
	result, err := c.db.DB().ExecContext(ctx,
		"UPDATE auth_user SET is_active=$1 WHERE user_id=$2",
		charBool(active), userID)
	if err != nil {
		return storageError("error updating user state", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("error updating user state", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	return nil
}

// SetUserRoles replaces all role assignments of the user with the given set,
// stamping grantor and grant time per row, atomically.
func (c *Controller) SetUserRoles(ctx context.Context, userID string, roleIDs []string, grantorID string) error {
	roleIDs = dedupe(roleIDs)
	grantTime := time.Now().UTC()

	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM auth_user_role WHERE user_id=$1", userID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO auth_user_role (user_id, role_id, grant_time, granted_by) VALUES ($1, $2, $3, $4)",
				userID, roleID, grantTime, grantorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageError("error saving user roles in database", err)
	}
	return nil
}

// GetUserRoles returns the roles currently assigned to the user
func (c *Controller) GetUserRoles(ctx context.Context, userID string) ([]*Role, error) {
	rows, err := c.db.DB().QueryContext(ctx, `
		SELECT r.role_id, r.role_name, r.role_description, r.create_time
		FROM auth_user_role ur, auth_role r
		WHERE ur.user_id=$1 AND ur.role_id=r.role_id`, userID)
	if err != nil {
		return nil, storageError("error while reading user roles", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, storageError("error while reading user roles", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetUserByID returns the user with its meta parameters, or ErrNotFound
func (c *Controller) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user := &User{MetaParameters: make(map[string]string)}
	var isActive string
	err := c.db.DB().QueryRowContext(ctx,
		"SELECT user_id, is_active, create_time FROM auth_user WHERE user_id=$1", userID).
		Scan(&user.ID, &isActive, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, storageError("error while searching user", err)
	}
	user.Active = isActive == charBoolTrue

	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT meta_id, meta_value FROM auth_user_meta WHERE user_id=$1", userID)
	if err != nil {
		return nil, storageError("error while reading user meta", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, storageError("error while reading user meta", err)
		}
		user.MetaParameters[id] = value
	}
	return user, rows.Err()
}

// FindUsers returns users matching the mask, with meta parameters joined in.
// An empty mask returns all users ordered by id; a non-empty mask is an
// exact id match.
func (c *Controller) FindUsers(ctx context.Context, mask string) ([]*User, error) {
	userQuery := "SELECT user_id, is_active, create_time FROM auth_user ORDER BY user_id"
	metaQuery := "SELECT user_id, meta_id, meta_value FROM auth_user_meta"
	var args []interface{}
	if mask != "" {
		userQuery = "SELECT user_id, is_active, create_time FROM auth_user WHERE user_id=$1"
		metaQuery = "SELECT user_id, meta_id, meta_value FROM auth_user_meta WHERE user_id=$1"
		args = []interface{}{mask}
	}

	rows, err := c.db.DB().QueryContext(ctx, userQuery, args...)
	if err != nil {
		return nil, storageError("error while loading users", err)
	}
	defer rows.Close()

	var users []*User
	byID := make(map[string]*User)
	for rows.Next() {
		user := &User{MetaParameters: make(map[string]string)}
		var isActive string
		if err := rows.Scan(&user.ID, &isActive, &user.CreatedAt); err != nil {
			return nil, storageError("error while loading users", err)
		}
		user.Active = isActive == charBoolTrue
		users = append(users, user)
		byID[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error while loading users", err)
	}

	metaRows, err := c.db.DB().QueryContext(ctx, metaQuery, args...)
	if err != nil {
		return nil, storageError("error while loading user meta", err)
	}
	defer metaRows.Close()
	for metaRows.Next() {
		var userID, metaID, metaValue string
		if err := metaRows.Scan(&userID, &metaID, &metaValue); err != nil {
			return nil, storageError("error while loading user meta", err)
		}
		if user := byID[userID]; user != nil {
			user.MetaParameters[metaID] = metaValue
		}
	}
	return users, metaRows.Err()
}

// SetUserMeta replaces all meta parameters of the user atomically
func (c *Controller) SetUserMeta(ctx context.Context, userID string, meta map[string]string) error {
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM auth_user_meta WHERE user_id=$1", userID); err != nil {
			return err
		}
		return insertUserMeta(ctx, tx, userID, meta)
	})
	if err != nil {
		return storageError("error saving user meta in database", err)
	}
	return nil
}

func insertUserMeta(ctx context.Context, tx *sql.Tx, userID string, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}
	ids := make([]string, 0, len(meta))
	for id := range meta {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO auth_user_meta (user_id, meta_id, meta_value) VALUES ($1, $2, $3)",
			userID, id, meta[id]); err != nil {
			return err
		}
	}
	return nil
}

// GetUserParameters returns the server-side per-user settings
func (c *Controller) GetUserParameters(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT param_id, param_value FROM auth_user_parameters WHERE user_id=$1", userID)
	if err != nil {
		return nil, storageError("error while loading user parameters", err)
	}
	defer rows.Close()

	params := make(map[string]string)
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, storageError("error while loading user parameters", err)
		}
		params[id] = value
	}
	return params, rows.Err()
}

// SetUserParameter upserts one server-side setting; a nil value deletes it
func (c *Controller) SetUserParameter(ctx context.Context, userID, name string, value *string) error {
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if value == nil {
			_, err := tx.ExecContext(ctx,
				"DELETE FROM auth_user_parameters WHERE user_id=$1 AND param_id=$2",
				userID, name)
			return err
		}

		result, err := tx.ExecContext(ctx,
			"UPDATE auth_user_parameters SET param_value=$1 WHERE user_id=$2 AND param_id=$3",
			*value, userID, name)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO auth_user_parameters (user_id, param_id, param_value) VALUES ($1, $2, $3)",
				userID, name, *value)
		}
		return err
	})
	if err != nil {
		return storageError("error while updating user configuration", err)
	}
	return nil
}
