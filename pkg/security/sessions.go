package security

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IsSessionPersisted reports whether a session row with the id exists
func (c *Controller) IsSessionPersisted(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := c.db.DB().QueryRowContext(ctx,
		"SELECT 1 FROM auth_session WHERE session_id=$1", sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageError("error while searching session", err)
	}
	return true, nil
}

// CreateSession persists a new session owned by this instance. Creation and
// last-access timestamps start equal; empty user, address and agent values
// are stored as NULL.
func (c *Controller) CreateSession(ctx context.Context, session *Session) error {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.LastAccessTime = now
	session.LastRemoteAddress = truncate(session.LastRemoteAddress, maxRemoteAddressLen)
	session.LastRemoteUserAgent = truncate(session.LastRemoteUserAgent, maxUserAgentLen)
	session.InstanceID = c.db.InstanceID()

	_, err := c.db.DB().ExecContext(ctx, `
		INSERT INTO auth_session (session_id, user_id, create_time, last_access_time, last_access_remote_address, last_access_user_agent, last_access_instance_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID,
		nullString(session.UserID),
		session.CreatedAt,
		session.LastAccessTime,
		nullString(session.LastRemoteAddress),
		nullString(session.LastRemoteUserAgent),
		session.InstanceID)
	if err != nil {
		c.metrics.StorageErrorsTotal.WithLabelValues("sessions").Inc()
		return storageError("error creating session in database", err)
	}

	c.metrics.SessionWritesTotal.WithLabelValues("create").Inc()
	return nil
}

// UpdateSession refreshes the session's access metadata and reclaims it for
// this instance. Last writer wins across instances.
func (c *Controller) UpdateSession(ctx context.Context, session *Session) error {
	session.LastAccessTime = time.Now().UTC()
	session.LastRemoteAddress = truncate(session.LastRemoteAddress, maxRemoteAddressLen)
	session.LastRemoteUserAgent = truncate(session.LastRemoteUserAgent, maxUserAgentLen)
	session.InstanceID = c.db.InstanceID()

	result, err := c.db.DB().ExecContext(ctx, `
		UPDATE auth_session
		SET user_id=$1, last_access_time=$2, last_access_remote_address=$3, last_access_user_agent=$4, last_access_instance_id=$5
		WHERE session_id=$6`,
		nullString(session.UserID),
		session.LastAccessTime,
		nullString(session.LastRemoteAddress),
		nullString(session.LastRemoteUserAgent),
		session.InstanceID,
		session.ID)
	if err != nil {
		c.metrics.StorageErrorsTotal.WithLabelValues("sessions").Inc()
		return storageError("error updating session in database", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("error updating session in database", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q: %w", session.ID, ErrNotFound)
	}

	c.metrics.SessionWritesTotal.WithLabelValues("update").Inc()
	return nil
}

// DeleteSession removes the session row
func (c *Controller) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := c.db.DB().ExecContext(ctx,
		"DELETE FROM auth_session WHERE session_id=$1", sessionID)
	if err != nil {
		return storageError("error deleting session from database", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("error deleting session from database", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}

	c.metrics.SessionWritesTotal.WithLabelValues("delete").Inc()
	return nil
}

// PurgeStaleSessions deletes sessions last accessed before the cutoff and
// returns the number removed.
func (c *Controller) PurgeStaleSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := c.db.DB().ExecContext(ctx,
		"DELETE FROM auth_session WHERE last_access_time<$1", olderThan)
	if err != nil {
		return 0, storageError("error purging stale sessions", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, storageError("error purging stale sessions", err)
	}
	if purged > 0 {
		c.log.WithFields(map[string]interface{}{
			"purged": purged,
			"cutoff": olderThan.Format(time.RFC3339),
		}).Info("Purged stale sessions")
		c.metrics.SessionWritesTotal.WithLabelValues("purge").Add(float64(purged))
	}
	return purged, nil
}

// GetSession returns the persisted session state, or ErrNotFound
func (c *Controller) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session := &Session{}
	var userID, address, agent, instance sql.NullString
	err := c.db.DB().QueryRowContext(ctx, `
		SELECT session_id, user_id, create_time, last_access_time, last_access_remote_address, last_access_user_agent, last_access_instance_id
		FROM auth_session WHERE session_id=$1`, sessionID).
		Scan(&session.ID, &userID, &session.CreatedAt, &session.LastAccessTime, &address, &agent, &instance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, storageError("error while reading session", err)
	}
	session.UserID = userID.String
	session.LastRemoteAddress = address.String
	session.LastRemoteUserAgent = agent.String
	session.InstanceID = instance.String
	return session, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
