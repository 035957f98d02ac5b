package security

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/consoleworks/authcore/pkg/authprov"
	"github.com/consoleworks/authcore/pkg/observability"
)

// SetUserCredentials replaces all stored credentials of the user under the
// provider with the given set. The credential profile is selected from the
// submitted parameter names; parameters unknown to the selected profile are
// dropped, and known values are transformed per their declared encryption
// scheme before storage.
func (c *Controller) SetUserCredentials(ctx context.Context, userID string, provider *authprov.Descriptor, credentials map[string]string) error {
	profile := provider.ProfileByParameters(credentialKeys(credentials))
	if profile == nil {
		return fmt.Errorf("%w: provider %q has no credential profile", ErrInvalidCredentials, provider.ID)
	}

	stored := make(map[string]string)
	for name, value := range credentials {
		property := profile.Parameter(name)
		if property == nil {
			continue
		}
		transformed, err := c.cipher.Encrypt(property.Encryption, userID, value)
		if err != nil {
			return fmt.Errorf("%w: parameter %q: %v", ErrInvalidCredentials, name, err)
		}
		stored[name] = transformed
	}

	names := make([]string, 0, len(stored))
	for name := range stored {
		names = append(names, name)
	}
	sort.Strings(names)

	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM auth_user_credentials WHERE user_id=$1 AND provider_id=$2",
			userID, provider.ID); err != nil {
			return err
		}
		for _, name := range names {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO auth_user_credentials (user_id, provider_id, cred_id, cred_value) VALUES ($1, $2, $3, $4)",
				userID, provider.ID, name, stored[name]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageError("error saving user credentials in database", err)
	}

	c.metrics.CredentialWritesTotal.WithLabelValues(provider.ID).Inc()
	return nil
}

// GetUserCredentials returns the stored credentials of the user under the
// provider, values exactly as persisted.
func (c *Controller) GetUserCredentials(ctx context.Context, userID, providerID string) (map[string]string, error) {
	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT cred_id, cred_value FROM auth_user_credentials WHERE user_id=$1 AND provider_id=$2",
		userID, providerID)
	if err != nil {
		return nil, storageError("error while reading user credentials", err)
	}
	defer rows.Close()

	credentials := make(map[string]string)
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, storageError("error while reading user credentials", err)
		}
		credentials[id] = value
	}
	return credentials, rows.Err()
}

// GetUserByCredentials resolves the user whose stored credentials match every
// identifying parameter of the provider's selected profile. It returns the
// empty string without error when no user matches, and ErrAccountLocked when
// the matched user is inactive.
func (c *Controller) GetUserByCredentials(ctx context.Context, provider *authprov.Descriptor, credentials map[string]string) (string, error) {
	profile := provider.ProfileByParameters(credentialKeys(credentials))
	if profile == nil {
		return "", fmt.Errorf("%w: provider %q has no credential profile", ErrInvalidCredentials, provider.ID)
	}

	identifying := make(map[string]string)
	for _, property := range profile.Parameters {
		if !property.Identifying {
			continue
		}
		value, ok := credentials[property.ID]
		if !ok {
			c.metrics.CredentialLookupsTotal.WithLabelValues(provider.ID, observability.LookupOutcomeRejected).Inc()
			return "", fmt.Errorf("%w: authentication parameter %q is missing", ErrInvalidCredentials, property.ID)
		}
		// Identifying values are matched by equality against stored rows,
		// so only identity schemes are usable here.
		switch property.Encryption {
		case authprov.EncryptionNone, authprov.EncryptionPlain, "":
		default:
			c.metrics.CredentialLookupsTotal.WithLabelValues(provider.ID, observability.LookupOutcomeRejected).Inc()
			return "", fmt.Errorf("%w: identifying parameter %q is not stored in searchable form", ErrInvalidCredentials, property.ID)
		}
		identifying[property.ID] = value
	}
	if len(identifying) == 0 {
		c.metrics.CredentialLookupsTotal.WithLabelValues(provider.ID, observability.LookupOutcomeRejected).Inc()
		return "", fmt.Errorf("%w: no identifying credentials in provider %q", ErrInvalidCredentials, provider.ID)
	}

	ids := make([]string, 0, len(identifying))
	for id := range identifying {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// One pair of placeholders per identifying parameter, ORed together;
	// matches are regrouped per user below.
	var conditions []string
	args := []interface{}{provider.ID}
	arg := 2
	for _, id := range ids {
		conditions = append(conditions, fmt.Sprintf("(c.cred_id=$%d AND c.cred_value=$%d)", arg, arg+1))
		args = append(args, id, identifying[id])
		arg += 2
	}
	query := fmt.Sprintf(`
		SELECT c.user_id, c.cred_id, u.is_active
		FROM auth_user_credentials c, auth_user u
		WHERE c.provider_id=$1 AND c.user_id=u.user_id AND (%s)`,
		strings.Join(conditions, " OR "))

	rows, err := c.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		c.metrics.StorageErrorsTotal.WithLabelValues("credentials").Inc()
		return "", storageError("error while searching credentials", err)
	}
	defer rows.Close()

	matched := make(map[string]map[string]bool)
	active := make(map[string]bool)
	for rows.Next() {
		var userID, credID, isActive string
		if err := rows.Scan(&userID, &credID, &isActive); err != nil {
			return "", storageError("error while searching credentials", err)
		}
		if matched[userID] == nil {
			matched[userID] = make(map[string]bool)
		}
		matched[userID][credID] = true
		active[userID] = isActive == charBoolTrue
	}
	if err := rows.Err(); err != nil {
		return "", storageError("error while searching credentials", err)
	}

	// A user qualifies only when every identifying parameter matched
	var candidates []string
	for userID, creds := range matched {
		if len(creds) == len(identifying) {
			candidates = append(candidates, userID)
		}
	}
	if len(candidates) == 0 {
		c.metrics.CredentialLookupsTotal.WithLabelValues(provider.ID, observability.LookupOutcomeNoMatch).Inc()
		return "", nil
	}
	sort.Strings(candidates)
	if len(candidates) > 1 {
		c.log.WithFields(map[string]interface{}{
			"provider": provider.ID,
			"users":    strings.Join(candidates, ","),
		}).Warn("Multiple users associated with the same credentials!")
		c.metrics.CredentialAnomaliesTotal.Inc()
	}

	userID := candidates[0]
	if !active[userID] {
		c.metrics.CredentialLookupsTotal.WithLabelValues(provider.ID, observability.LookupOutcomeLocked).Inc()
		return "", fmt.Errorf("user %q: %w", userID, ErrAccountLocked)
	}
	c.metrics.CredentialLookupsTotal.WithLabelValues(provider.ID, observability.LookupOutcomeMatched).Inc()
	return userID, nil
}

// GetUserLinkedProviders returns the ids of providers the user has stored
// credentials under.
func (c *Controller) GetUserLinkedProviders(ctx context.Context, userID string) ([]string, error) {
	rows, err := c.db.DB().QueryContext(ctx,
		"SELECT DISTINCT provider_id FROM auth_user_credentials WHERE user_id=$1 ORDER BY provider_id",
		userID)
	if err != nil {
		return nil, storageError("error while reading linked providers", err)
	}
	defer rows.Close()

	var providerIDs []string
	for rows.Next() {
		var providerID string
		if err := rows.Scan(&providerID); err != nil {
			return nil, storageError("error while reading linked providers", err)
		}
		providerIDs = append(providerIDs, providerID)
	}
	return providerIDs, rows.Err()
}

func credentialKeys(credentials map[string]string) []string {
	keys := make([]string, 0, len(credentials))
	for key := range credentials {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
