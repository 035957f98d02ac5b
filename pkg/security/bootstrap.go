package security

import (
	"context"
	"database/sql"
)

// InitializeMetaInformation registers every configured authentication
// provider that the store does not know yet, enabled. Already-registered
// providers are left untouched, so the call is safe to repeat on every
// startup.
func (c *Controller) InitializeMetaInformation(ctx context.Context) error {
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT provider_id FROM auth_provider")
		if err != nil {
			return err
		}
		registered := make(map[string]bool)
		for rows.Next() {
			var providerID string
			if err := rows.Scan(&providerID); err != nil {
				rows.Close()
				return err
			}
			registered[providerID] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, provider := range c.providers.Providers() {
			if registered[provider.ID] {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO auth_provider (provider_id, is_enabled) VALUES ($1, $2)",
				provider.ID, charBoolTrue); err != nil {
				return err
			}
			c.log.Debugf("Registered auth provider %s", provider.ID)
		}
		return nil
	})
	if err != nil {
		return storageError("error initializing security metadata", err)
	}
	return nil
}
