package ports

import (
	"context"
	"swelter/internal/types"
)

// ConfigStore is the durable mapping from user ID to configuration record.
// Implementations seal the secret token on Put and open it on Get/List; the
// plaintext token never reaches the backing KeyValue store.
type ConfigStore interface {
	// Put validates and persists a record, replacing any prior one for the key.
	// MUST return a types.ErrValidation error if a required field is empty.
	Put(ctx context.Context, cfg types.UserConfig) error

	// Get returns the decrypted record for userID.
	// MUST return types.ErrNotFound if no record exists, and types.ErrDecryption
	// (not absence) if the stored envelope cannot be opened.
	Get(ctx context.Context, userID string) (types.UserConfig, error)

	// List enumerates every stored record, decrypting each. A decryption or
	// parse failure for one entry does not abort the others; skipped reports
	// how many entries were dropped that way.
	List(ctx context.Context) (configs []types.UserConfig, skipped int, err error)

	Delete(ctx context.Context, userID string) error
}
