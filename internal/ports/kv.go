package ports

import "context"

// KeyValue is the durable string-to-string substrate the config store is built
// on. Values are opaque to implementations; they store and return them verbatim.
type KeyValue interface {
	// Put writes value under key, replacing any prior value. The write MUST be
	// visible to subsequent Get/List calls once Put returns.
	Put(ctx context.Context, key, value string) error

	// Get returns the value for key.
	// MUST return types.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// List enumerates every key under prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	Delete(ctx context.Context, key string) error

	// ClearAll purges every key in this store's namespace. Used in tests only.
	ClearAll(ctx context.Context) error
}
