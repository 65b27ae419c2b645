package shared

import (
	"context"
	"time"
)

// SessionStore holds short-lived serialized session state keyed by string.
// Reads refresh nothing; writes always reset the TTL.
type SessionStore interface {
	// Get returns the stored value and whether the key exists and is unexpired
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL, replacing any existing value
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
