package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed external references to prevent duplicate
// application of webhooks and provider callbacks.
type IdempotencyStore interface {
	// MarkProcessed marks a reference as processed with a TTL.
	// Returns true if the reference was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, ref string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a reference has already been processed
	IsProcessed(ctx context.Context, ref string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
