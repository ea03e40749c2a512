package shared

import (
	"context"
	"time"
)

// LeaseStore grants short-lived exclusive claims on a key across replicas.
type LeaseStore interface {
	// Acquire claims key for ttl. It returns false when another holder owns the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops the claim early. Releasing an unknown key is not an error.
	Release(ctx context.Context, key string) error
	Close() error
}
