package cache

import (
	"time"
)

// CacheService represents a generic cache service. The extractor uses it to
// remember that the target site rate-limited us, so sweeps short-circuit
// instead of hammering the site until the block expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
