// Package cache provides TTL-based caching, used to pre-index contract item
// resolution results per (ctid, agid).
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrExpired  = errors.New("key expired")
)

// Cache provides TTL-based key-value storage.
type Cache interface {
	// Get retrieves a value by key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. If TTL is 0, use default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix. Used to
	// invalidate all cached resolutions of one contract in a single call.
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists checks if a key exists and is not expired.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources.
	Close() error
}

// TTLResolution is the default TTL for cached item-resolution results.
const TTLResolution = 5 * time.Minute

// DriverFactory creates a cache from its driver-specific config table.
type DriverFactory func(config map[string]any) Cache

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// RegisterDriver registers a cache driver factory by name.
func RegisterDriver(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// NewFromConfig creates a cache using the named driver and its config table
// from [cache.drivers.<driver>].
func NewFromConfig(driver string, driverConfigs map[string]map[string]any) (Cache, error) {
	driversMu.RLock()
	factory, ok := drivers[driver]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown cache driver: %s", driver)
	}

	return factory(driverConfigs[driver]), nil
}
