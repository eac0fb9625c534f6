// Package cache persists acquired series so a previously saved copy
// can be served optimistically while refreshing, and as a last resort
// when every provider fails.
package cache

import (
	"context"
	"errors"
)

// ErrNotFound reports an absent key. Backends normalize their native
// not-found condition to it so callers can tell a miss from a failure.
var ErrNotFound = errors.New("cache: key not found")

// Backend is a flat key/value store the cache writes through.
type Backend interface {
	// Write stores data under the given key
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves the data stored under the given key
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns all keys matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data stored under the given key
	Delete(ctx context.Context, key string) error

	// Exists checks whether data exists under the given key
	Exists(ctx context.Context, key string) (bool, error)
}
