// Package store provides the durable key-value storage the session
// manager persists identifiers in.
package store

import (
	"context"
	"errors"
)

// Keys used by the session manager.
const (
	GuestUserIDKey    = "guestUserId"
	threadIDKeyPrefix = "threadId_"
)

// ErrEmptyKey is returned for operations on the empty key.
var ErrEmptyKey = errors.New("store: empty key")

// ThreadIDKey returns the key under which userID's thread id is stored.
func ThreadIDKey(userID string) string {
	return threadIDKeyPrefix + userID
}

// Store is a string key-value store scoped to this client's environment.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key. A missing key yields ok == false and
	// a nil error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
