// Package storage defines the durable key-value store and its implementations.
package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by writes that would push the store past its
// byte quota. The write is not applied.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// UpdateFunc receives the current value of a key (found is false when the
// key is absent) and returns the value to store.
type UpdateFunc func(old string, found bool) (string, error)

// Storage is the interface for all persistence operations.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error

	// Update reads and rewrites key atomically with respect to other
	// writers of the same store.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// BytesInUse returns the total size of all stored keys and values.
	BytesInUse(ctx context.Context) (int64, error)

	Close() error
}
