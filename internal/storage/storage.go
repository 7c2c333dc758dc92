// Package storage provides the key-value backends that progress snapshots
// are persisted to. Every backend exposes the same small contract so the
// progress layer stays backend-agnostic.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("storage: key not found")

	// ErrCapacityExceeded is returned when a backend refuses a write
	// because it is out of space or over its configured quota.
	ErrCapacityExceeded = errors.New("storage: capacity exceeded")
)

// Store is a string-keyed blob store. Values are opaque byte slices;
// callers own serialization.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Keys returns every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
