// Package kv defines the key-value persistence port the rule
// repository stores its collection behind, plus an in-memory
// implementation for tests and the memory backend.
package kv

import "context"

// Store is a synchronous key-value store. Get reports absence through
// the boolean rather than an error; Set overwrites the whole value,
// which keeps every repository mutation an atomic read-then-overwrite
// of the entire collection.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
