// Package backend selects and builds the key-value store the rule
// collection persists in.
package backend

import (
	"context"

	"budgetsplit/internal/kv"
)

// CleanupFunc releases resources owned by a backend.
type CleanupFunc func() error

// Result contains the store and an optional cleanup function.
type Result struct {
	Store   kv.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
}

// BackendType represents the kind of store backing the collection.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
