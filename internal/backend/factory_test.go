package backend

import (
	"context"
	"path/filepath"
	"testing"

	"budgetsplit/internal/config"
)

func TestCreateMemoryStore(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateStore(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create memory store: %v", err)
	}
	if res.Store == nil {
		t.Fatal("no store returned")
	}
	if res.Cleanup != nil {
		t.Fatal("memory store should not need cleanup")
	}
}

func TestCreateSQLiteStore(t *testing.T) {
	f := NewFactory(nil)
	res, err := f.CreateStore(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "budgetsplit.db"),
	})
	if err != nil {
		t.Fatalf("create sqlite store: %v", err)
	}
	if res.Store == nil || res.Cleanup == nil {
		t.Fatal("sqlite store needs both a store and a cleanup")
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestCreateStoreRejectsUnknownType(t *testing.T) {
	f := NewFactory(nil)
	if _, err := f.CreateStore(context.Background(), Config{Type: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend type")
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" {
		t.Fatalf("converted config = %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil app config should be rejected")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "bogus"}); err == nil {
		t.Fatal("bogus backend should be rejected")
	}
}
