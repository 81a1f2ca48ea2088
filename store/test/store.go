package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/otakulab/animesommelier/internal/profile"
	"github.com/otakulab/animesommelier/store"
	"github.com/otakulab/animesommelier/store/db/sqlite"
)

// NewTestingStore returns a Store backed by a throwaway SQLite file.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "animesommelier_test.db"),
	}

	driver, err := sqlite.NewDB(p)
	if err != nil {
		t.Fatalf("failed to open testing database: %v", err)
	}

	ts := store.New(driver, p)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate testing database: %v", err)
	}
	t.Cleanup(func() {
		_ = ts.Close()
	})
	return ts
}
