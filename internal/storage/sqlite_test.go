package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fakhrymubarak/skyglow-weather/internal/recent"
)

func TestSQLiteSetAndGet(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "recent.db")

	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); err != recent.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", `["Paris"]`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "k", `["Tokyo","Paris"]`); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != `["Tokyo","Paris"]` {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestSQLitePersistsAcrossSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "recent.db")
	ctx := context.Background()

	first, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	store := recent.NewStore(first, "", 0)
	for _, city := range []string{"Lima", "Quito", "Lima"} {
		if _, err := store.Record(ctx, city); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	_ = first.Close()

	second, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	list := recent.NewStore(second, "", 0).Load(ctx)
	if len(list) != 2 || list[0] != "Lima" || list[1] != "Quito" {
		t.Fatalf("expected [Lima Quito], got %v", list)
	}
}
