package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hubforge/homehub/internal/infrastructure/database"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "state.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLiteStore(context.Background(), db.DB)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return s
}

func TestLoadMissingRecord(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := map[string]any{
		"name":        "lamp1",
		"state":       "ON",
		"brightness":  float64(200),
		"last_update": map[string]any{"unix": float64(1700000000), "human": "2023-11-14 22:13:20"},
	}
	if err := s.Save(ctx, "lamp1", doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := s.Load(ctx, "lamp1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("loaded document differs:\ngot  %v\nwant %v", got, doc)
	}
}

func TestSaveReplacesWholeDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "plug1", map[string]any{"relay": true, "power": float64(42)}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := s.Save(ctx, "plug1", map[string]any{"relay": false}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := s.Load(ctx, "plug1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got["relay"] != false {
		t.Errorf("relay = %v, want false", got["relay"])
	}
	if _, found := got["power"]; found {
		t.Error("save must replace the whole document, power should be gone")
	}
}

func TestNamesSorted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Save(ctx, name, map[string]any{"name": name}); err != nil {
			t.Fatalf("save %s failed: %v", name, err)
		}
	}

	names, err := s.Names(ctx)
	if err != nil {
		t.Fatalf("names failed: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "plug1", map[string]any{"relay": true}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.Delete(ctx, "plug1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Load(ctx, "plug1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// A second delete of the same record is not an error.
	if err := s.Delete(ctx, "plug1"); err != nil {
		t.Fatalf("repeated delete failed: %v", err)
	}
}
