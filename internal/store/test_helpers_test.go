package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/sqlpath/internal/testutil"
)

type hymnal = testutil.Hymnal

func newHymnal(t *testing.T) *hymnal {
	t.Helper()
	h, err := testutil.NewHymnal()
	if err != nil {
		t.Fatalf("NewHymnal() failed: %v", err)
	}
	return h
}

// createTestStore opens a seeded SQLite database under t.TempDir().
func createTestStore(t *testing.T) (*Store, *hymnal) {
	t.Helper()
	h := newHymnal(t)

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, h.Registry)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Exec(context.Background(), testutil.SeedSQL); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return s, h
}
