package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRun creates a run header with minimal valid fields.
func testRun(id string) Run {
	return Run{
		ID:             id,
		Period:         5,
		Capacity:       100,
		Dialect:        "en",
		MaxIngredients: 10,
	}
}
