package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tmerge/internal/testutil"
)

// createTestStore creates a new store in a temporary directory with
// deterministic key generation.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithKeyGenerator(testutil.NewSequentialKeyGenerator()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
