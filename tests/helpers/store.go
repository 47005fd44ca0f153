package helpers

import (
	"testing"

	store "github.com/xiaot623/gogo/insights/internal/repository"
)

// NewTestSQLiteStore opens an in-memory SQLite store closed at test cleanup.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
