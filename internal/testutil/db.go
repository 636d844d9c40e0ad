// Package testutil provides test database setup and run record builders.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"trackreg/internal/infrastructure/sqlite"
)

// NewTestDB creates a migrated registry database in a temp directory,
// closed when the test completes. The database is file-backed rather than
// :memory: so every pooled connection sees the same store.
func NewTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db
}
