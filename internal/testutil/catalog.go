package testutil

import (
	"testing"

	"findex/internal/database"
)

// NewTestCatalog creates an in-memory SQLite catalog with the schema
// applied. The catalog is automatically closed when the test completes.
func NewTestCatalog(t *testing.T) *database.SQLiteCatalog {
	t.Helper()

	catalog, err := database.NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	if err := catalog.MigrateUp(); err != nil {
		catalog.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		catalog.Close()
	})

	return catalog
}
