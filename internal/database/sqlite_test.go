package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"findex/internal/findex"
	"findex/internal/model"
)

// newTestCatalog creates an in-memory catalog with schema applied.
func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()

	catalog, err := NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
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

func testFile(hash string) *model.IndexedFile {
	return &model.IndexedFile{
		Hash:      hash,
		Size:      1234,
		MediaType: "image/png",
		Location:  "HA/SH/" + hash,
		FirstSeen: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC),
	}
}

func testPath(id, hash, path string) *model.FilePath {
	now := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	return &model.FilePath{
		ID:         id,
		FileHash:   hash,
		Path:       path,
		Hostname:   "testhost",
		MTime:      now,
		CTime:      now,
		ObservedAt: now,
	}
}

func TestOpenConnection(t *testing.T) {
	t.Run("pooled connections share the in-memory catalog", func(t *testing.T) {
		c := newTestCatalog(t)

		// Hold a transaction so a concurrent call cannot reuse its
		// connection. The call must still see the same database and
		// succeed once the transaction releases.
		tx, err := c.db.Begin()
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}

		done := make(chan error, 1)
		go func() {
			done <- c.CreateIndexedFile(testFile("HASHTX"))
		}()

		time.Sleep(50 * time.Millisecond)
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}

		if err := <-done; err != nil {
			t.Fatalf("CreateIndexedFile() during open transaction error = %v", err)
		}
		found, err := c.FindByHash("HASHTX")
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		if found == nil {
			t.Fatal("file created on one connection not visible on another")
		}
	})

	t.Run("pragmas apply to fresh pooled connections", func(t *testing.T) {
		c, err := NewSQLiteCatalog(filepath.Join(t.TempDir(), "catalog.db"))
		if err != nil {
			t.Fatalf("NewSQLiteCatalog() error = %v", err)
		}
		defer c.Close()
		if err := c.MigrateUp(); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}

		// Force the next statements onto brand-new connections.
		c.db.SetMaxIdleConns(0)

		var foreignKeys int
		if err := c.db.QueryRow(`PRAGMA foreign_keys`).Scan(&foreignKeys); err != nil {
			t.Fatalf("reading foreign_keys: %v", err)
		}
		if foreignKeys != 1 {
			t.Errorf("foreign_keys = %d on fresh connection, want 1", foreignKeys)
		}

		var busyTimeout int
		if err := c.db.QueryRow(`PRAGMA busy_timeout`).Scan(&busyTimeout); err != nil {
			t.Fatalf("reading busy_timeout: %v", err)
		}
		if busyTimeout != 5000 {
			t.Errorf("busy_timeout = %d on fresh connection, want 5000", busyTimeout)
		}

		// With enforcement on, a path referencing an unknown hash must fail.
		if err := c.AddPath(testPath("p1", "NOSUCHHASH", "/data/a.png")); err == nil {
			t.Error("AddPath() with unknown file hash succeeded, want foreign key failure")
		}
	})
}

func TestSQLiteCatalog_FindByHash(t *testing.T) {
	t.Run("returns nil when not found", func(t *testing.T) {
		c := newTestCatalog(t)

		f, err := c.FindByHash("UNKNOWN")
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		if f != nil {
			t.Errorf("FindByHash() = %v, want nil", f)
		}
	})

	t.Run("finds created file", func(t *testing.T) {
		c := newTestCatalog(t)

		created := testFile("HASH1")
		created.SecondaryHash = "LEGACY1"
		if err := c.CreateIndexedFile(created); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}

		found, err := c.FindByHash("HASH1")
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindByHash() returned nil, want file")
		}
		if found.Hash != "HASH1" {
			t.Errorf("Hash = %v, want HASH1", found.Hash)
		}
		if found.SecondaryHash != "LEGACY1" {
			t.Errorf("SecondaryHash = %v, want LEGACY1", found.SecondaryHash)
		}
		if found.Size != 1234 {
			t.Errorf("Size = %v, want 1234", found.Size)
		}
		if found.MediaType != "image/png" {
			t.Errorf("MediaType = %v, want image/png", found.MediaType)
		}
	})

	t.Run("round-trips metadata", func(t *testing.T) {
		c := newTestCatalog(t)

		created := testFile("HASH2")
		created.Metadata = &model.Metadata{
			Image: &model.ImageInfo{Width: 800, Height: 600, Thumbhash: "d:abc", Animated: true},
		}
		if err := c.CreateIndexedFile(created); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}

		found, err := c.FindByHash("HASH2")
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		if found.Metadata == nil || found.Metadata.Image == nil {
			t.Fatal("metadata missing after round-trip")
		}
		img := found.Metadata.Image
		if img.Width != 800 || img.Height != 600 || img.Thumbhash != "d:abc" || !img.Animated {
			t.Errorf("image metadata = %+v, want original values", img)
		}
	})
}

func TestSQLiteCatalog_CreateIndexedFile(t *testing.T) {
	t.Run("duplicate hash returns ErrHashExists", func(t *testing.T) {
		c := newTestCatalog(t)

		if err := c.CreateIndexedFile(testFile("HASH1")); err != nil {
			t.Fatalf("first CreateIndexedFile() error = %v", err)
		}
		err := c.CreateIndexedFile(testFile("HASH1"))
		if !errors.Is(err, findex.ErrHashExists) {
			t.Errorf("second CreateIndexedFile() error = %v, want ErrHashExists", err)
		}
	})

	t.Run("stores derivation link", func(t *testing.T) {
		c := newTestCatalog(t)

		if err := c.CreateIndexedFile(testFile("ORIGINAL")); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}
		derived := testFile("DERIVED")
		derived.DerivedFromHash = "ORIGINAL"
		derived.DerivedFor = model.DerivedForThumbnail
		if err := c.CreateIndexedFile(derived); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}

		found, err := c.FindByHash("DERIVED")
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		if found.DerivedFromHash != "ORIGINAL" || found.DerivedFor != model.DerivedForThumbnail {
			t.Errorf("derivation = (%q, %q), want (ORIGINAL, thumbnail)",
				found.DerivedFromHash, found.DerivedFor)
		}
	})
}

func TestSQLiteCatalog_AddPath(t *testing.T) {
	t.Run("records path observations", func(t *testing.T) {
		c := newTestCatalog(t)
		if err := c.CreateIndexedFile(testFile("HASH1")); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}

		if err := c.AddPath(testPath("p1", "HASH1", "/data/a.png")); err != nil {
			t.Fatalf("AddPath() error = %v", err)
		}
		if err := c.AddPath(testPath("p2", "HASH1", "/data/b.png")); err != nil {
			t.Fatalf("AddPath() error = %v", err)
		}

		n, err := c.CountPaths()
		if err != nil {
			t.Fatalf("CountPaths() error = %v", err)
		}
		if n != 2 {
			t.Errorf("CountPaths() = %d, want 2", n)
		}
	})

	t.Run("re-observing same path is a no-op", func(t *testing.T) {
		c := newTestCatalog(t)
		if err := c.CreateIndexedFile(testFile("HASH1")); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}

		if err := c.AddPath(testPath("p1", "HASH1", "/data/a.png")); err != nil {
			t.Fatalf("first AddPath() error = %v", err)
		}
		if err := c.AddPath(testPath("p2", "HASH1", "/data/a.png")); err != nil {
			t.Fatalf("second AddPath() error = %v", err)
		}

		n, err := c.CountPaths()
		if err != nil {
			t.Fatalf("CountPaths() error = %v", err)
		}
		if n != 1 {
			t.Errorf("CountPaths() = %d, want 1 after duplicate observation", n)
		}
	})

	t.Run("same path on another host is new evidence", func(t *testing.T) {
		c := newTestCatalog(t)
		if err := c.CreateIndexedFile(testFile("HASH1")); err != nil {
			t.Fatalf("CreateIndexedFile() error = %v", err)
		}

		if err := c.AddPath(testPath("p1", "HASH1", "/data/a.png")); err != nil {
			t.Fatalf("first AddPath() error = %v", err)
		}
		other := testPath("p2", "HASH1", "/data/a.png")
		other.Hostname = "otherhost"
		if err := c.AddPath(other); err != nil {
			t.Fatalf("second AddPath() error = %v", err)
		}

		n, err := c.CountPaths()
		if err != nil {
			t.Fatalf("CountPaths() error = %v", err)
		}
		if n != 2 {
			t.Errorf("CountPaths() = %d, want 2 for distinct hosts", n)
		}
	})
}

func TestSQLiteCatalog_MarkCorrupt(t *testing.T) {
	c := newTestCatalog(t)
	if err := c.CreateIndexedFile(testFile("HASH1")); err != nil {
		t.Fatalf("CreateIndexedFile() error = %v", err)
	}

	if err := c.MarkCorrupt("HASH1"); err != nil {
		t.Fatalf("MarkCorrupt() error = %v", err)
	}

	found, err := c.FindByHash("HASH1")
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if !found.Corrupt {
		t.Error("Corrupt = false, want true after MarkCorrupt")
	}
}

func TestSQLiteCatalog_UpdateMetadata(t *testing.T) {
	c := newTestCatalog(t)

	f := testFile("HASH1")
	f.Corrupt = true
	if err := c.CreateIndexedFile(f); err != nil {
		t.Fatalf("CreateIndexedFile() error = %v", err)
	}

	md := &model.Metadata{Video: &model.VideoStreamInfo{Codec: "h264", Width: 1920, Height: 1080}}
	if err := c.UpdateMetadata("HASH1", md); err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}

	found, err := c.FindByHash("HASH1")
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if found.Corrupt {
		t.Error("Corrupt = true, want cleared after successful metadata update")
	}
	if found.Metadata == nil || found.Metadata.Video == nil || found.Metadata.Video.Codec != "h264" {
		t.Errorf("metadata = %+v, want h264 video info", found.Metadata)
	}
}

func TestSQLiteCatalog_ImportRuns(t *testing.T) {
	c := newTestCatalog(t)

	run, err := c.CreateImportRun("Import", "/data")
	if err != nil {
		t.Fatalf("CreateImportRun() error = %v", err)
	}
	if run.ID == 0 {
		t.Error("ID = 0, want auto-increment ID")
	}
	if run.Status != "running" {
		t.Errorf("Status = %v, want running", run.Status)
	}

	if err := c.FinishImportRun(run.ID, "success"); err != nil {
		t.Fatalf("FinishImportRun() error = %v", err)
	}

	runs, err := c.ListImportRuns(10)
	if err != nil {
		t.Fatalf("ListImportRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Status != "success" {
		t.Errorf("Status = %v, want success", runs[0].Status)
	}
	if runs[0].FinishedAt == nil {
		t.Error("FinishedAt = nil, want timestamp after finish")
	}
}

func TestSQLiteCatalog_Counts(t *testing.T) {
	c := newTestCatalog(t)

	n, err := c.CountFiles()
	if err != nil {
		t.Fatalf("CountFiles() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountFiles() = %d, want 0 on empty catalog", n)
	}

	if err := c.CreateIndexedFile(testFile("HASH1")); err != nil {
		t.Fatalf("CreateIndexedFile() error = %v", err)
	}
	if err := c.CreateIndexedFile(testFile("HASH2")); err != nil {
		t.Fatalf("CreateIndexedFile() error = %v", err)
	}

	n, err = c.CountFiles()
	if err != nil {
		t.Fatalf("CountFiles() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountFiles() = %d, want 2", n)
	}
}
