package findex

import "findex/internal/model"

// Catalog provides an interface for the durable record store.
// All methods must be safe for concurrent use by multiple import workers.
type Catalog interface {
	// FindByHash returns the indexed file with the given primary hash,
	// or nil if no such file exists.
	FindByHash(hash string) (*model.IndexedFile, error)

	// CreateIndexedFile inserts a new indexed file. Returns ErrHashExists
	// when a row with the same hash already exists; callers treat that as
	// a dedup hit, not a failure.
	CreateIndexedFile(f *model.IndexedFile) error

	// AddPath records a path observation for an indexed file. Re-observing
	// an existing (hash, path, host) triple is a no-op.
	AddPath(p *model.FilePath) error

	// MarkCorrupt flags an indexed file whose metadata extraction failed.
	MarkCorrupt(hash string) error

	// UpdateMetadata replaces the metadata payload of an indexed file.
	UpdateMetadata(hash string, md *model.Metadata) error

	// Import run tracking

	// CreateImportRun records the start of an import invocation.
	CreateImportRun(operation, parameters string) (*model.ImportRun, error)

	// FinishImportRun stamps an import run as finished with the given status.
	FinishImportRun(id int64, status string) error

	// Status reporting

	// CountFiles returns the number of indexed files.
	CountFiles() (int64, error)

	// CountPaths returns the number of recorded path observations.
	CountPaths() (int64, error)

	// Close closes the underlying connection.
	Close() error
}
