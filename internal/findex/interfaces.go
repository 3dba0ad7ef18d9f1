package findex

import (
	"io"
	"io/fs"
	"time"

	"findex/internal/model"
)

// ProgressFunc is invoked once per hashed chunk with the number of bytes
// processed so far and the total size when known (-1 otherwise).
// Returning false cancels hashing immediately.
type ProgressFunc func(processed, total int64) bool

// HashResult carries the digests of one file.
type HashResult struct {
	Primary   string // unpadded base32 SHA-512
	Secondary string // unpadded base32 SHA-1, empty unless requested
	Size      int64  // bytes hashed
}

// Hasher computes streaming content digests.
type Hasher interface {
	// HashFile hashes the file at path in bounded chunks. When progress
	// returns false the hash is aborted and ErrCancelled is returned.
	// secondary requests the additional legacy digest.
	HashFile(path string, secondary bool, progress ProgressFunc) (*HashResult, error)
}

// ContentStore places content at its hash-derived location.
type ContentStore interface {
	// Place ensures exactly one physical copy of the file at sourcePath
	// exists at the location derived from hash. Idempotent; a concurrent
	// writer losing the placement race still returns success. placed is
	// false when the target already existed. onlyHardLink refuses to fall
	// back to a copy across filesystems (ErrCannotHardLink).
	Place(hash, sourcePath string, onlyHardLink bool) (placed bool, err error)

	// Location returns the store-relative location for a hash.
	Location(hash string) string

	// Exists reports whether content for hash is present in the store.
	Exists(hash string) bool
}

// Mirror replicates newly stored content to a secondary location.
// Mirror failures are logged, never treated as import failures.
type Mirror interface {
	Mirror(hash, sourcePath string) error
}

// Extractor derives type-specific metadata for a file. A nil metadata
// with nil error means the type is unsupported (not an error).
type Extractor interface {
	Extract(path, mediaType string) (*model.Metadata, error)
}

// FileFilter is the cheap pre-hash eligibility check.
type FileFilter interface {
	ShouldImport(path string) bool
}

// StatTimes carries the filesystem timestamps recorded on a FilePath.
type StatTimes struct {
	MTime time.Time
	CTime time.Time
}

// FilesystemManager abstracts file access so the pipeline is testable
// without touching the real filesystem.
type FilesystemManager interface {
	// Stat returns current file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// StatTimes extracts mtime and ctime from a FileInfo.
	StatTimes(info fs.FileInfo) StatTimes

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Remove deletes a file.
	Remove(path string) error

	// DetectMediaType sniffs the media type of a file from its content.
	DetectMediaType(path string) (string, error)

	// FindFiles lists regular files under dir, sorted, optionally recursive.
	FindFiles(dir string, recursive bool) ([]string, error)

	// IsDir reports whether path is an existing directory.
	IsDir(path string) bool
}
