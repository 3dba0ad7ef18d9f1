package findex

import (
	"errors"
	"fmt"
)

// Sentinel errors for the import pipeline. Callers classify per-file
// outcomes with errors.Is; none of these abort a batch.
var (
	// ErrFilteredOut means the file failed the eligibility check.
	// A deliberate skip, not a failure.
	ErrFilteredOut = errors.New("file does not meet import criteria")

	// ErrCancelled means the hash progress callback requested cancellation.
	// No catalog or store state was created for the file.
	ErrCancelled = errors.New("hashing cancelled")

	// ErrPathNotFound means the source vanished before or during import.
	ErrPathNotFound = errors.New("path does not exist")

	// ErrHashExists is returned by Catalog.CreateIndexedFile when a row
	// with the same hash already exists. The pipeline resolves it as a
	// dedup hit, never surfaces it.
	ErrHashExists = errors.New("indexed file with this hash already exists")

	// ErrCannotHardLink means placement was restricted to hard links but
	// source and store are on different filesystems.
	ErrCannotHardLink = errors.New("source and store are not on the same filesystem, cannot hardlink")
)

// ExtractionError reports a failed metadata extraction. It is non-fatal:
// the file is still indexed, marked corrupt, with empty metadata.
type ExtractionError struct {
	Path      string
	MediaType string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting metadata from %s (%s): %v", e.Path, e.MediaType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
