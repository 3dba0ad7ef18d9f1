package findex

import "sync"

// ImportOptions control one import invocation.
type ImportOptions struct {
	// DeleteAfter removes the source file after the content is durably
	// stored and recorded.
	DeleteAfter bool

	// Recursive expands directories in ImportPaths into their subtrees.
	Recursive bool

	// OnlyHardLink fails placement instead of copying across filesystems.
	OnlyHardLink bool

	// SecondaryHash additionally computes the legacy digest.
	SecondaryHash bool

	// HashProgress, when set, is invoked per hashed chunk and may cancel.
	HashProgress ProgressFunc

	// Workers bounds batch concurrency. Zero means one worker.
	Workers int

	// Derivation link applied to newly created files.
	DerivedFromHash string
	DerivedFor      string
}

// ImportStats aggregates the per-file outcomes of a batch import.
// Safe for concurrent update by batch workers.
type ImportStats struct {
	mu           sync.Mutex
	Imported     int // files processed successfully (created or dedup)
	Created      int // new unique content indexed
	Deduplicated int // content already known, new path recorded
	Skipped      int // filtered out, not failures
	Errored      int
	Errors       map[string]error // path -> failure
}

// NewImportStats returns an empty stats collector.
func NewImportStats() *ImportStats {
	return &ImportStats{Errors: make(map[string]error)}
}

func (s *ImportStats) addSuccess(created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Imported++
	if created {
		s.Created++
	} else {
		s.Deduplicated++
	}
}

func (s *ImportStats) addSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *ImportStats) addError(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errored++
	s.Errors[path] = err
}
