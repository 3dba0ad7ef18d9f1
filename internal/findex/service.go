package findex

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"findex/internal/model"
)

// ImportService is the orchestration layer of the import pipeline:
// filter, hash, dedup lookup, atomic placement, metadata extraction,
// catalog record. Invocations for distinct paths are independent and
// may run concurrently.
type ImportService struct {
	catalog   Catalog
	store     ContentStore
	hasher    Hasher
	extractor Extractor
	filter    FileFilter
	fsmgr     FilesystemManager
	mirror    Mirror // optional, may be nil
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	hostname  string
}

// NewImportService creates an ImportService with the provided dependencies.
// mirror may be nil when no content replication is configured.
func NewImportService(catalog Catalog, store ContentStore, hasher Hasher, extractor Extractor, filter FileFilter, fsmgr FilesystemManager, mirror Mirror, logger Logger, clock Clock, idgen IDGenerator, hostname string) *ImportService {
	return &ImportService{
		catalog:   catalog,
		store:     store,
		hasher:    hasher,
		extractor: extractor,
		filter:    filter,
		fsmgr:     fsmgr,
		mirror:    mirror,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		hostname:  hostname,
	}
}

// ShouldImport reports whether path passes the pre-hash eligibility check.
func (s *ImportService) ShouldImport(path string) bool {
	return s.filter.ShouldImport(path)
}

// ImportFile imports a single file.
//
// Returns the indexed file, whether new content was created, and an error.
// A filtered-out file returns (nil, false, ErrFilteredOut). A dedup hit
// returns the existing file with created=false and still records a new
// FilePath: new location evidence for known content is the point of the
// lookup. Extraction failures never fail the import; the file is marked
// corrupt instead.
func (s *ImportService) ImportFile(path string, opts ImportOptions) (*model.IndexedFile, bool, error) {
	// Stat before filtering: a vanished path is an error, never a skip.
	info, err := s.fsmgr.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}
	times := s.fsmgr.StatTimes(info)

	if !s.filter.ShouldImport(path) {
		s.logger.Debug("file filtered out", "path", path)
		return nil, false, ErrFilteredOut
	}

	hashes, err := s.hasher.HashFile(path, opts.SecondaryHash, opts.HashProgress)
	if err != nil {
		// Cancellation aborts only this file, with no partial state.
		return nil, false, fmt.Errorf("hashing %s: %w", path, err)
	}

	indexed, err := s.catalog.FindByHash(hashes.Primary)
	if err != nil {
		return nil, false, fmt.Errorf("catalog lookup: %w", err)
	}

	created := false
	if indexed == nil {
		indexed, created, err = s.indexNewContent(path, hashes, opts)
		if err != nil {
			return nil, false, err
		}
	} else {
		s.logger.Debug("content deduplicated", "path", path, "hash", hashes.Primary)
	}

	// Both branches record the path observation.
	err = s.catalog.AddPath(&model.FilePath{
		ID:         s.idgen.New(),
		FileHash:   indexed.Hash,
		Path:       path,
		Hostname:   s.hostname,
		MTime:      times.MTime,
		CTime:      times.CTime,
		ObservedAt: s.clock.Now(),
	})
	if err != nil {
		return indexed, created, fmt.Errorf("recording file path: %w", err)
	}

	if opts.DeleteAfter {
		if err := s.removeSource(path, indexed); err != nil {
			// The import itself succeeded; deletion failure is a warning.
			s.logger.Warn("could not delete source after import", "path", path, "error", err)
		}
	}

	if created {
		s.logger.Info("file indexed", "path", path, "hash", indexed.Hash)
	} else {
		s.logger.Info("file already indexed", "path", path, "hash", indexed.Hash)
	}
	return indexed, created, nil
}

// indexNewContent handles the new-content branch: place bytes in the
// store, extract metadata, create the catalog row. A concurrent writer
// winning the catalog insert is resolved as a dedup hit.
func (s *ImportService) indexNewContent(path string, hashes *HashResult, opts ImportOptions) (*model.IndexedFile, bool, error) {
	mediaType, err := s.fsmgr.DetectMediaType(path)
	if err != nil {
		s.logger.Warn("media type detection failed", "path", path, "error", err)
		mediaType = "application/octet-stream"
	}

	if _, err := s.store.Place(hashes.Primary, path, opts.OnlyHardLink); err != nil {
		return nil, false, fmt.Errorf("storing content: %w", err)
	}

	indexed := &model.IndexedFile{
		Hash:            hashes.Primary,
		SecondaryHash:   hashes.Secondary,
		Size:            hashes.Size,
		MediaType:       mediaType,
		Location:        s.store.Location(hashes.Primary),
		FirstSeen:       s.clock.Now(),
		DerivedFromHash: opts.DerivedFromHash,
		DerivedFor:      opts.DerivedFor,
	}

	md, extractErr := s.extractor.Extract(path, mediaType)
	if extractErr != nil {
		s.logger.Warn("metadata extraction failed, marking corrupt",
			"path", path, "media_type", mediaType, "error", extractErr)
		indexed.Corrupt = true
	} else {
		indexed.Metadata = md
	}

	err = s.catalog.CreateIndexedFile(indexed)
	if errors.Is(err, ErrHashExists) {
		// Lost the insert race to a concurrent importer: dedup hit.
		existing, ferr := s.catalog.FindByHash(hashes.Primary)
		if ferr != nil {
			return nil, false, fmt.Errorf("resolving hash conflict: %w", ferr)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("resolving hash conflict: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("creating indexed file: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Mirror(hashes.Primary, path); err != nil {
			s.logger.Warn("content mirror failed", "hash", hashes.Primary, "error", err)
		}
	}

	return indexed, true, nil
}

// removeSource deletes the import source, but only after verifying the
// stored copy actually exists.
func (s *ImportService) removeSource(path string, indexed *model.IndexedFile) error {
	if !s.store.Exists(indexed.Hash) {
		return fmt.Errorf("stored copy missing for %s, refusing to delete source", indexed.Hash)
	}
	if err := s.fsmgr.Remove(path); err != nil {
		return err
	}
	s.logger.Info("deleted source after import", "path", path)
	return nil
}

// ImportPaths imports files and directories. Each path is processed
// independently on a bounded worker pool; one failure never aborts the
// batch. Directories are expanded per opts.Recursive before filtering.
func (s *ImportService) ImportPaths(paths []string, opts ImportOptions) *ImportStats {
	stats := NewImportStats()

	files := s.expandPaths(paths, opts, stats)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, f := range files {
		g.Go(func() error {
			s.importInto(f, opts, stats)
			return nil
		})
	}
	// Workers never return errors; failures are collected in stats.
	_ = g.Wait()

	s.logger.Info("batch import complete",
		"imported", stats.Imported, "created", stats.Created,
		"deduplicated", stats.Deduplicated, "skipped", stats.Skipped,
		"errored", stats.Errored)
	return stats
}

// importInto runs one import and folds the outcome into stats.
func (s *ImportService) importInto(path string, opts ImportOptions, stats *ImportStats) {
	_, created, err := s.ImportFile(path, opts)
	switch {
	case err == nil:
		stats.addSuccess(created)
	case errors.Is(err, ErrFilteredOut):
		stats.addSkip()
	default:
		s.logger.Error("import failed", "path", path, "error", err)
		stats.addError(path, err)
	}
}

// expandPaths flattens the argument list into individual files.
// Missing paths are recorded as errors, unreadable directories too.
func (s *ImportService) expandPaths(paths []string, opts ImportOptions, stats *ImportStats) []string {
	var files []string
	for _, p := range paths {
		if s.fsmgr.IsDir(p) {
			found, err := s.fsmgr.FindFiles(p, opts.Recursive)
			if err != nil {
				stats.addError(p, fmt.Errorf("reading directory: %w", err))
				continue
			}
			files = append(files, found...)
			continue
		}
		if _, err := s.fsmgr.Stat(p); err != nil {
			stats.addError(p, fmt.Errorf("%w: %s", ErrPathNotFound, p))
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}
