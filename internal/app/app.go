// Package app is the application layer between the CLI and the import
// service. It constructs all dependencies from config and manages the
// catalog lifecycle on Close.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"findex/internal/config"
	"findex/internal/database"
	"findex/internal/extract"
	"findex/internal/findex"
	"findex/internal/fs"
	"findex/internal/hash"
	"findex/internal/store"
	"findex/internal/watch"
)

// App wires config into a running import pipeline. The caller must
// call Close when done.
type App struct {
	cfg     *config.Config
	catalog findex.Catalog
	store   findex.ContentStore
	fsmgr   findex.FilesystemManager
	service *findex.ImportService
	logger  findex.Logger
	op      *ImportOperation
	logFile *os.File
}

// New creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Import", "Watch").
func New(cfg *config.Config, operation, parameters string) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager()
	filter := fs.NewFilter(cfg.Filter.Ignore, cfg.Filter.MaxSizeBytes)

	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating content store: %w", err)
	}

	mirror, err := store.NewMirrorFromConfig(context.Background(), cfg.Store.Mirror)
	if err != nil {
		return nil, fmt.Errorf("creating content mirror: %w", err)
	}

	catalog, err := database.NewCatalogFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating catalog: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		catalog.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	extractor := extract.NewRouter(cfg.Probe, cfg.Analysis, log)

	svc := findex.NewImportService(catalog, st, hash.New(), extractor, filter,
		fsmgr, mirror, log, findex.RealClock{}, findex.UUIDGenerator{}, cfg.HostID)

	return &App{
		cfg:     cfg,
		catalog: catalog,
		store:   st,
		fsmgr:   fsmgr,
		service: svc,
		logger:  log,
		op:      NewImportOperation(operation, parameters),
		logFile: logFile,
	}, nil
}

// MigrateUp brings the catalog schema up to date. Run it before any
// catalog-touching operation on a fresh data directory.
func (a *App) MigrateUp() error {
	sc, ok := a.catalog.(*database.SQLiteCatalog)
	if !ok {
		return nil
	}
	return sc.MigrateUp()
}

// persistOperation saves the import run to the catalog, giving it an
// auto-increment ID. Only catalog-mutating commands call this.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	run, err := a.catalog.CreateImportRun(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting import run: %w", err)
	}
	a.op.ID = run.ID
	return nil
}

// importOptions translates config plus CLI flags into pipeline options.
func (a *App) importOptions(flags ImportFlags) findex.ImportOptions {
	workers := a.cfg.Import.Workers
	if flags.Workers > 0 {
		workers = flags.Workers
	}
	return findex.ImportOptions{
		DeleteAfter:   flags.DeleteAfter,
		Recursive:     flags.Recursive,
		OnlyHardLink:  flags.OnlyHardLink,
		SecondaryHash: flags.SecondaryHash,
		Workers:       workers,
	}
}

// ImportFlags are the CLI-level knobs for an import invocation.
type ImportFlags struct {
	DeleteAfter   bool
	Recursive     bool
	OnlyHardLink  bool
	SecondaryHash bool
	Workers       int
}

// Import resolves and imports the given paths, returning batch stats.
func (a *App) Import(rawPaths []string, flags ImportFlags) (*findex.ImportStats, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	paths, err := resolvePaths(rawPaths)
	if err != nil {
		return nil, err
	}

	stats := a.service.ImportPaths(paths, a.importOptions(flags))
	if stats.Errored > 0 {
		a.op.Status = "error"
	}
	return stats, nil
}

// Watch imports everything already under the given roots, then blocks
// watching them until ctx is cancelled.
func (a *App) Watch(ctx context.Context, rawPaths []string, flags ImportFlags) error {
	if err := a.persistOperation(); err != nil {
		return err
	}

	roots, err := resolvePaths(rawPaths)
	if err != nil {
		return err
	}
	for _, root := range roots {
		if !a.fsmgr.IsDir(root) {
			return fmt.Errorf("watch root is not a directory: %s", root)
		}
	}

	w, err := watch.New(a.cfg.Watch, a.service, a.logger, a.importOptions(flags))
	if err != nil {
		return err
	}
	for _, root := range roots {
		if err := w.Add(root); err != nil {
			return err
		}
	}

	stats := w.ImportExisting(roots)
	a.logger.Info("initial scan complete",
		"imported", stats.Imported, "skipped", stats.Skipped, "errored", stats.Errored)

	w.Start()
	<-ctx.Done()
	return w.Stop()
}

// Status summarizes the catalog contents.
type Status struct {
	Files int64
	Paths int64
}

// GetStatus returns catalog counts.
func (a *App) GetStatus() (*Status, error) {
	files, err := a.catalog.CountFiles()
	if err != nil {
		return nil, err
	}
	paths, err := a.catalog.CountPaths()
	if err != nil {
		return nil, err
	}
	return &Status{Files: files, Paths: paths}, nil
}

// Close finalizes the import run record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.catalog.FinishImportRun(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing import run: %w", err)
		}
	}

	if err := a.catalog.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// resolvePaths makes every argument absolute.
func resolvePaths(rawPaths []string) ([]string, error) {
	paths := make([]string, 0, len(rawPaths))
	for _, raw := range rawPaths {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return nil, fmt.Errorf("resolving path %s: %w", raw, err)
		}
		paths = append(paths, abs)
	}
	return paths, nil
}
