// Package watch turns filesystem events into imports. Events are
// debounced until the writer quiesces, duplicate events for a path are
// coalesced, and in-flight imports are drained on stop.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"findex/internal/config"
	"findex/internal/findex"
	"findex/internal/model"
)

// Importer is the import pipeline surface the watcher drives.
type Importer interface {
	ImportFile(path string, opts findex.ImportOptions) (*model.IndexedFile, bool, error)
	ImportPaths(paths []string, opts findex.ImportOptions) *findex.ImportStats
	ShouldImport(path string) bool
}

// Watcher observes directories and imports files as they appear or
// change. One Watcher may cover several roots; with the recursive
// option, subdirectories are registered too, including ones created
// while watching.
type Watcher struct {
	importer Importer
	logger   findex.Logger
	opts     findex.ImportOptions

	// settle is how long a path must be quiet before it is imported;
	// every new event for a pending path restarts the wait.
	settle time.Duration

	// coalesce suppresses re-import of a path right after an import
	// completed, absorbing the event echo our own processing causes.
	coalesce time.Duration

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	pending  map[string]*time.Timer // paths waiting out the settle delay
	inFlight map[string]struct{}    // paths currently being imported
	recent   map[string]time.Time   // paths inside the coalescing window

	wg      sync.WaitGroup
	loopWg  sync.WaitGroup
	stopped bool
}

// New creates a Watcher. Call Add for each root, then Start.
func New(cfg config.WatchConfig, importer Importer, logger findex.Logger, opts findex.ImportOptions) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	settle := time.Duration(cfg.SettleMS) * time.Millisecond
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	coalesce := time.Duration(cfg.CoalesceMS) * time.Millisecond
	if coalesce <= 0 {
		coalesce = 2 * time.Second
	}

	return &Watcher{
		importer: importer,
		logger:   logger,
		opts:     opts,
		settle:   settle,
		coalesce: coalesce,
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
		inFlight: make(map[string]struct{}),
		recent:   make(map[string]time.Time),
	}, nil
}

// Add registers root for watching. With the recursive option set, all
// of root's subdirectories are registered too.
func (w *Watcher) Add(root string) error {
	if !w.opts.Recursive {
		if err := w.fsw.Add(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		w.logger.Debug("watching directory", "path", root)
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// ImportExisting imports everything already present under the given
// roots, honoring the recursive option. Run it after Add and before
// Start so files that land during the scan are picked up either by the
// scan or by the watch.
func (w *Watcher) ImportExisting(roots []string) *findex.ImportStats {
	return w.importer.ImportPaths(roots, w.opts)
}

// Start launches the event loop. It returns immediately.
func (w *Watcher) Start() {
	w.loopWg.Add(1)
	go w.loop()
}

// Stop unregisters all watches, cancels pending settle timers and
// waits for in-flight imports to finish.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	w.loopWg.Wait()

	w.mu.Lock()
	w.stopped = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.loopWg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	info, err := os.Lstat(ev.Name)
	if err != nil {
		// Vanished before we looked: short-lived temp file, skip.
		return
	}

	if info.IsDir() {
		if ev.Has(fsnotify.Create) && w.opts.Recursive {
			w.watchNewDirectory(ev.Name)
		}
		return
	}

	w.schedule(ev.Name)
}

// watchNewDirectory registers a directory created while watching and
// imports any files that raced in before the watch took effect.
func (w *Watcher) watchNewDirectory(dir string) {
	if err := w.Add(dir); err != nil {
		w.logger.Warn("could not watch new directory", "path", dir, "error", err)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.schedule(filepath.Join(dir, entry.Name()))
		}
	}
}

// schedule queues path for import after the settle delay. A path that
// is already pending has its delay restarted; a path being imported or
// just imported is left alone.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if _, busy := w.inFlight[path]; busy {
		return
	}
	if since, seen := w.recent[path]; seen && time.Since(since) < w.coalesce {
		return
	}

	if timer, waiting := w.pending[path]; waiting {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.settled(path)
	})
}

// settled fires once a path has been quiet for the settle delay.
func (w *Watcher) settled(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = struct{}{}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.importOne(path)

		w.mu.Lock()
		delete(w.inFlight, path)
		w.recent[path] = time.Now()
		w.mu.Unlock()

		// Expire the coalescing entry so the map does not grow forever.
		time.AfterFunc(w.coalesce, func() {
			w.mu.Lock()
			if since, ok := w.recent[path]; ok && time.Since(since) >= w.coalesce {
				delete(w.recent, path)
			}
			w.mu.Unlock()
		})
	}()
}

func (w *Watcher) importOne(path string) {
	if !w.importer.ShouldImport(path) {
		w.logger.Debug("watched file filtered out", "path", path)
		return
	}

	if _, err := os.Lstat(path); err != nil {
		// Gone between event and import: nothing to do.
		w.logger.Debug("watched file vanished before import", "path", path)
		return
	}

	if _, _, err := w.importer.ImportFile(path, w.opts); err != nil {
		w.logger.Error("watch import failed", "path", path, "error", err)
	}
}
