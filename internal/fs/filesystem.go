package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"

	"findex/internal/findex"
)

// OSFilesystemManager is the real filesystem implementation of
// FilesystemManager, performing actual operations via the os package.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a manager operating on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Stat returns current file info for a path.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a file.
func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// IsDir reports whether path is an existing directory.
func (m *OSFilesystemManager) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DetectMediaType sniffs the media type from file content.
func (m *OSFilesystemManager) DetectMediaType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting media type: %w", err)
	}
	return mt.String(), nil
}

// FindFiles discovers regular files under the given directory, sorted
// for deterministic processing order.
func (m *OSFilesystemManager) FindFiles(dir string, recursive bool) ([]string, error) {
	var paths []string

	if recursive {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			paths = append(paths, p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// Compile-time check that OSFilesystemManager implements findex.FilesystemManager
var _ findex.FilesystemManager = (*OSFilesystemManager)(nil)
