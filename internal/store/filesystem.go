// Package store places content at hash-derived locations, exactly one
// physical copy per unique hash.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"findex/internal/findex"
)

// FileSystemStore is a filesystem implementation of the content store.
// Content lives at:
//
//	<root>/
//	  XX/
//	    YY/
//	      <hash>     (XX, YY = leading hash characters, bounds fan-out)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Root returns the store root directory.
func (s *FileSystemStore) Root() string { return s.root }

// Location returns the store-relative location for a hash.
func (s *FileSystemStore) Location(hash string) string {
	return filepath.Join(hash[0:2], hash[2:4], hash)
}

// TargetPath returns the absolute path content for hash is stored at.
func (s *FileSystemStore) TargetPath(hash string) string {
	return filepath.Join(s.root, s.Location(hash))
}

// Exists reports whether content for hash is present.
func (s *FileSystemStore) Exists(hash string) bool {
	info, err := os.Stat(s.TargetPath(hash))
	return err == nil && info.Mode().IsRegular()
}

// Place ensures exactly one physical copy of sourcePath's content exists
// at the hash's location. An existing target is a no-op. Placement
// prefers a same-filesystem hard link; otherwise the content is copied
// through a temp file and renamed into place atomically. Concurrent
// writers serialize at the rename: a loser observes the winner's file
// and succeeds.
func (s *FileSystemStore) Place(hash, sourcePath string, onlyHardLink bool) (bool, error) {
	target := s.TargetPath(hash)

	if s.Exists(hash) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return false, fmt.Errorf("creating shard directory: %w", err)
	}

	sameFS, err := onSameFilesystem(sourcePath, filepath.Dir(target))
	if err != nil {
		return false, fmt.Errorf("checking filesystems: %w", err)
	}

	if sameFS {
		err := os.Link(sourcePath, target)
		if err == nil {
			return true, nil
		}
		if os.IsExist(err) {
			// A concurrent writer linked first. Dedup hit, not an error.
			return false, nil
		}
		// Hard link refused (permissions, link limits); fall through to copy.
		if onlyHardLink {
			return false, fmt.Errorf("%w: link %s: %v", findex.ErrCannotHardLink, sourcePath, err)
		}
	} else if onlyHardLink {
		return false, fmt.Errorf("%w: %s", findex.ErrCannotHardLink, sourcePath)
	}

	return s.copyInto(sourcePath, target)
}

// copyInto copies src to target via a temp file in the target directory
// and an atomic rename. Partial temp artifacts are removed on failure.
func (s *FileSystemStore) copyInto(src, target string) (bool, error) {
	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, in); err != nil {
		tmpFile.Close()
		return false, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}

	// CreateTemp makes the file 0600; stored content should be readable
	// like the hard-linked case.
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return false, fmt.Errorf("failed to set temp file mode: %w", err)
	}

	// The rename is the single linearization point for concurrent writers.
	if err := os.Rename(tmpPath, target); err != nil {
		return false, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return true, nil
}

// onSameFilesystem reports whether src and an existing ancestor of dst
// live on the same device, which decides hard link vs copy.
func onSameFilesystem(src, dst string) (bool, error) {
	srcStat, err := os.Stat(src)
	if err != nil {
		return false, err
	}

	dstStat, err := os.Stat(dst)
	for err != nil && os.IsNotExist(err) {
		parent := filepath.Dir(dst)
		if parent == dst {
			break
		}
		dst = parent
		dstStat, err = os.Stat(dst)
	}
	if err != nil {
		return false, err
	}

	srcSys, ok1 := srcStat.Sys().(*syscall.Stat_t)
	dstSys, ok2 := dstStat.Sys().(*syscall.Stat_t)
	if !ok1 || !ok2 {
		return false, nil
	}
	return srcSys.Dev == dstSys.Dev, nil
}

// Compile-time check that FileSystemStore implements findex.ContentStore
var _ findex.ContentStore = (*FileSystemStore)(nil)
