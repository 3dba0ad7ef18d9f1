package fs

import (
	"os"
	"path/filepath"
	"strings"

	"findex/internal/findex"
)

// temporarySuffixes are file name endings that mark in-progress writes.
var temporarySuffixes = []string{".tmp", ".temp", "~", ".part", ".crdownload"}

// Filter is the pre-hash eligibility check. It is deliberately cheap:
// one stat, no file content is read.
type Filter struct {
	ignore  *IgnoreMatcher
	maxSize int64 // 0 = unlimited
}

// NewFilter creates a Filter with extra user-configured ignore patterns
// on top of the built-in hidden/temporary-file rules.
func NewFilter(ignorePatterns []string, maxSize int64) *Filter {
	return &Filter{
		ignore:  NewIgnoreMatcher(ignorePatterns),
		maxSize: maxSize,
	}
}

// ShouldImport reports whether the file at path is eligible for import.
// Hidden names, temporary-file patterns, zero-byte files, non-regular
// entries and ignored patterns are all rejected. Runs before hashing.
func (f *Filter) ShouldImport(path string) bool {
	if path == "" {
		return false
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}

	lower := strings.ToLower(base)
	for _, suffix := range temporarySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}

	if f.ignore.Match(path) {
		return false
	}

	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}
	if info.Size() == 0 {
		return false
	}
	if f.maxSize > 0 && info.Size() > f.maxSize {
		return false
	}

	return true
}

// Compile-time check that Filter implements findex.FileFilter
var _ findex.FileFilter = (*Filter)(nil)
