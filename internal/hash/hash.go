// Package hash computes streaming content digests without buffering
// whole files.
package hash

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base32"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"findex/internal/findex"
)

// DefaultChunkSize bounds how much of a file is held in memory at once
// and is the granularity of progress reporting and cancellation.
const DefaultChunkSize = 64 * 1024

// FileHasher computes the primary SHA-512 digest and the optional legacy
// SHA-1 digest of a file, both encoded as unpadded base32.
type FileHasher struct {
	chunkSize int
}

// New creates a FileHasher with the default chunk size.
func New() *FileHasher {
	return &FileHasher{chunkSize: DefaultChunkSize}
}

// NewWithChunkSize creates a FileHasher reading in chunks of the given size.
func NewWithChunkSize(chunkSize int) *FileHasher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &FileHasher{chunkSize: chunkSize}
}

// HashFile hashes the file at path. progress, when non-nil, is invoked
// after every chunk with (bytes processed, total size); returning false
// aborts with findex.ErrCancelled and no digest is produced.
func (h *FileHasher) HashFile(path string, secondary bool, progress findex.ProgressFunc) (*findex.HashResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", findex.ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	total := int64(-1)
	if info, err := f.Stat(); err == nil {
		total = info.Size()
	}

	primary := sha512.New()
	hashers := []hash.Hash{primary}
	var legacy hash.Hash
	if secondary {
		legacy = sha1.New()
		hashers = append(hashers, legacy)
	}

	buf := make([]byte, h.chunkSize)
	var processed int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			for _, hs := range hashers {
				// hash.Hash.Write never returns an error
				hs.Write(buf[:n])
			}
			processed += int64(n)
			if progress != nil && !progress(processed, total) {
				return nil, findex.ErrCancelled
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
	}

	result := &findex.HashResult{
		Primary: EncodeDigest(primary.Sum(nil)),
		Size:    processed,
	}
	if legacy != nil {
		result.Secondary = EncodeDigest(legacy.Sum(nil))
	}
	return result, nil
}

// EncodeDigest renders a raw digest as unpadded base32, the encoding
// used for catalog keys and store locations.
func EncodeDigest(sum []byte) string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(sum), "=")
}

// Compile-time check that FileHasher implements findex.Hasher
var _ findex.Hasher = (*FileHasher)(nil)
