//go:build unix

package fs

import (
	"io/fs"
	"syscall"
	"time"

	"findex/internal/findex"
)

// StatTimes extracts mtime and ctime from a FileInfo. ctime falls back
// to mtime when the platform stat data is unavailable.
func (m *OSFilesystemManager) StatTimes(info fs.FileInfo) findex.StatTimes {
	times := findex.StatTimes{
		MTime: info.ModTime(),
		CTime: info.ModTime(),
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		times.CTime = time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
	}
	return times
}
