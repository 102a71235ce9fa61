// Package fs provides the filesystem abstraction behind the search path:
// base directories on local disk or inside a git ref, and the resolver that
// maps a virtual path onto the first base directory containing it.
package fs

import (
	"io"
	"time"
)

// FileInfo holds file metadata.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry represents a single directory entry.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem abstracts file operations so a search path can mix local
// directories and git refs. Paths are slash-separated and relative to the
// base directory; "" names the base directory itself.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Open(path string) (io.ReadCloser, error)
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)
	// Physical returns a human-readable physical location for path, used in
	// logs and error messages.
	Physical(path string) string
}
