package fs

import (
	"io"
	"os"
	"path/filepath"
)

// LocalFS implements FileSystem using the local filesystem.
type LocalFS struct {
	root string
}

// NewLocalFS creates a LocalFS rooted at the given directory.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: root}
}

// Root returns the directory the LocalFS is rooted at.
func (l *LocalFS) Root() string {
	return l.root
}

func (l *LocalFS) abs(path string) string {
	if path == "" || path == "." {
		return l.root
	}
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Physical returns the on-disk path for path.
func (l *LocalFS) Physical(path string) string {
	return l.abs(path)
}

// ReadFile reads the contents of the file at the given path relative to the root.
func (l *LocalFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(l.abs(path))
}

// Open opens the file at the given path relative to the root for streaming.
func (l *LocalFS) Open(path string) (io.ReadCloser, error) {
	return os.Open(l.abs(path))
}

// Stat returns metadata for the file or directory at the given path relative to the root.
func (l *LocalFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(l.abs(path))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ReadDir lists the immediate children of the directory at the given path
// relative to the root, in name order.
func (l *LocalFS) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(l.abs(path))
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, len(entries))
	for i, e := range entries {
		isDir := e.IsDir()
		// Follow symlinks so linked directories list as directories.
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(l.abs(path), e.Name())); err == nil {
				isDir = info.IsDir()
			}
		}
		result[i] = DirEntry{
			Name:  e.Name(),
			IsDir: isDir,
		}
	}
	return result, nil
}
