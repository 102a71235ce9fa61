package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveFirstMatchWins(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(b, "x.txt"), "from b")
	writeFile(t, filepath.Join(a, "both.txt"), "from a")
	writeFile(t, filepath.Join(b, "both.txt"), "from b")

	sp := NewSearchPath([]Root{
		NewRoot(a, NewLocalFS(a)),
		NewRoot(b, NewLocalFS(b)),
	}, true)

	entry, err := sp.Resolve("x.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Root)
	assert.Equal(t, b+"/x.txt", entry.Physical)
	assert.False(t, entry.Info.IsDir)

	entry, err = sp.Resolve("/both.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Root)
	data, err := entry.FS.ReadFile(entry.Rel)
	require.NoError(t, err)
	assert.Equal(t, "from a", string(data))
}

func TestResolveNotFound(t *testing.T) {
	a := t.TempDir()
	sp := NewSearchPath([]Root{NewRoot(a, NewLocalFS(a))}, true)

	_, err := sp.Resolve("/missing/file.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var fsErr *Error
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, OpResolve, fsErr.Op)
	assert.Equal(t, "/missing/file.txt", fsErr.Path)
}

func TestResolveDirectoryKeepsTrailingSlash(t *testing.T) {
	a := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(a, "docs"), 0o755))
	sp := NewSearchPath([]Root{NewRoot(a+"/", NewLocalFS(a))}, true)

	entry, err := sp.Resolve("/docs/")
	require.NoError(t, err)
	assert.True(t, entry.Info.IsDir)
	assert.Equal(t, "docs", entry.Rel)
	assert.Equal(t, a+"/docs/", entry.Physical)

	entry, err = sp.Resolve("/")
	require.NoError(t, err)
	assert.True(t, entry.Info.IsDir)
	assert.Equal(t, "", entry.Rel)
}

func TestResolveTrailingSlashNeedsDirectory(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(a, "name", "x.txt"), "x")
	writeFile(t, filepath.Join(a, "a.txt"), "hello")
	writeFile(t, filepath.Join(b, "name"), "plain file")
	require.NoError(t, os.MkdirAll(filepath.Join(b, "only"), 0o755))
	writeFile(t, filepath.Join(a, "only"), "plain file")

	sp := NewSearchPath([]Root{
		NewRoot(a, NewLocalFS(a)),
		NewRoot(b, NewLocalFS(b)),
	}, true)

	_, err := sp.Resolve("/a.txt/")
	assert.True(t, errors.Is(err, ErrNotFound))

	// A file in an earlier root does not hide a directory in a later one.
	entry, err := sp.Resolve("/only/")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Root)
	assert.True(t, entry.Info.IsDir)

	entry, err = sp.Resolve("/name/")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Root)

	entry, err = sp.Resolve("/only")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Root)
	assert.False(t, entry.Info.IsDir)
}

func TestResolveTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.Mkdir(root, 0o755))
	writeFile(t, filepath.Join(parent, "secret.txt"), "secret")

	confined := NewSearchPath([]Root{NewRoot(root, NewLocalFS(root))}, true)
	_, err := confined.Resolve("/../secret.txt")
	assert.True(t, errors.Is(err, ErrTraversal))

	// "a..b" is an ordinary name, not a traversal.
	writeFile(t, filepath.Join(root, "a..b"), "ok")
	_, err = confined.Resolve("/a..b")
	assert.NoError(t, err)

	legacy := NewSearchPath([]Root{NewRoot(root, NewLocalFS(root))}, false)
	entry, err := legacy.Resolve("/../secret.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len("secret")), entry.Info.Size)
}

func TestNewSearchPathDefaultsToCurrentDirectory(t *testing.T) {
	sp := NewSearchPath(nil, true)
	roots := sp.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "./", roots[0].Dir)
}

func TestErrorMessage(t *testing.T) {
	err := NewError(OpReadDir, "/docs/", ErrUnreadable, os.ErrPermission)
	assert.Equal(t, "readdir /docs/: directory unreadable: permission denied", err.Error())
	assert.True(t, errors.Is(err, ErrUnreadable))
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestLocalFSReadDirAndOpen(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "bee")
	require.NoError(t, os.Mkdir(filepath.Join(root, "a"), 0o755))

	l := NewLocalFS(root)
	entries, err := l.ReadDir("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DirEntry{Name: "a", IsDir: true}, entries[0])
	assert.Equal(t, DirEntry{Name: "b.txt", IsDir: false}, entries[1])

	rc, err := l.Open("b.txt")
	require.NoError(t, err)
	defer rc.Close()
	buf := make([]byte, 3)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "bee", string(buf))
	assert.Equal(t, filepath.Join(root, "b.txt"), l.Physical("b.txt"))
}
