package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CageChen/spoofdir/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "create", EventCreate.String())
	assert.Equal(t, "update", EventWrite.String())
	assert.Equal(t, "remove", EventRemove.String())
	assert.Equal(t, "rename", EventRename.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestParentDir(t *testing.T) {
	assert.Equal(t, "/", parentDir("/a.txt"))
	assert.Equal(t, "/docs/", parentDir("/docs/a.txt"))
	assert.Equal(t, "/docs/", parentDir("/docs/sub/"))
	assert.Equal(t, "/", parentDir("/"))
}

func TestVirtual(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	cfg := &config.Config{Dirs: []config.Folder{
		{Path: first},
		{Path: "/repo", GitRef: "main"},
		{Path: second},
	}}

	w, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.Equal(t, []string{first, second}, w.roots)

	v, ok := w.virtual(filepath.Join(first, "docs", "a.txt"))
	require.True(t, ok)
	assert.Equal(t, "/docs/a.txt", v)

	v, ok = w.virtual(second)
	require.True(t, ok)
	assert.Equal(t, "/", v)

	_, ok = w.virtual(filepath.Join(filepath.Dir(first), "elsewhere"))
	assert.False(t, ok)
}

func TestWatcherReportsVirtualPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	cfg := &config.Config{Dirs: []config.Folder{{Path: root}}}
	w, err := New(cfg, WithFilter(func(name string) bool { return name != "skip.tmp" }))
	require.NoError(t, err)

	events := make(chan Event, 16)
	w.OnChange(func(e Event) { events <- e })
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "skip.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("x"), 0o644))

	select {
	case e := <-events:
		assert.Equal(t, "/docs/a.txt", e.Path)
		assert.Equal(t, "/docs/", e.Dir)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
