// Package watcher monitors the local roots of the search path and reports
// changes by virtual path.
package watcher

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CageChen/spoofdir/internal/config"
	"github.com/CageChen/spoofdir/internal/logging"
	"github.com/fsnotify/fsnotify"
)

var logger = logging.GetLogger().WithPrefix("watcher")

// EventType represents the type of file system event
type EventType int

// File system event types.
const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

// String returns the name used for the event on the wire.
func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "update"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change below one of the watched roots.
type Event struct {
	Type EventType
	Path string // virtual path, e.g. "/docs/a.txt"
	Dir  string // virtual directory listing Path, e.g. "/docs/"
}

// Callback is a function called when file changes occur
type Callback func(Event)

// Filter reports whether a change to the named entry is worth reporting.
type Filter func(name string) bool

// Watcher monitors file system changes in the local search-path roots.
type Watcher struct {
	watcher   *fsnotify.Watcher
	roots     []string
	filter    Filter
	callbacks []Callback
	mu        sync.RWMutex
	done      chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithFilter drops events for entries the filter rejects.
func WithFilter(f Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// New creates a watcher over the configured folders. Folders served from a
// git ref are skipped since they read from the object database.
func New(cfg *config.Config, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		done:    make(chan struct{}),
	}
	for _, folder := range cfg.Dirs {
		if folder.GitRef != "" {
			continue
		}
		w.roots = append(w.roots, filepath.Join(folder.Path, folder.SubPath))
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnChange registers a callback for file change events
func (w *Watcher) OnChange(cb Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start adds every directory below the roots and begins delivering events.
func (w *Watcher) Start() error {
	for _, root := range w.roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(p); err != nil {
				logger.Warn("cannot watch %s: %v", p, err)
			}
			return nil
		})
		if err != nil {
			logger.Warn("failed to walk %s: %v", root, err)
		}
	}

	go w.eventLoop()
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watch: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.filter != nil && !w.filter(filepath.Base(event.Name)) {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreate
		// New directories need their own watch.
		if isDir(event.Name) {
			_ = w.watcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventWrite
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRename
	default:
		return
	}

	virtual, ok := w.virtual(event.Name)
	if !ok {
		return
	}
	e := Event{
		Type: eventType,
		Path: virtual,
		Dir:  parentDir(virtual),
	}
	logger.Trace("%s %s", eventType, virtual)

	w.mu.RLock()
	callbacks := make([]Callback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range callbacks {
		cb(e)
	}
}

// virtual maps a physical path onto the virtual tree using the first root
// that contains it.
func (w *Watcher) virtual(physical string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, physical)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rel == "." {
			return "/", true
		}
		return "/" + filepath.ToSlash(rel), true
	}
	return "", false
}

// parentDir returns the "/"-terminated virtual directory containing p.
func parentDir(p string) string {
	dir := path.Dir(strings.TrimSuffix(p, "/"))
	if dir == "/" || dir == "." {
		return "/"
	}
	return dir + "/"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
