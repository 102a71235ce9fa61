package fs

import (
	"strings"

	"github.com/CageChen/spoofdir/internal/logging"
)

var resolveLogger = logging.GetLogger().WithPrefix("resolve")

// Root is one base directory of a search path.
type Root struct {
	// Dir is the display form of the base directory; it always ends in "/".
	Dir string
	FS  FileSystem
}

// NewRoot creates a Root, normalizing dir to end with a separator.
func NewRoot(dir string, fsys FileSystem) Root {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return Root{Dir: dir, FS: fsys}
}

// Entry is the result of resolving a virtual path.
type Entry struct {
	Root     int        // index of the base directory that matched
	FS       FileSystem // filesystem of that base directory
	Rel      string     // slash-separated path relative to the base, without trailing "/"
	Physical string     // base directory joined with the virtual path
	Info     FileInfo
}

// SearchPath is an ordered list of base directories. The first base
// directory containing a virtual path wins.
type SearchPath struct {
	roots   []Root
	confine bool
}

// NewSearchPath creates a search path over roots. An empty list falls back
// to the current directory. With confine set, virtual paths containing ".."
// segments are rejected instead of being joined verbatim.
func NewSearchPath(roots []Root, confine bool) *SearchPath {
	if len(roots) == 0 {
		roots = []Root{NewRoot(".", NewLocalFS("."))}
	}
	cp := make([]Root, len(roots))
	copy(cp, roots)
	return &SearchPath{roots: cp, confine: confine}
}

// Roots returns the base directories in search order.
func (s *SearchPath) Roots() []Root {
	cp := make([]Root, len(s.roots))
	copy(cp, s.roots)
	return cp
}

// Resolve finds the first base directory containing virtualPath. It
// re-checks the filesystem on every call.
func (s *SearchPath) Resolve(virtualPath string) (Entry, error) {
	find := strings.TrimPrefix(virtualPath, "/")

	if s.confine && hasDotDot(find) {
		return Entry{}, NewError(OpResolve, virtualPath, ErrTraversal, nil)
	}

	rel := strings.TrimSuffix(find, "/")
	wantDir := rel != find
	for i, root := range s.roots {
		info, err := root.FS.Stat(rel)
		if err != nil {
			resolveLogger.Trace("%s: not in %s (%v)", virtualPath, root.Dir, err)
			continue
		}
		// "name/" only names a directory.
		if wantDir && !info.IsDir {
			resolveLogger.Trace("%s: not a directory in %s", virtualPath, root.Dir)
			continue
		}
		resolveLogger.Debug("%s: found in %s", virtualPath, root.Dir)
		return Entry{
			Root:     i,
			FS:       root.FS,
			Rel:      rel,
			Physical: root.Dir + find,
			Info:     info,
		}, nil
	}
	return Entry{}, NewError(OpResolve, virtualPath, ErrNotFound, nil)
}

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
