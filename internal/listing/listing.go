// Package listing scans a directory into sorted subdirectory and file
// groups and renders them as the HTML pages served by spoofdir.
package listing

import (
	"sort"
	"strings"
	"time"

	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/CageChen/spoofdir/internal/logging"
	"github.com/CageChen/spoofdir/internal/rules"
)

var scanLogger = logging.GetLogger().WithPrefix("listing")

// Entry is one row of a directory listing.
type Entry struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Size    int64      `json:"size,omitempty"`
	ModTime *time.Time `json:"modTime,omitempty"`
}

// Entry types.
const (
	TypeDirectory = "directory"
	TypeFile      = "file"
)

// Listing is the content of one directory after filtering.
type Listing struct {
	Subdirs []Entry `json:"subdirs"`
	Files   []Entry `json:"files"`
}

// Options control which entries a scan keeps.
type Options struct {
	// ListSubdirs includes subdirectories in the listing.
	ListSubdirs bool
}

// Scan enumerates the directory rel of fsys once. If an entry matches an
// index rule the scan stops and its name is returned in index with a nil
// listing; the first match in enumeration order wins. Otherwise entries
// named "." or "..", or matching an ignore rule, are dropped and the rest
// are sorted case-insensitively within their group.
func Scan(fsys mfs.FileSystem, rel string, policy *rules.Policy, opts Options) (l *Listing, index string, err error) {
	entries, err := fsys.ReadDir(rel)
	if err != nil {
		return nil, "", mfs.NewError(mfs.OpReadDir, fsys.Physical(rel), mfs.ErrUnreadable, err)
	}

	l = &Listing{}
	for _, e := range entries {
		if !e.IsDir && policy.IsIndex(e.Name) {
			scanLogger.Debug("%s: index file %s", fsys.Physical(rel), e.Name)
			return nil, e.Name, nil
		}
		if e.Name == "." || e.Name == ".." || policy.Ignored(e.Name) {
			continue
		}

		if e.IsDir {
			if opts.ListSubdirs {
				l.Subdirs = append(l.Subdirs, Entry{Name: e.Name, Type: TypeDirectory})
			}
			continue
		}

		info, err := fsys.Stat(Join(rel, e.Name))
		if err != nil {
			// Removed between ReadDir and Stat.
			scanLogger.Debug("%s: skipping %s: %v", fsys.Physical(rel), e.Name, err)
			continue
		}
		modTime := info.ModTime
		l.Files = append(l.Files, Entry{
			Name:    e.Name,
			Type:    TypeFile,
			Size:    info.Size,
			ModTime: &modTime,
		})
	}

	sortEntries(l.Subdirs)
	sortEntries(l.Files)
	return l, "", nil
}

// Join appends name to the slash-separated relative directory rel.
func Join(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
