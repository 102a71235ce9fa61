package listing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Binary size units.
const (
	KB = 1024
	MB = KB * 1024
	GB = MB * 1024
)

// TimeLayout is the layout of listing timestamps; FormatTime appends " UTC".
const TimeLayout = "02 Jan 2006 15:04:05"

// FormatSize renders a byte count with the largest unit the value strictly
// exceeds, so exactly 1024 bytes is still "1024".
func FormatSize(bytes int64) string {
	switch {
	case bytes > GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes > MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes > KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return strconv.FormatInt(bytes, 10)
	}
}

// FormatTime renders t in UTC, e.g. "03 Sep 2000 14:05:09 UTC".
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout) + " UTC"
}

// Crumb is a link to an ancestor directory.
type Crumb struct {
	Name string
	Href string
}

// Breadcrumbs splits a canonical directory path such as "/one/two/three/"
// into links to its ancestors ("one" -> "../../", "two" -> "../") and the
// name of the directory itself ("three"). The root has no ancestors and an
// empty name.
func Breadcrumbs(dir string) (parents []Crumb, current string) {
	trimmed := strings.Trim(dir, "/")
	if trimmed == "" {
		return nil, ""
	}
	segs := strings.Split(trimmed, "/")
	for i, seg := range segs[:len(segs)-1] {
		parents = append(parents, Crumb{
			Name: seg,
			Href: strings.Repeat("../", len(segs)-1-i),
		})
	}
	return parents, segs[len(segs)-1]
}

// RootHref returns the relative link from a canonical directory path to
// the root of the virtual tree.
func RootHref(dir string) string {
	trimmed := strings.Trim(dir, "/")
	if trimmed == "" {
		return "./"
	}
	return strings.Repeat("../", strings.Count(trimmed, "/")+1)
}
