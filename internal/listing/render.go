package listing

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Colors are the banner and row colors of rendered pages.
type Colors struct {
	BannerBg   string
	BannerFg   string
	BannerLink string
	Rows       []string
}

// Signoff identifies the program in the closing banner.
type Signoff struct {
	Program string
	Version string
}

// Row is one rendered table row.
type Row struct {
	Href  string
	Label string
	Size  string
	Time  string
	Color string
}

// Page is the data for the directory listing template.
type Page struct {
	Dir        string // canonical virtual directory path, e.g. "/docs/"
	Title      string
	Annotation template.HTML
	Parents    []Crumb
	Current    string
	RootHref   string
	Rows       []Row
	Colors     Colors
	Signoff    Signoff
	Generated  string
	LiveReload string // websocket path; empty disables live reload
}

// NewPage lays out a listing: subdirectories first, then files, with row
// colors alternating across both groups.
func NewPage(dir string, l *Listing, colors Colors, signoff Signoff, now time.Time) *Page {
	parents, current := Breadcrumbs(dir)
	p := &Page{
		Dir:       dir,
		Parents:   parents,
		Current:   current,
		RootHref:  RootHref(dir),
		Colors:    colors,
		Signoff:   signoff,
		Generated: FormatTime(now),
	}

	color := func(i int) string {
		if len(colors.Rows) == 0 {
			return ""
		}
		return colors.Rows[i%len(colors.Rows)]
	}
	for _, d := range l.Subdirs {
		p.Rows = append(p.Rows, Row{
			Href:  escapeName(d.Name) + "/",
			Label: d.Name + "/",
			Size:  "(dir)",
			Color: color(len(p.Rows)),
		})
	}
	for _, f := range l.Files {
		row := Row{
			Href:  escapeName(f.Name),
			Label: f.Name,
			Size:  FormatSize(f.Size),
			Color: color(len(p.Rows)),
		}
		if f.ModTime != nil {
			row.Time = FormatTime(*f.ModTime)
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

// escapeName escapes an entry name for use as a relative link. A leading
// "./" keeps names containing ":" from being read as a URL scheme.
func escapeName(name string) string {
	return "./" + url.PathEscape(name)
}

// Message is the data for status pages such as 404 Not Found.
type Message struct {
	Title     string
	Heading   string
	Text      string
	Colors    Colors
	Signoff   Signoff
	Generated string
}

// Render writes the directory listing page.
func Render(w io.Writer, p *Page) error {
	return templates.ExecuteTemplate(w, "listing.html", p)
}

// RenderMessage writes a status page.
func RenderMessage(w io.Writer, m *Message) error {
	return templates.ExecuteTemplate(w, "message.html", m)
}
