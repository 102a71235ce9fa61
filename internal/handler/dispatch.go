package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/CageChen/spoofdir/internal/listing"
	"github.com/gin-gonic/gin"
)

// Dispatch serves one virtual path: 404 when no base directory holds it,
// the file itself, a redirect to the "/"-terminated form of a directory
// URL, or the directory listing.
func (s *Server) Dispatch(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Header("Allow", "GET, HEAD")
		s.renderMessage(c, http.StatusMethodNotAllowed, "405 Method Not Allowed", "Method Not Allowed",
			fmt.Sprintf("The requested method %s is not allowed for the URL %s.", c.Request.Method, c.Request.URL.Path))
		return
	}

	virtual, legacy, ok := s.virtualPath(c.Request)
	if !ok {
		s.notFound(c, c.Request.URL.Path)
		return
	}

	entry, err := s.search.Resolve(virtual)
	if err != nil {
		if errors.Is(err, mfs.ErrNotFound) {
			s.notFound(c, s.displayURI(c.Request, virtual, legacy))
			return
		}
		s.fail(c, err)
		return
	}

	switch {
	case !entry.Info.IsDir:
		s.sendFile(c, entry.FS, entry.Rel, s.policy)
	case !strings.HasSuffix(virtual, "/"):
		// Relative links in the listing only resolve against a URL that
		// ends in "/".
		location := s.canonicalLocation(c.Request, virtual, legacy)
		logger.Debug("redirect %s -> %s", c.Request.URL.Path, location)
		c.Redirect(http.StatusFound, location)
	default:
		s.listDirectory(c, entry, virtual)
	}
}

// virtualPath extracts the virtual path from a request: the URL path below
// the mount prefix, or for the legacy "?/virtual/path" form, the query.
func (s *Server) virtualPath(r *http.Request) (virtual string, legacy bool, ok bool) {
	if strings.HasPrefix(r.URL.RawQuery, "/") {
		q, err := url.PathUnescape(r.URL.RawQuery)
		if err == nil {
			return q, true, true
		}
	}

	p := r.URL.Path
	prefix := s.cfg.Prefix
	if prefix == "" || prefix == "/" {
		return p, false, true
	}
	if p == prefix {
		return "", false, true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix):], false, true
	}
	return "", false, false
}

// canonicalLocation is the request URL with exactly one "/" appended to the
// path (or to the virtual path for legacy query-style requests).
func (s *Server) canonicalLocation(r *http.Request, virtual string, legacy bool) string {
	if legacy {
		segs := strings.Split(virtual, "/")
		for i, seg := range segs {
			segs[i] = url.PathEscape(seg)
		}
		return r.URL.EscapedPath() + "?" + strings.Join(segs, "/") + "/"
	}
	loc := r.URL.EscapedPath() + "/"
	if r.URL.RawQuery != "" {
		loc += "?" + r.URL.RawQuery
	}
	return loc
}

func (s *Server) displayURI(r *http.Request, virtual string, legacy bool) string {
	if legacy {
		return virtual
	}
	return r.URL.Path
}

// statusFor maps an error onto an HTTP status code. Unreadable directories
// and broken overlays are server faults whatever their underlying cause.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mfs.ErrUnreadable), errors.Is(err, mfs.ErrMisconfigured):
		return http.StatusInternalServerError
	case errors.Is(err, mfs.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, mfs.ErrTraversal), errors.Is(err, mfs.ErrForbidden), errors.Is(err, os.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) notFound(c *gin.Context, uri string) {
	logger.Debug("not found: %s", uri)
	s.renderMessage(c, http.StatusNotFound, "404 Not Found", "Not Found",
		fmt.Sprintf("The requested URL (%s) was not found on this server.", uri))
}

// fail aborts the request. The body stays generic; the cause is only logged.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusNotFound:
		s.notFound(c, c.Request.URL.Path)
	case http.StatusForbidden:
		logger.Warn("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		s.renderMessage(c, status, "403 Forbidden", "Forbidden",
			fmt.Sprintf("You don't have permission to access %s on this server.", c.Request.URL.Path))
	default:
		logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		s.renderMessage(c, status, "500 Internal Server Error", "Internal Server Error",
			"The server was unable to complete your request.")
	}
	_ = c.Error(err)
}

func (s *Server) renderMessage(c *gin.Context, status int, title, heading, text string) {
	var buf bytes.Buffer
	err := listing.RenderMessage(&buf, &listing.Message{
		Title:     title,
		Heading:   heading,
		Text:      text,
		Colors:    s.colors(),
		Signoff:   s.signoff(),
		Generated: listing.FormatTime(s.now()),
	})
	if err != nil {
		logger.Error("render %d page: %v", status, err)
		c.String(status, "%s\n", title)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
