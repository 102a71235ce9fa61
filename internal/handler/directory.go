package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"os"

	"github.com/CageChen/spoofdir/internal/config"
	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/CageChen/spoofdir/internal/listing"
	"github.com/CageChen/spoofdir/internal/rules"
	"github.com/gin-gonic/gin"
)

// listDirectory renders the listing of a resolved directory, or serves its
// index-like file when it has one.
func (s *Server) listDirectory(c *gin.Context, entry mfs.Entry, virtual string) {
	policy, err := s.directoryPolicy(entry.FS, entry.Rel)
	if err != nil {
		s.fail(c, err)
		return
	}

	l, index, err := listing.Scan(entry.FS, entry.Rel, policy, listing.Options{ListSubdirs: s.cfg.ListSubdirs})
	if err != nil {
		s.fail(c, err)
		return
	}
	if index != "" {
		s.sendFile(c, entry.FS, listing.Join(entry.Rel, index), policy)
		return
	}

	title, annotation, err := s.annotate(policy)
	if err != nil {
		s.fail(c, mfs.NewError(mfs.OpConfig, entry.FS.Physical(entry.Rel), mfs.ErrMisconfigured, err))
		return
	}

	page := listing.NewPage(virtual, l, s.colors(), s.signoff(), s.now())
	page.Title = title
	page.Annotation = annotation
	if s.hub != nil {
		page.LiveReload = ReservedPrefix + "/ws"
	}

	var buf bytes.Buffer
	if err := listing.Render(&buf, page); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// directoryPolicy returns the policy for one directory: the base policy with
// the directory's overlay file applied, if it has one. The result is only
// used for the current request.
func (s *Server) directoryPolicy(fsys mfs.FileSystem, rel string) (*rules.Policy, error) {
	if s.cfg.LocalConfig == "" {
		return s.policy, nil
	}
	overlayPath := listing.Join(rel, s.cfg.LocalConfig)
	data, err := fsys.ReadFile(overlayPath)
	if errors.Is(err, os.ErrNotExist) {
		return s.policy, nil
	}
	if err != nil {
		return nil, mfs.NewError(mfs.OpConfig, fsys.Physical(overlayPath), mfs.ErrMisconfigured, err)
	}

	o, err := config.ParseOverlay(data)
	if err != nil {
		return nil, mfs.NewError(mfs.OpConfig, fsys.Physical(overlayPath), mfs.ErrMisconfigured, err)
	}
	policy, err := s.policy.Overlay(o)
	if err != nil {
		return nil, mfs.NewError(mfs.OpConfig, fsys.Physical(overlayPath), mfs.ErrMisconfigured, err)
	}
	logger.Debug("applied %s", fsys.Physical(overlayPath))
	return policy, nil
}

// annotate returns the title and the annotation HTML for a listing.
// Markdown annotations supply the title from their first heading when the
// policy has none.
func (s *Server) annotate(policy *rules.Policy) (string, template.HTML, error) {
	title := policy.Title
	if policy.Annotation == "" {
		return title, "", nil
	}
	if policy.AnnotationFormat != config.FormatMarkdown {
		return title, template.HTML(policy.Annotation), nil
	}

	res, err := s.md.Render([]byte(policy.Annotation))
	if err != nil {
		return "", "", err
	}
	if title == "" {
		title = res.Title
	}
	return title, template.HTML(res.HTML), nil
}
