package handler

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/CageChen/spoofdir/internal/rules"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// sendFile streams the file rel of fsys with the content type, disposition
// and caching headers the policy assigns to its name. Files matching a
// dynamic rule are executed by the script runner instead.
func (s *Server) sendFile(c *gin.Context, fsys mfs.FileSystem, rel string, policy *rules.Policy) {
	name := path.Base(rel)
	if policy.IsDynamic(name) {
		s.runScript(c, fsys, rel)
		return
	}

	info, err := fsys.Stat(rel)
	if err != nil {
		s.fail(c, mfs.NewError(mfs.OpOpen, fsys.Physical(rel), mfs.ErrNotFound, err))
		return
	}

	mime, known := policy.MimeType(name)
	if !known && s.cfg.SniffUnknown {
		if sniffed := sniff(fsys, rel); sniffed != "" {
			mime = sniffed
		}
	}
	disposition := policy.Disposition(mime)

	rc, err := fsys.Open(rel)
	if err != nil {
		s.fail(c, mfs.NewError(mfs.OpOpen, fsys.Physical(rel), mfs.ErrForbidden, err))
		return
	}
	defer rc.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%s", disposition, name),
	}
	if !policy.Cacheable(mime) {
		headers["Pragma"] = "no-cache"
		headers["Expires"] = "0"
	}

	logger.Debug("send %s as %s (%s)", fsys.Physical(rel), mime, disposition)
	c.DataFromReader(http.StatusOK, info.Size, fmt.Sprintf("%s; file=%s", mime, name), rc, headers)
}

// sniff detects the MIME type of a file from its first bytes. It returns
// "" when detection fails or finds nothing more specific than the default.
func sniff(fsys mfs.FileSystem, rel string) string {
	rc, err := fsys.Open(rel)
	if err != nil {
		return ""
	}
	defer rc.Close()

	m, err := mimetype.DetectReader(rc)
	if err != nil || m.Is("application/octet-stream") {
		return ""
	}
	// Table lookups are keyed by the bare type.
	base, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(base)
}
