package handler

import (
	"net/http"

	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/CageChen/spoofdir/internal/listing"
	"github.com/gin-gonic/gin"
)

// RootInfo describes one base directory of the search path.
type RootInfo struct {
	Index int    `json:"index"`
	Dir   string `json:"dir"`
	Git   bool   `json:"git,omitempty"`
}

// GetRoots returns the search path in lookup order.
func (s *Server) GetRoots(c *gin.Context) {
	roots := s.search.Roots()
	infos := make([]RootInfo, 0, len(roots))
	for i, r := range roots {
		_, isGit := r.FS.(*mfs.GitFS)
		infos = append(infos, RootInfo{Index: i, Dir: r.Dir, Git: isGit})
	}
	c.JSON(http.StatusOK, gin.H{
		"confine": s.cfg.Confine,
		"roots":   infos,
	})
}

// GetListing returns a directory listing as JSON, filtered and sorted the
// same way as the HTML page.
func (s *Server) GetListing(c *gin.Context) {
	virtual := c.Param("path")

	entry, err := s.search.Resolve(virtual)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if !entry.Info.IsDir {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "not a directory",
		})
		return
	}

	policy, err := s.directoryPolicy(entry.FS, entry.Rel)
	if err != nil {
		logger.Error("list %s: %v", virtual, err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	l, index, err := listing.Scan(entry.FS, entry.Rel, policy, listing.Options{ListSubdirs: s.cfg.ListSubdirs})
	if err != nil {
		logger.Error("list %s: %v", virtual, err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if l == nil {
		l = &listing.Listing{}
	}
	title, _, err := s.annotate(policy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":     virtual,
		"root":     entry.Root,
		"physical": entry.Physical,
		"title":    title,
		"index":    index,
		"subdirs":  nonNil(l.Subdirs),
		"files":    nonNil(l.Files),
	})
}

func nonNil(entries []listing.Entry) []listing.Entry {
	if entries == nil {
		return []listing.Entry{}
	}
	return entries
}
