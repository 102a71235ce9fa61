// Package handler provides the HTTP handlers that serve the virtual tree:
// the dispatcher, file sender, directory lister, JSON API and live-reload
// websocket.
package handler

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/CageChen/spoofdir/internal/config"
	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/CageChen/spoofdir/internal/listing"
	"github.com/CageChen/spoofdir/internal/logging"
	"github.com/CageChen/spoofdir/internal/markdown"
	"github.com/CageChen/spoofdir/internal/rules"
	"github.com/gin-gonic/gin"
)

// ReservedPrefix is the URL prefix of spoofdir's own endpoints. Virtual
// paths under it are shadowed when the tree is mounted at "/".
const ReservedPrefix = "/_spoofdir"

// Program and Version identify the server in page sign-offs. Version is
// set at build time with -ldflags.
var (
	Program = "spoofdir"
	Version = "dev"
)

var logger = logging.GetLogger().WithPrefix("handler")

// Server serves the virtual tree described by a configuration.
type Server struct {
	cfg     *config.Config
	search  *mfs.SearchPath
	policy  *rules.Policy
	md      *markdown.Parser
	scripts ScriptRunner
	hub     *WSHandler
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithScriptRunner sets the runner for files matching a dynamic rule.
func WithScriptRunner(r ScriptRunner) Option {
	return func(s *Server) { s.scripts = r }
}

// WithLiveReload enables the websocket endpoint and the reload script in
// rendered listings.
func WithLiveReload(h *WSHandler) Option {
	return func(s *Server) { s.hub = h }
}

// WithClock overrides the time source used for sign-off timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server. The base policy is compiled once here and never
// modified afterwards.
func New(cfg *config.Config, search *mfs.SearchPath, opts ...Option) (*Server, error) {
	policy, err := rules.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	s := &Server{
		cfg:    cfg,
		search: search,
		policy: policy,
		md:     markdown.NewParser(),
		now:    time.Now,
	}
	if cfg.ScriptInterpreter != "" {
		s.scripts = &CGIRunner{Interpreter: cfg.ScriptInterpreter}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register adds the server's routes to r. Every path not claimed by the
// API goes to the dispatcher.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group(ReservedPrefix + "/api")
	{
		api.GET("/roots", s.GetRoots)
		api.GET("/list/*path", s.GetListing)
	}
	if s.hub != nil {
		r.GET(ReservedPrefix+"/ws", s.hub.HandleWS)
	}
	r.NoRoute(s.Dispatch)
}

// Relevant reports whether a change to the named entry can alter a served
// page. Ignored names are hidden from listings, except for the overlay file
// and index files which change what a directory shows.
func (s *Server) Relevant(name string) bool {
	if name == s.cfg.LocalConfig || s.policy.IsIndex(name) {
		return true
	}
	return !s.policy.Ignored(name)
}

// fsForFolder returns the appropriate FileSystem for a folder config.
func fsForFolder(folder config.Folder) mfs.FileSystem {
	if folder.GitRef != "" {
		return mfs.NewGitFS(folder.Path, folder.GitRef, folder.SubPath)
	}
	return mfs.NewLocalFS(filepath.Join(folder.Path, folder.SubPath))
}

// displayDir is the physical name of a folder shown in logs and the API.
func displayDir(folder config.Folder) string {
	if folder.GitRef != "" {
		return folder.Path + "@" + folder.GitRef + ":" + folder.SubPath
	}
	return filepath.Join(folder.Path, folder.SubPath)
}

// NewSearchPath builds the search path from the configured folders.
func NewSearchPath(cfg *config.Config) *mfs.SearchPath {
	roots := make([]mfs.Root, 0, len(cfg.Dirs))
	for _, f := range cfg.Dirs {
		roots = append(roots, mfs.NewRoot(displayDir(f), fsForFolder(f)))
	}
	return mfs.NewSearchPath(roots, cfg.Confine)
}

func (s *Server) colors() listing.Colors {
	return listing.Colors{
		BannerBg:   s.cfg.BannerBgColor,
		BannerFg:   s.cfg.BannerFgColor,
		BannerLink: s.cfg.BannerLinkColor,
		Rows:       s.cfg.RowColors,
	}
}

func (s *Server) signoff() listing.Signoff {
	return listing.Signoff{Program: Program, Version: Version}
}
