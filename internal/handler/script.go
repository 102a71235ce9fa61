package handler

import (
	"fmt"
	"net/http"
	"net/http/cgi"
	"path/filepath"

	mfs "github.com/CageChen/spoofdir/internal/fs"
	"github.com/gin-gonic/gin"
)

// ScriptRunner executes a dynamic file instead of sending its source.
// script is the file's physical path on local disk.
type ScriptRunner interface {
	Run(w http.ResponseWriter, r *http.Request, script string) error
}

// CGIRunner runs scripts through an interpreter speaking CGI, such as
// php-cgi. The script's directory is the working directory.
type CGIRunner struct {
	Interpreter string
	Env         []string
}

// Run executes script and copies its CGI response to w. It reports an error
// when the interpreter could not be run or the script answered with a 5xx
// status; the response has already been written in that case.
func (r *CGIRunner) Run(w http.ResponseWriter, req *http.Request, script string) error {
	h := &cgi.Handler{
		Path: r.Interpreter,
		Dir:  filepath.Dir(script),
		Args: []string{script},
		Env: append([]string{
			"SCRIPT_FILENAME=" + script,
			"REDIRECT_STATUS=200",
		}, r.Env...),
	}
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	h.ServeHTTP(sw, req)
	if sw.status >= http.StatusInternalServerError {
		return fmt.Errorf("%s %s: status %d", r.Interpreter, script, sw.status)
	}
	return nil
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// runScript hands a dynamic file to the script runner. Without a runner,
// or for files that only exist inside a git ref, the request is refused so
// the script source is never sent.
func (s *Server) runScript(c *gin.Context, fsys mfs.FileSystem, rel string) {
	local, ok := fsys.(*mfs.LocalFS)
	if s.scripts == nil || !ok {
		s.fail(c, mfs.NewError(mfs.OpExec, fsys.Physical(rel), mfs.ErrForbidden, nil))
		return
	}

	script, err := filepath.Abs(local.Physical(rel))
	if err != nil {
		s.fail(c, mfs.NewError(mfs.OpExec, local.Physical(rel), mfs.ErrUnreadable, err))
		return
	}
	logger.Debug("exec %s", script)
	if err := s.scripts.Run(c.Writer, c.Request, script); err != nil {
		err = mfs.NewError(mfs.OpExec, script, mfs.ErrUnreadable, err)
		if c.Writer.Written() {
			logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			_ = c.Error(err)
			return
		}
		s.fail(c, err)
	}
}
