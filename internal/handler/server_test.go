package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CageChen/spoofdir/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

var fixedNow = time.Date(2024, time.February, 1, 9, 30, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

// writeTree creates files below root. Names ending in "/" become
// directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

type testServer struct {
	*Server
	engine *gin.Engine
}

// newTestServer serves dirs in order with the default configuration after
// mutate has adjusted it.
func newTestServer(t *testing.T, mutate func(*config.Config), dirs []string, opts ...Option) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	for _, d := range dirs {
		cfg.Dirs = append(cfg.Dirs, config.Folder{Path: d})
	}
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	srv, err := New(cfg, NewSearchPath(cfg), opts...)
	require.NoError(t, err)

	r := gin.New()
	srv.Register(r)
	return &testServer{Server: srv, engine: r}
}

func (ts *testServer) do(method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func (ts *testServer) get(target string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, target)
}

// links returns the hrefs of the anchors with the given class.
func links(t *testing.T, body, class string) []string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)

	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href, cls string
			for _, a := range n.Attr {
				switch a.Key {
				case "href":
					href = a.Val
				case "class":
					cls = a.Val
				}
			}
			if cls == class {
				out = append(out, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func TestNewRejectsBadRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Ignore = append(cfg.Ignore, config.Rule{Pattern: "("})
	_, err := New(cfg, NewSearchPath(cfg))
	require.Error(t, err)
}

func TestNewSearchPath(t *testing.T) {
	cfg := &config.Config{Dirs: []config.Folder{
		{Path: "/srv/a"},
		{Path: "/srv/repo", GitRef: "main", SubPath: "docs"},
		{Path: "/srv/b", SubPath: "pub"},
	}}
	roots := NewSearchPath(cfg).Roots()
	require.Len(t, roots, 3)
	assert.Equal(t, "/srv/a/", roots[0].Dir)
	assert.Equal(t, "/srv/repo@main:docs/", roots[1].Dir)
	assert.Equal(t, filepath.Join("/srv/b", "pub")+"/", roots[2].Dir)
}

func TestRelevant(t *testing.T) {
	ts := newTestServer(t, nil, []string{t.TempDir()})

	assert.True(t, ts.Relevant("a.txt"))
	assert.True(t, ts.Relevant("spoofdir.info"))
	assert.True(t, ts.Relevant("index.html"))
	assert.False(t, ts.Relevant("index.txt"))
	assert.False(t, ts.Relevant("spoofdir.yaml"))
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "alpha"})
	ts := newTestServer(t, nil, []string{root})
	ts.engine = gin.New()
	ts.engine.Use(RequestLogger(), APICORS())
	ts.Register(ts.engine)

	w := ts.get("/a.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = ts.get(ReservedPrefix + "/api/roots")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = ts.do(http.MethodOptions, ReservedPrefix+"/api/roots")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
