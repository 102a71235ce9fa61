package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CageChen/spoofdir/internal/config"
)

func basePolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := New(config.DefaultConfig())
	require.NoError(t, err)
	return p
}

func TestRuleSetCaseSensitivity(t *testing.T) {
	rs, err := Compile([]config.Rule{
		{Pattern: `^README$`, CaseSensitive: true},
		{Pattern: `\.bak$`, CaseSensitive: false},
	})
	require.NoError(t, err)

	assert.True(t, rs.Match("README"))
	assert.False(t, rs.Match("readme"))
	assert.True(t, rs.Match("notes.BAK"))
	assert.False(t, rs.Match("notes.txt"))
	assert.Equal(t, 2, rs.Len())
}

func TestCompileRejectsBadPattern(t *testing.T) {
	_, err := Compile([]config.Rule{{Pattern: `([unclosed`}})
	assert.Error(t, err)
}

func TestNilRuleSet(t *testing.T) {
	var rs *RuleSet
	assert.False(t, rs.Match("anything"))
	assert.Zero(t, rs.Len())
	assert.Nil(t, rs.Rules())
}

func TestMimeType(t *testing.T) {
	p := basePolicy(t)

	tests := []struct {
		name string
		mime string
		ok   bool
	}{
		{"page.html", "text/html", true},
		{"PAGE.HTM", "text/html", true},
		{"notes.txt", "text/plain", true},
		{"archive.tar.gz", "application/octet-stream", false},
		{"Makefile", "application/octet-stream", false},
		{"trailing.", "application/octet-stream", false},
	}
	for _, tt := range tests {
		mime, ok := p.MimeType(tt.name)
		assert.Equal(t, tt.mime, mime, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}

func TestDispositionAndCacheable(t *testing.T) {
	p := basePolicy(t)

	assert.Equal(t, "inline", p.Disposition("text/html"))
	assert.Equal(t, "attachment", p.Disposition("application/zip"))
	assert.True(t, p.Cacheable("text/plain"))
	assert.False(t, p.Cacheable("application/octet-stream"))
}

func TestDefaultRules(t *testing.T) {
	p := basePolicy(t)

	assert.True(t, p.IsIndex("index.html"))
	assert.True(t, p.IsIndex("index.shtml"))
	assert.True(t, p.IsIndex("index.php3"))
	assert.False(t, p.IsIndex("INDEX.HTML"))
	assert.False(t, p.IsIndex("index.txt"))

	assert.True(t, p.Ignored("index.txt"))
	assert.False(t, p.Ignored("readme.txt"))

	assert.True(t, p.IsDynamic("page.php"))
	assert.True(t, p.IsDynamic("PAGE.PHP4"))
	assert.False(t, p.IsDynamic("page.phps"))
}

func TestOverlayDoesNotLeak(t *testing.T) {
	base := basePolicy(t)

	over, err := base.Overlay(&config.Overlay{
		Title:      "Local",
		Annotation: "# Hello",
		Ignore:     []config.Rule{{Pattern: `\.tmp$`}},
		Index:      []config.Rule{{Pattern: `^readme\.txt$`}},
		MimeTypes:  map[string]string{"txt": "text/x-notes", "iso": "application/x-iso9660-image"},
		Cacheable:  map[string]bool{"text/html": false},
	})
	require.NoError(t, err)

	assert.Equal(t, "Local", over.Title)
	assert.Equal(t, config.FormatHTML, over.AnnotationFormat)
	assert.True(t, over.Ignored("scratch.TMP"))
	assert.True(t, over.Ignored("index.txt"), "inherited rules still apply")
	assert.True(t, over.IsIndex("README.TXT"))
	mime, _ := over.MimeType("a.txt")
	assert.Equal(t, "text/x-notes", mime)
	mime, _ = over.MimeType("disk.iso")
	assert.Equal(t, "application/x-iso9660-image", mime)
	assert.False(t, over.Cacheable("text/html"))

	// The base policy is unchanged.
	assert.Empty(t, base.Title)
	assert.False(t, base.Ignored("scratch.tmp"))
	assert.False(t, base.IsIndex("readme.txt"))
	mime, _ = base.MimeType("a.txt")
	assert.Equal(t, "text/plain", mime)
	_, ok := base.MimeType("disk.iso")
	assert.False(t, ok)
	assert.True(t, base.Cacheable("text/html"))
}

func TestOverlayPrependsRules(t *testing.T) {
	base := basePolicy(t)
	over, err := base.Overlay(&config.Overlay{
		Index: []config.Rule{{Pattern: `^default\.htm$`, CaseSensitive: true}},
	})
	require.NoError(t, err)

	rules := over.index.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, `^default\.htm$`, rules[0].Pattern)
	assert.Equal(t, `^index.s?html?$`, rules[1].Pattern)
}

func TestOverlayMarkdownAnnotation(t *testing.T) {
	base := basePolicy(t)
	over, err := base.Overlay(&config.Overlay{Annotation: "# Hi", AnnotationFormat: config.FormatMarkdown})
	require.NoError(t, err)
	assert.Equal(t, config.FormatMarkdown, over.AnnotationFormat)
}

func TestOverlayBadPattern(t *testing.T) {
	base := basePolicy(t)
	_, err := base.Overlay(&config.Overlay{Ignore: []config.Rule{{Pattern: `(`}}})
	assert.Error(t, err)
}
