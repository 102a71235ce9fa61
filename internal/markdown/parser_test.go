package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	p := NewParser()
	source := []byte("# Hello World\n\nThis is a *test*.")

	result, err := p.Render(source)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(result.HTML, "<h1") || !strings.Contains(result.HTML, "Hello World</h1>") {
		t.Error("expected H1 tag containing 'Hello World' in HTML")
	}
	if !strings.Contains(result.HTML, "<em>test</em>") {
		t.Error("expected italicized test in HTML")
	}
	if result.Title != "Hello World" {
		t.Errorf("expected title Hello World, got %s", result.Title)
	}
}

func TestRenderTitleFromFirstHeading(t *testing.T) {
	p := NewParser()
	source := []byte("Intro text.\n\n## Nightly *builds*\n\n# Later")

	result, err := p.Render(source)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.Title != "Nightly builds" {
		t.Errorf("expected title 'Nightly builds', got %q", result.Title)
	}
}

func TestRenderNoHeading(t *testing.T) {
	p := NewParser()
	result, err := p.Render([]byte("Just a paragraph with a [link](../up/)."))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.Title != "" {
		t.Errorf("expected no title, got %q", result.Title)
	}
	if !strings.Contains(result.HTML, `<a href="../up/">link</a>`) {
		t.Errorf("expected link in HTML, got %s", result.HTML)
	}
}

func TestRenderTableAndCode(t *testing.T) {
	p := NewParser()
	source := []byte("| a | b |\n|---|---|\n| 1 | 2 |\n\n```go\nfunc main() {}\n```\n")

	result, err := p.Render(source)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(result.HTML, "<table>") {
		t.Error("expected GFM table in HTML")
	}
	if !strings.Contains(result.HTML, "<pre") || !strings.Contains(result.HTML, "func") {
		t.Error("expected highlighted code block in HTML")
	}
}
