package main

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	md := newMarkdownRenderer(defaultHighlightStyle)

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading ids",
			input:    testMarkdownHeader,
			contains: []string{`<h1 id="hello-world">Hello World</h1>`, "<strong>test</strong>"},
		},
		{
			name:     "tables",
			input:    testMarkdownTable,
			contains: []string{"<table>", "<th>A</th>", "<td>2</td>"},
		},
		{
			name:     "fenced code is highlighted",
			input:    testMarkdownCode,
			contains: []string{`class="chroma"`},
		},
		{
			name:     "strikethrough and task lists",
			input:    "~~gone~~\n\n- [x] done\n",
			contains: []string{"<del>gone</del>", `type="checkbox"`},
		},
		{
			name:     "raw html omitted",
			input:    "<iframe src=\"x\"></iframe>\n\ntext <b onclick=\"x\">bold</b>",
			excludes: []string{"<iframe", "onclick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := renderMarkdown(md, tt.input)
			if err != nil {
				t.Fatalf("renderMarkdown: %v", err)
			}
			for _, s := range tt.contains {
				assertContains(t, html, s)
			}
			for _, s := range tt.excludes {
				assertNotContains(t, html, s)
			}
		})
	}
}

func TestTableOfContents(t *testing.T) {
	html, err := renderMarkdown(newMarkdownRenderer(defaultHighlightStyle), testMarkdownTOC)
	if err != nil {
		t.Fatal(err)
	}

	assertNotContains(t, html, tocMarker)
	assertContains(t, html, `<ul class="toc">`)
	assertContains(t, html, `<li class="toc-h1"><a href="#title">Title</a></li>`)
	assertContains(t, html, `<li class="toc-h2"><a href="#first">First</a></li>`)
	assertContains(t, html, `<h2 id="second">Second</h2>`)

	if strings.Index(html, `<ul class="toc">`) > strings.Index(html, `<h2 id="first">`) {
		t.Error("table of contents should appear where [TOC] was written")
	}
}

func TestTableOfContents_InlineMarkerLeftAlone(t *testing.T) {
	html, err := renderMarkdown(newMarkdownRenderer(defaultHighlightStyle), "# A\n\nsee [TOC] here\n")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, html, "see [TOC] here")
	assertNotContains(t, html, `class="toc"`)
}
