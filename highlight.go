package main

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const defaultHighlightStyle = "nord"

// highlighter renders source files with chroma. One instance is shared by
// all requests; chroma formatters and styles are safe for concurrent use.
type highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
	css       template.CSS
}

func newHighlighter(styleName string) *highlighter {
	style := styles.Get(styleName)
	formatter := chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.WithLineNumbers(true),
		chromahtml.LinkableLineNumbers(true, "line-"),
		chromahtml.TabWidth(4),
	)

	var css bytes.Buffer
	if err := formatter.WriteCSS(&css, style); err != nil {
		log.Printf("Warning: cannot generate highlight CSS for style %s: %v", styleName, err)
	}

	return &highlighter{
		style:     style,
		formatter: formatter,
		css:       template.CSS(css.String()),
	}
}

// detect picks a lexer for the file, first by filename and then by content
// analysis. It returns nil when nothing matches.
func (h *highlighter) detect(name, source string) chroma.Lexer {
	if l := lexers.Match(name); l != nil {
		return l
	}
	if l := lexers.Analyse(source); l != nil {
		return l
	}
	return nil
}

// highlight formats source with lexer. Callers fall back to plainBlock on
// error.
func (h *highlighter) highlight(lexer chroma.Lexer, source string) (string, error) {
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("tokenise: %w", err)
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("format: %w", err)
	}
	return buf.String(), nil
}

// plainBlock is the escaped fallback used when no lexer applies.
func plainBlock(source string) string {
	return "<pre class=\"plain\">" + template.HTMLEscapeString(source) + "</pre>"
}
