package main

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/encoding/unicode"
)

// tocMarker is replaced by a list of links to the document's headings.
const tocMarker = "[TOC]"

// newMarkdownRenderer creates a configured goldmark renderer
func newMarkdownRenderer(style string) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
			tocExtension{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// renderMarkdown converts already decoded markdown to HTML.
func renderMarkdown(md goldmark.Markdown, source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("%w: %v", errRenderFailure, err)
	}
	return buf.String(), nil
}

// decodeText decodes file bytes as UTF-8, dropping a byte order mark and
// replacing invalid sequences with U+FFFD. It never fails.
func decodeText(raw []byte) string {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, []byte("\uFFFD")))
	}
	return string(out)
}

type tocExtension struct{}

func (tocExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(tocTransformer{}, 100),
	))
}

// tocTransformer swaps every paragraph consisting only of [TOC] for a list
// of the document's headings. Heading ids are assigned by the parser before
// transformers run.
type tocTransformer struct{}

type tocHeading struct {
	level int
	id    []byte
	title []byte
}

func (tocTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var markers []ast.Node
	var headings []tocHeading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Paragraph:
			lines := node.Lines()
			if lines.Len() == 1 {
				seg := lines.At(0)
				if string(bytes.TrimSpace(seg.Value(source))) == tocMarker {
					markers = append(markers, node)
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			id, ok := node.AttributeString("id")
			if !ok {
				return ast.WalkSkipChildren, nil
			}
			idBytes, _ := id.([]byte)
			headings = append(headings, tocHeading{
				level: node.Level,
				id:    idBytes,
				title: inlineText(node, source),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, marker := range markers {
		parent := marker.Parent()
		if parent == nil {
			continue
		}
		parent.ReplaceChild(parent, marker, buildTOC(headings))
	}
}

func buildTOC(headings []tocHeading) ast.Node {
	list := ast.NewList('-')
	list.IsTight = true
	list.SetAttributeString("class", []byte("toc"))
	for _, h := range headings {
		item := ast.NewListItem(2)
		item.SetAttributeString("class", []byte(fmt.Sprintf("toc-h%d", h.level)))
		block := ast.NewTextBlock()
		link := ast.NewLink()
		link.Destination = append([]byte("#"), h.id...)
		link.AppendChild(link, ast.NewString(h.title))
		block.AppendChild(block, link)
		item.AppendChild(item, block)
		list.AppendChild(list, item)
	}
	return list
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, source []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.Write(inlineText(c, source))
		}
	}
	return buf.Bytes()
}
