// Package goldmark renders tutor replies, which are markdown, for display
// surfaces: ANSI-styled text for terminals and plain text for chat apps
// that would otherwise show the raw markup.
package goldmark

import (
	"bytes"
	"strings"

	"github.com/fwojciec/tutor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const defaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs, quotes and list items are word-wrapped to width.
func Render(source string, width int, theme tutor.Theme) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	src := []byte(source)
	return newRenderer(theme, width).render(src, parse(src))
}

// Plain strips markdown markup, keeping the text, list markers and link
// targets. Lines are not wrapped.
func Plain(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	src := []byte(source)
	p := &plainWriter{src: src}
	p.blocks(parse(src))
	return strings.TrimSpace(p.buf.String())
}

func parse(src []byte) ast.Node {
	return goldmark.DefaultParser().Parse(text.NewReader(src))
}

// plainWriter walks the AST emitting unstyled text.
type plainWriter struct {
	src []byte
	buf bytes.Buffer
}

func (p *plainWriter) blocks(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch b := c.(type) {
		case *ast.List:
			for i, item := 0, b.FirstChild(); item != nil; i, item = i+1, item.NextSibling() {
				p.buf.WriteString(listMarker(b, i))
				p.buf.WriteString(strings.TrimSpace(p.inlineOf(item)))
				p.buf.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := b.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				p.buf.Write(seg.Value(p.src))
			}
		case *ast.Blockquote:
			p.blocks(b)
			continue
		case *ast.ThematicBreak:
			p.buf.WriteString("---\n")
		default:
			p.buf.WriteString(p.inlineOf(b))
			p.buf.WriteByte('\n')
		}
		p.buf.WriteByte('\n')
	}
}

// inlineOf flattens the inline content under n, descending into nested
// blocks such as list item paragraphs.
func (p *plainWriter) inlineOf(n ast.Node) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(p.src))
				if t.SoftLineBreak() {
					b.WriteByte(' ')
				}
				if t.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *ast.String:
				b.Write(t.Value)
			case *ast.AutoLink:
				b.Write(t.URL(p.src))
			case *ast.Link:
				walk(t)
				b.WriteString(" (" + string(t.Destination) + ")")
			default:
				if c.Type() == ast.TypeBlock && b.Len() > 0 {
					b.WriteByte(' ')
				}
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}
