package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tutor"
	"github.com/yuin/goldmark/ast"
)

type ansiRenderer struct {
	width  int
	strong lipgloss.Style
	italic lipgloss.Style
	accent lipgloss.Style
	muted  lipgloss.Style
	quote  lipgloss.Style
	link   lipgloss.Style
}

func newRenderer(theme tutor.Theme, width int) *ansiRenderer {
	return &ansiRenderer{
		width:  width,
		strong: lipgloss.NewStyle().Bold(true).Foreground(ansiColor(theme.Bold)),
		italic: lipgloss.NewStyle().Italic(true),
		accent: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		quote:  lipgloss.NewStyle().Foreground(ansiColor(theme.Hint)),
		link:   lipgloss.NewStyle().Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *ansiRenderer) render(src []byte, doc ast.Node) string {
	var out []string
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, r.block(c, src, r.width))
	}
	return strings.Join(out, "\n\n")
}

// block renders one top-level or nested block without trailing newline.
func (r *ansiRenderer) block(n ast.Node, src []byte, width int) string {
	switch b := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return wrap(r.inline(b, src), width)
	case *ast.Heading:
		return wrap(r.accent.Render(r.inline(b, src)), width)
	case *ast.FencedCodeBlock:
		code := r.code(b, src)
		if lang := string(b.Language(src)); lang != "" {
			return r.muted.Render(lang) + "\n" + code
		}
		return code
	case *ast.CodeBlock:
		return r.code(b, src)
	case *ast.List:
		return r.list(b, src, width)
	case *ast.Blockquote:
		return r.blockquote(b, src, width)
	case *ast.ThematicBreak:
		return r.muted.Render(strings.Repeat("─", min(width, 20)))
	default:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, r.block(c, src, width))
		}
		return strings.Join(parts, "\n")
	}
}

// code renders code lines behind a gutter, without reflow.
func (r *ansiRenderer) code(n ast.Node, src []byte) string {
	gutter := r.muted.Render("│") + " "
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, gutter+strings.TrimRight(string(seg.Value(src)), "\n"))
	}
	return strings.Join(out, "\n")
}

// blockquote renders tutor hints and notes with a colored bar.
func (r *ansiRenderer) blockquote(n *ast.Blockquote, src []byte, width int) string {
	bar := r.quote.Render("┃") + " "
	var lines []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		for _, line := range strings.Split(r.block(c, src, max(width-2, 10)), "\n") {
			lines = append(lines, bar+line)
		}
	}
	return strings.Join(lines, "\n")
}

func (r *ansiRenderer) list(n *ast.List, src []byte, width int) string {
	var out []string
	i := 0
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := listMarker(n, i)
		i++
		pad := strings.Repeat(" ", len(marker))
		first := true
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			body := r.block(ic, src, max(width-len(marker), 10))
			for _, line := range strings.Split(body, "\n") {
				if first {
					out = append(out, marker+line)
					first = false
					continue
				}
				out = append(out, pad+line)
			}
		}
		if first {
			out = append(out, strings.TrimRight(marker, " "))
		}
	}
	return strings.Join(out, "\n")
}

func listMarker(n *ast.List, i int) string {
	if n.IsOrdered() {
		return fmt.Sprintf("%d. ", n.Start+i)
	}
	return "- "
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// inline renders the inline children of n with styling.
func (r *ansiRenderer) inline(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(c, src, &buf)
	}
	return buf.String()
}

func (r *ansiRenderer) writeInline(n ast.Node, src []byte, buf *bytes.Buffer) {
	switch t := n.(type) {
	case *ast.Text:
		buf.Write(t.Segment.Value(src))
		switch {
		case t.HardLineBreak():
			buf.WriteByte('\n')
		case t.SoftLineBreak():
			buf.WriteByte(' ')
		}
	case *ast.String:
		buf.Write(t.Value)
	case *ast.Emphasis:
		if t.Level == 1 {
			buf.WriteString(r.italic.Render(r.inline(t, src)))
		} else {
			buf.WriteString(r.strong.Render(r.inline(t, src)))
		}
	case *ast.CodeSpan:
		buf.WriteString(r.strong.Render(r.inline(t, src)))
	case *ast.Link:
		buf.WriteString(r.link.Render(r.inline(t, src)))
		buf.WriteString(" " + r.muted.Render("("+string(t.Destination)+")"))
	case *ast.AutoLink:
		buf.WriteString(r.link.Render(string(t.URL(src))))
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.writeInline(c, src, buf)
		}
	}
}
