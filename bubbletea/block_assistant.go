package bubbletea

import (
	"strings"

	"github.com/fwojciec/tutor"
	"github.com/fwojciec/tutor/goldmark"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders assistant text as markdown. It grows while a
// reply streams in; the rendered output is cached until the text or the
// width changes.
type AssistantBlock struct {
	text  strings.Builder
	theme tutor.Theme

	cacheWidth int
	cacheLen   int
	cache      string
}

// NewAssistantBlock creates an empty assistant block.
func NewAssistantBlock(theme tutor.Theme) *AssistantBlock {
	return &AssistantBlock{theme: theme, cacheWidth: -1}
}

// Append adds streamed text.
func (b *AssistantBlock) Append(text string) {
	b.text.WriteString(text)
}

// Text returns the raw markdown received so far.
func (b *AssistantBlock) Text() string {
	return b.text.String()
}

func (b *AssistantBlock) View(width int) string {
	if width == b.cacheWidth && b.text.Len() == b.cacheLen {
		return b.cache
	}
	src := b.text.String()
	if strings.Count(src, "```")%2 == 1 {
		// Close a fence that is still streaming so it renders as code.
		src += "\n```"
	}
	b.cache = goldmark.Render(src, width, b.theme)
	b.cacheWidth = width
	b.cacheLen = b.text.Len()
	return b.cache
}
