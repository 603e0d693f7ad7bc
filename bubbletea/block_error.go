package bubbletea

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tutor"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a failed request: the category, the error and what
// the student can do about it.
type ErrorBlock struct {
	err    error
	kind   tutor.Kind
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, kind: tutor.Classify(err), styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	head := b.styles.Error.Render(fmt.Sprintf("✗ %s: %v", b.kind, b.err))
	content := head
	if hint := b.kind.Hint(); hint != "" {
		content += "\n" + b.styles.Hint.Render(hint)
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}
