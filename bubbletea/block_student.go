package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*StudentBlock)(nil)

// StudentBlock renders a student line with a "> " prefix.
type StudentBlock struct {
	text   string
	styles Styles
}

// NewStudentBlock creates a StudentBlock.
func NewStudentBlock(text string, styles Styles) *StudentBlock {
	return &StudentBlock{text: text, styles: styles}
}

func (b *StudentBlock) View(width int) string {
	content := b.styles.Student.Render("> ") + b.text
	return lipgloss.NewStyle().Width(width).Render(content)
}
