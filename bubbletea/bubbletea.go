// Package bubbletea provides a Bubble Tea terminal surface for a tutor
// session.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tutor"
)

// Session is the part of [tutor.Session] the terminal surface drives.
type Session interface {
	Initialize(ctx context.Context, opts ...tutor.SubmitOption) error
	Submit(ctx context.Context, text string, opts ...tutor.SubmitOption) (string, error)
	Retry(ctx context.Context, opts ...tutor.SubmitOption) (string, error)
	Transcript() []tutor.Turn
	Pending() bool
}

var _ Session = (*tutor.Session)(nil)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// InitializeMsg asks the model to initialize the session. Init sends it
// once at startup, which verifies the configuration and produces the
// opening turn when one is configured.
type InitializeMsg struct{}

// StreamEventMsg wraps a streaming event for delivery to the Bubble Tea model.
type StreamEventMsg struct {
	Event tutor.Event
}

// ReplyMsg signals that the outstanding request has finished.
type ReplyMsg struct {
	Err error
}
