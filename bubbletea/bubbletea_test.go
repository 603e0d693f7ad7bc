package bubbletea_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tutor"
	bt "github.com/fwojciec/tutor/bubbletea"
	"github.com/fwojciec/tutor/mock"
	"github.com/stretchr/testify/require"
)

const preamble = "You are a patient Mandarin tutor."

func testConfig() tutor.Config {
	return tutor.Config{Model: "gemini-1.5-flash-8b", Preamble: preamble}
}

// newSession creates a session answering with the scripted replies.
func newSession(script ...any) (*tutor.Session, *mock.Replies) {
	replies := mock.NewReplies(script...)
	return tutor.NewSession(replies, testConfig()), replies
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, session bt.Session) bt.Model {
	t.Helper()
	return initModelWithSize(t, session, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, session bt.Session, width, height int) bt.Model {
	t.Helper()
	m := bt.New(session, tutor.DefaultTheme())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func textsOf(turns []tutor.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Text
	}
	return out
}
