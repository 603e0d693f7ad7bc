package bubbletea

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/tutor"
)

var _ tea.Model = Model{}

// request runs one session call on a background goroutine, forwarding
// streamed events through onEvent.
type request func(ctx context.Context, onEvent func(tutor.Event)) error

// Model is the Bubble Tea model for the tutor TUI. The session transcript
// is the source of truth: blocks are rebuilt from it whenever a request
// finishes, so the screen never shows a turn the session did not record.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model
	// Spinner is the working indicator. Exported for test access.
	Spinner spinner.Model

	session Session
	theme   tutor.Theme
	styles  Styles

	blocks    []MessageBlock
	streaming *AssistantBlock

	// sent is the line being submitted and sentLen the transcript length
	// before it; a failed submit that recorded nothing restores the line.
	sent    string
	sentLen int

	running bool
	cancel  context.CancelFunc
	eventCh chan tutor.Event
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a new TUI Model for session.
func New(session Session, theme tutor.Theme) Model {
	styles := NewStyles(theme)

	ti := textinput.New()
	ti.Placeholder = "Type your answer..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Accent

	return Model{
		Input:   ti,
		Spinner: sp,
		session: session,
		theme:   theme,
		styles:  styles,
	}
}

// Running returns whether a request is outstanding.
func (m Model) Running() bool { return m.running }

// Err returns the error of the last request, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return InitializeMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case InitializeMsg:
		if m.running {
			return m, nil
		}
		session := m.session
		return m.begin(func(ctx context.Context, onEvent func(tutor.Event)) error {
			return session.Initialize(ctx, tutor.WithEventHandler(onEvent))
		})

	case StreamEventMsg:
		m = m.processEvent(msg.Event)
		m = m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case ReplyMsg:
		return m.finish(msg.Err)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.rebuild()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyCtrlR:
		if m.running || !m.session.Pending() {
			return m, nil
		}
		session := m.session
		return m.begin(func(ctx context.Context, onEvent func(tutor.Event)) error {
			_, err := session.Retry(ctx, tutor.WithEventHandler(onEvent))
			return err
		})
	}

	// When idle, pass keys to both the input (for typing) and the viewport
	// (for scrolling). Only non-character keys reach the viewport so 'j'
	// and 'k' stay text.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.sent = text
	m.sentLen = len(m.session.Transcript())
	m.Input.SetValue("")
	m = m.rebuild()
	m.blocks = append(m.blocks, NewStudentBlock(text, m.styles))
	m = m.refresh()

	session := m.session
	return m.begin(func(ctx context.Context, onEvent func(tutor.Event)) error {
		_, err := session.Submit(ctx, text, tutor.WithEventHandler(onEvent))
		return err
	})
}

// begin starts req and puts the model in the running state.
func (m Model) begin(req request) (Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan tutor.Event, 256)
	m.doneCh = make(chan error, 1)
	m.running = true
	m.err = nil
	m.streaming = nil
	m.Input.Blur()

	return m, tea.Batch(
		startRequest(ctx, req, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
		m.Spinner.Tick,
	)
}

// finish ends the running state and redraws from the transcript.
func (m Model) finish(err error) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil
	m.eventCh = nil
	m.doneCh = nil
	m.streaming = nil

	// A request the student cancelled is not reported as a failure.
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	m.err = err

	m = m.rebuild()
	if err != nil {
		m.blocks = append(m.blocks, NewErrorBlock(err, m.styles))
	}
	if m.sent != "" && len(m.session.Transcript()) == m.sentLen {
		m.Input.SetValue(m.sent)
		m.Input.CursorEnd()
	}
	m.sent = ""
	m = m.refresh()
	return m, m.Input.Focus()
}

// rebuild replaces the blocks with the session transcript.
func (m Model) rebuild() Model {
	turns := m.session.Transcript()
	m.blocks = make([]MessageBlock, 0, len(turns)+1)
	for _, t := range turns {
		switch t.Speaker {
		case tutor.SpeakerStudent:
			m.blocks = append(m.blocks, NewStudentBlock(t.Text, m.styles))
		case tutor.SpeakerAssistant:
			b := NewAssistantBlock(m.theme)
			b.Append(t.Text)
			m.blocks = append(m.blocks, b)
		}
	}
	return m
}

func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	views := make([]string, len(m.blocks))
	for i, block := range m.blocks {
		views[i] = block.View(m.Viewport.Width)
	}
	return strings.Join(views, "\n\n")
}

func (m Model) processEvent(evt tutor.Event) Model {
	switch e := evt.(type) {
	case tutor.EventTextDelta:
		if m.streaming == nil {
			m.streaming = NewAssistantBlock(m.theme)
			m.blocks = append(m.blocks, m.streaming)
		}
		m.streaming.Append(e.Delta)
	}
	return m
}

func (m Model) statusLine() string {
	switch {
	case m.running:
		return m.Spinner.View() + " " + m.styles.Muted.Render("Thinking... Ctrl+C to cancel")
	case m.err != nil:
		kind := tutor.Classify(m.err)
		return m.styles.Error.Render(kind.String()) + " " + m.styles.Hint.Render(kind.Hint())
	case m.session.Pending():
		return m.styles.Muted.Render("Enter to send, Ctrl+R to resend, Ctrl+C to quit")
	default:
		return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
	}
}

// startRequest runs req in a goroutine and signals completion.
func startRequest(ctx context.Context, req request, eventCh chan<- tutor.Event, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := req(ctx, func(e tutor.Event) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event from the channel.
// When the channel closes, it reads the error from doneCh and returns ReplyMsg.
func listenForEvent(ch <-chan tutor.Event, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return ReplyMsg{Err: <-doneCh}
		}
		return StreamEventMsg{Event: evt}
	}
}
