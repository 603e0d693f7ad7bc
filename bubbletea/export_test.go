package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// SetRunning puts the model in the running state without starting a request.
func SetRunning(m Model) Model {
	m.running = true
	return m
}

// SetRunningWithCancel puts the model in the running state with a cancel
// function.
func SetRunningWithCancel(m Model, cancel func()) Model {
	m.running = true
	m.cancel = cancel
	return m
}
