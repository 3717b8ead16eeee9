package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Status renders the two backend endpoints' last-known health, polled
// by the App via Client.Health. Adapted from the teacher's CortexBrain
// connection / Ollama model list panel — the cognitive orchestrator
// has no CortexBrain or local Ollama concept, but the same panel shape
// (a short connection summary beside the chat view) fits its two
// named backend endpoints instead.
type Status struct {
	deepHealthy bool
	fastHealthy bool
	checked     bool
}

func NewStatus() *Status {
	return &Status{}
}

func (s *Status) Init() tea.Cmd {
	return nil
}

func (s *Status) Update(msg tea.Msg) (*Status, tea.Cmd) {
	return s, nil
}

func (s *Status) SetHealth(deep, fast bool) {
	s.deepHealthy = deep
	s.fastHealthy = fast
	s.checked = true
}

func (s *Status) View(width, height int) string {
	if !s.checked {
		return StatusPanelStyle.Width(width).Height(height).Render("Checking backend health...")
	}
	content := fmt.Sprintf(
		"Backend endpoints\n\ndeep:  %s\nfast:  %s",
		healthLabel(s.deepHealthy),
		healthLabel(s.fastHealthy),
	)
	return StatusPanelStyle.Width(width).Height(height).Render(content)
}

func healthLabel(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unreachable"
}
