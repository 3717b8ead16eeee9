package inspect

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/tui"
)

// TrajectoryPanel steps through a list of recorded trajectories one at
// a time, letting an operator replay what the graph produced for a
// given task without re-running it. Adapted from tui.Chat's message
// log rendering, one trajectory per "turn" instead of one chat message.
type TrajectoryPanel struct {
	viewport     viewport.Model
	trajectories []evolution.Trajectory
	cursor       int
}

func NewTrajectoryPanel(trajectories []evolution.Trajectory) *TrajectoryPanel {
	vp := viewport.New(0, 0)
	p := &TrajectoryPanel{viewport: vp, trajectories: trajectories}
	p.render()
	return p
}

func (p *TrajectoryPanel) Init() tea.Cmd { return nil }

func (p *TrajectoryPanel) Update(msg tea.Msg) (*TrajectoryPanel, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		switch m.String() {
		case "down", "j":
			p.next()
		case "up", "k":
			p.prev()
		}
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *TrajectoryPanel) View(width, height int) string {
	p.viewport.Width = width - 2
	p.viewport.Height = height - 2
	return tui.NeuralPanelStyle.Width(width).Height(height).Render(p.viewport.View())
}

func (p *TrajectoryPanel) next() {
	if p.cursor < len(p.trajectories)-1 {
		p.cursor++
		p.render()
	}
}

func (p *TrajectoryPanel) prev() {
	if p.cursor > 0 {
		p.cursor--
		p.render()
	}
}

func (p *TrajectoryPanel) render() {
	if len(p.trajectories) == 0 {
		p.viewport.SetContent("No trajectories loaded.\n")
		return
	}
	t := p.trajectories[p.cursor]
	var sb strings.Builder
	sb.WriteString(tui.EventStyle.Render(fmt.Sprintf("Trajectory %d/%d\n\n", p.cursor+1, len(p.trajectories))))
	sb.WriteString(fmt.Sprintf("Task:      %s\n", t.Task))
	sb.WriteString(fmt.Sprintf("Success:   %v\n", t.Success))
	sb.WriteString(fmt.Sprintf("Latency:   %.0fms\n\n", t.LatencyMs))
	sb.WriteString(tui.UserMessageStyle.Render("Prompt:\n"))
	sb.WriteString(t.Prompt + "\n\n")
	sb.WriteString(tui.AssistantMessageStyle.Render("Output:\n"))
	sb.WriteString(t.Output + "\n")
	if t.Error != "" {
		sb.WriteString("\n" + tui.EventStyle.Render("Error: "+t.Error) + "\n")
	}
	p.viewport.SetContent(sb.String())
}
