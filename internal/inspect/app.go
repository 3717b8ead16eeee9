// Package inspect implements cmd/cognition-inspect's TUI: a read-only
// view over a persisted Pareto frontier and a set of recorded
// trajectories, adapted from internal/tui's panel/viewport structure
// (app.go's Tab-cycling multi-panel layout, chat.go's viewport-backed
// scrolling log) but reading evolution-engine state instead of driving
// a live chat session.
package inspect

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/tui"
)

type panel int

const (
	frontierPanel panel = iota
	trajectoryPanel
)

// App is the cognition-inspect bubbletea model.
type App struct {
	width, height int
	current       panel
	frontier      *FrontierPanel
	trajectory    *TrajectoryPanel
	keys          tui.KeyMap
	statePath     string
}

// NewApp builds the inspector over an already-loaded frontier and
// trajectory set (loaded by cmd/cognition-inspect/main.go from disk,
// so this package stays free of filesystem concerns).
func NewApp(variants []evolution.PromptVariant, trajectories []evolution.Trajectory, statePath string) *App {
	return &App{
		current:    frontierPanel,
		frontier:   NewFrontierPanel(variants),
		trajectory: NewTrajectoryPanel(trajectories),
		keys:       tui.DefaultKeyMap,
		statePath:  statePath,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.frontier.Init(), a.trajectory.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Tab):
			a.current = (a.current + 1) % 2
			return a, nil
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.frontier, cmd = a.frontier.Update(msg)
	cmds = append(cmds, cmd)
	a.trajectory, cmd = a.trajectory.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	statusBar := tui.StatusBarStyle.Width(a.width).Render(
		fmt.Sprintf("cognition-inspect | state: %s | tab: switch panel | q: quit", a.statePath))
	contentHeight := a.height - lipgloss.Height(statusBar)

	var body string
	switch a.current {
	case trajectoryPanel:
		body = a.trajectory.View(a.width, contentHeight)
	default:
		body = a.frontier.View(a.width, contentHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, body)
}
