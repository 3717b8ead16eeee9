package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Panel int

const (
	ChatPanel Panel = iota
	StatusPanel
	NeuralPanel
)

// App is an interactive terminal client for the cognitive request
// orchestrator: it sends each typed line to the chat-completions
// endpoint, renders the reply in the chat panel, and surfaces the
// routing reason the classifier attached to the response in the
// neural panel. Adapted from the teacher's chat TUI, whose Update
// loop only ever echoed the typed line back with no backend at all
// ("Simulate response" in the original) — the panel layout, key
// bindings, and styling are unchanged, but every reply now comes from
// a live orchestrator round trip.
type App struct {
	width, height int
	currentPanel  Panel
	chat          *Chat
	status        *Status
	neural        *Neural
	input         *Input
	keys          KeyMap

	client  Client
	version string
	sending bool
}

func NewApp(client Client, version string) *App {
	return &App{
		currentPanel: ChatPanel,
		chat:         NewChat(),
		status:       NewStatus(),
		neural:       NewNeural(),
		input:        NewInput(),
		keys:         DefaultKeyMap,
		client:       client,
		version:      version,
	}
}

type replyMsg struct {
	reply ChatReply
	err   error
}

type healthMsg struct {
	deep, fast bool
}

type tickHealthMsg struct{}

func sendMessageCmd(client Client, prompt string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
		defer cancel()
		reply, err := client.SendMessage(ctx, prompt)
		return replyMsg{reply: reply, err: err}
	}
}

func checkHealthCmd(client Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		deep, fast := client.Health(ctx)
		return healthMsg{deep: deep, fast: fast}
	}
}

func healthTickCmd() tea.Cmd {
	return tea.Tick(15*time.Second, func(time.Time) tea.Msg { return tickHealthMsg{} })
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.chat.Init(), a.status.Init(), a.neural.Init(), a.input.Init(),
		checkHealthCmd(a.client), healthTickCmd())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Tab):
			a.currentPanel = (a.currentPanel + 1) % 3
		case msg.String() == "enter":
			if prompt := a.input.Value(); prompt != "" && !a.sending {
				a.chat.AddMessage("user", prompt)
				a.input.Reset()
				a.sending = true
				cmds = append(cmds, sendMessageCmd(a.client, prompt))
			}
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
	case replyMsg:
		a.sending = false
		if msg.err != nil {
			a.chat.AddMessage("assistant", "error: "+msg.err.Error())
			a.neural.AddEvent("error", msg.err.Error())
		} else {
			a.chat.AddMessage("assistant", msg.reply.Content)
			a.neural.AddEvent("routed", fmt.Sprintf("%s -> %s", msg.reply.RoutingReason, msg.reply.ModelName))
		}
	case healthMsg:
		a.status.SetHealth(msg.deep, msg.fast)
	case tickHealthMsg:
		cmds = append(cmds, checkHealthCmd(a.client), healthTickCmd())
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	cmds = append(cmds, cmd)
	a.status, cmd = a.status.Update(msg)
	cmds = append(cmds, cmd)
	a.neural, cmd = a.neural.Update(msg)
	cmds = append(cmds, cmd)
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	statusBar := a.statusBarView()
	inputBar := a.input.View()

	contentHeight := a.height - lipgloss.Height(statusBar) - lipgloss.Height(inputBar)

	leftWidth := int(float64(a.width) * 0.7)
	rightWidth := a.width - leftWidth

	chatView := a.chat.View(leftWidth, contentHeight)
	var rightView string
	switch a.currentPanel {
	case NeuralPanel:
		rightView = a.neural.View(rightWidth, contentHeight)
	default:
		rightView = a.status.View(rightWidth, contentHeight)
	}

	layout := lipgloss.JoinHorizontal(lipgloss.Top, chatView, rightView)

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, layout, inputBar)
}

func (a *App) statusBarView() string {
	state := "idle"
	if a.sending {
		state = "thinking..."
	}
	return StatusBarStyle.Width(a.width).Render(fmt.Sprintf("Cognitive Orchestrator %s | %s | tab: switch panel", a.version, state))
}

func (a *App) resize() {
	// Resize submodels if needed
}
