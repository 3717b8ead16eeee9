package inspect

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/tui"
)

// FrontierPanel renders the Pareto frontier's surviving prompt
// variants, adapted from tui.Chat's viewport-backed scrolling panel.
type FrontierPanel struct {
	viewport viewport.Model
	variants []evolution.PromptVariant
}

func NewFrontierPanel(variants []evolution.PromptVariant) *FrontierPanel {
	vp := viewport.New(0, 0)
	p := &FrontierPanel{viewport: vp, variants: variants}
	p.render()
	return p
}

func (p *FrontierPanel) Init() tea.Cmd { return nil }

func (p *FrontierPanel) Update(msg tea.Msg) (*FrontierPanel, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *FrontierPanel) View(width, height int) string {
	p.viewport.Width = width - 2
	p.viewport.Height = height - 2
	return tui.StatusPanelStyle.Width(width).Height(height).Render(p.viewport.View())
}

func (p *FrontierPanel) render() {
	if len(p.variants) == 0 {
		p.viewport.SetContent("No persisted Pareto frontier found.\n")
		return
	}
	var sb strings.Builder
	sb.WriteString(tui.EventStyle.Render(fmt.Sprintf("Pareto frontier: %d variants\n\n", len(p.variants))))
	for _, v := range p.variants {
		sb.WriteString(tui.UserMessageStyle.Render(fmt.Sprintf("[%s] gen %d — %s", v.Backend, v.Generation, v.ID)))
		sb.WriteString("\n")
		for obj, score := range v.Scores {
			sb.WriteString(fmt.Sprintf("    %s: %.3f\n", obj, score))
		}
		preview := v.Content
		if len(preview) > 160 {
			preview = preview[:160] + "..."
		}
		sb.WriteString(tui.AssistantMessageStyle.Render("    " + preview))
		sb.WriteString("\n\n")
	}
	p.viewport.SetContent(sb.String())
}
