// Command cognition-chat is an interactive terminal client for a
// running cognitive request orchestrator: it speaks the same
// chat-completions HTTP contract an external caller would, so it
// exercises the orchestrator exactly as described in SPEC_FULL.md §6
// rather than reaching into its internals.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bjorgzz/Protocol-Omni/internal/tui"
)

const version = "1.0.0"

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of a running orchestrator")
	flag.Parse()

	client := tui.NewHTTPClient(*addr)
	app := tui.NewApp(client, version)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "cognition-chat error:", err)
		os.Exit(1)
	}
}
