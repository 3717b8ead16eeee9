package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/inspect"
)

func main() {
	statePath := flag.String("state-dir", ".", "directory holding pareto_frontier.json")
	trajectoryFile := flag.String("trajectories", "", "optional JSON array file of recorded trajectories to replay")
	flag.Parse()

	// maxSize is large rather than 0: Frontier.Add prunes down to
	// MaxSize on every insert, and this tool is read-only — it must not
	// drop any persisted variant while replaying one back in.
	frontier, err := evolution.LoadFrontier(*statePath, 10000, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load frontier:", err)
		os.Exit(1)
	}
	variants := make([]evolution.PromptVariant, 0, frontier.Len())
	for _, s := range frontier.Solutions {
		if v, ok := s.Data.(evolution.PromptVariant); ok {
			variants = append(variants, v)
		}
	}

	var trajectories []evolution.Trajectory
	if *trajectoryFile != "" {
		trajectories, err = loadTrajectories(*trajectoryFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to load trajectories:", err)
			os.Exit(1)
		}
	}

	app := inspect.NewApp(variants, trajectories, *statePath)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "cognition-inspect error:", err)
		os.Exit(1)
	}
}

func loadTrajectories(path string) ([]evolution.Trajectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []evolution.Trajectory
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
