package evolution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// persistedState is the on-disk shape of the frontier, mirroring
// _save_state's {"frontier": [...], "updated_at": ...} document.
type persistedState struct {
	Frontier  []PromptVariant `json:"frontier"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SaveFrontier persists f to <dir>/pareto_frontier.json atomically: it
// writes to a temp file in the same directory and renames it into
// place, so a crash or concurrent reader never observes a truncated or
// half-written file. This fixes the original's _save_state, which
// writes the target file directly and can leave a corrupt file behind
// if the process is killed mid-write.
func SaveFrontier(dir string, f *Frontier) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	variants := make([]PromptVariant, 0, len(f.Solutions))
	for _, s := range f.Solutions {
		if v, ok := s.Data.(PromptVariant); ok {
			variants = append(variants, v)
		}
	}
	state := persistedState{Frontier: variants, UpdatedAt: time.Now()}

	buf, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal frontier state: %w", err)
	}

	target := filepath.Join(dir, "pareto_frontier.json")
	tmp, err := os.CreateTemp(dir, ".pareto_frontier-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename temp state file into place: %w", err)
	}
	return nil
}

// LoadFrontier reads a previously-saved frontier, returning an empty
// frontier (not an error) when the state file does not exist yet.
func LoadFrontier(dir string, maxSize int, minimize []string) (*Frontier, error) {
	target := filepath.Join(dir, "pareto_frontier.json")
	data, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return NewFrontier(maxSize, minimize), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read frontier state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode frontier state: %w", err)
	}

	f := NewFrontier(maxSize, minimize)
	for _, v := range state.Frontier {
		f.Add(v.ToSolution())
	}
	return f, nil
}
