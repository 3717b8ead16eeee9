package evolution

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the engine's evolution Cycle on a cron schedule,
// grounded on internal/scheduler/scheduler.go's nightly sleep-cycle
// job (cron.New/AddFunc/Start/Stop), generalized from one fixed "0 3
// * * *" job to an arbitrary caller-supplied expression.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger

	mu      sync.Mutex
	prompts map[string]string
}

// NewScheduler builds a Scheduler that runs e.Cycle against the given
// seed prompts on every firing of spec (standard 5-field cron syntax).
// An empty or malformed spec makes it return the cron parser's error;
// the caller is expected to check
// CognitionConfig.Evolution.Enabled before constructing one.
func NewScheduler(e *Engine, spec string, seedPrompts map[string]string, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		engine:  e,
		log:     log,
		prompts: seedPrompts,
	}
	if _, err := s.cron.AddFunc(spec, s.runCycle); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runCycle() {
	s.mu.Lock()
	current := s.prompts
	s.mu.Unlock()

	ctx := context.Background()
	updated, err := s.engine.Cycle(ctx, current)
	if err != nil {
		s.log.Warn("evolution cycle failed", "error", err)
		return
	}

	s.mu.Lock()
	s.prompts = updated
	s.mu.Unlock()
	s.log.Info("evolution cycle complete", "frontier_size", len(s.engine.Frontier()))
}

// CurrentPrompts returns the scheduler's live prompt set, letting the
// orchestrator pick up variants an evolution cycle has already
// promoted into production without restarting.
func (s *Scheduler) CurrentPrompts() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.prompts))
	for k, v := range s.prompts {
		out[k] = v
	}
	return out
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and blocks until any in-flight cycle drains.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
