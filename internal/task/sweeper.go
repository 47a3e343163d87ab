package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/domain"
)

// SweeperConfig holds configuration for the cleanup sweeper
type SweeperConfig struct {
	// Interval defines how often the registry is scanned
	Interval time.Duration

	// Retention defines how long a completed task is kept after completion
	Retention time.Duration
}

// DefaultSweeperConfig returns a SweeperConfig with reasonable defaults
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  10 * time.Minute,
		Retention: time.Hour,
	}
}

// Sweeper periodically evicts completed tasks older than the retention
// window. Failed tasks are kept until removed explicitly.
type Sweeper struct {
	registry *Registry
	clock    clock.Clock
	config   SweeperConfig
	onEvict  func(ctx context.Context, evicted []domain.Task)
	logger   *slog.Logger

	mu       sync.Mutex
	schedule *clock.Schedule
}

// NewSweeper creates a sweeper. onEvict receives every batch of evicted tasks
// and may be nil.
func NewSweeper(
	registry *Registry,
	c clock.Clock,
	config SweeperConfig,
	onEvict func(ctx context.Context, evicted []domain.Task),
	logger *slog.Logger,
) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if config.Retention <= 0 {
		config.Retention = DefaultSweeperConfig().Retention
	}
	return &Sweeper{
		registry: registry,
		clock:    c,
		config:   config,
		onEvict:  onEvict,
		logger:   logger.With("component", "sweeper"),
	}
}

// Start begins periodic sweeping. Calling Start twice has no effect.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule != nil {
		return
	}
	s.schedule = clock.Every(s.clock, s.config.Interval, func(now time.Time) bool {
		s.Sweep(now)
		return true
	})
	s.logger.Info("sweeper started",
		"interval", s.config.Interval,
		"retention", s.config.Retention)
}

// Stop ends periodic sweeping and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	schedule := s.schedule
	s.schedule = nil
	s.mu.Unlock()

	if schedule != nil {
		schedule.Stop()
	}
}

// Sweep evicts every completed task whose completion is more than the
// retention window before now. It returns the number of evicted tasks.
func (s *Sweeper) Sweep(now time.Time) int {
	if s.registry.Len() == 0 {
		return 0
	}

	evicted := s.registry.RemoveWhere(func(t domain.Task) bool {
		return t.Status == domain.StatusCompleted &&
			t.CompletedAt != nil &&
			now.Sub(*t.CompletedAt) > s.config.Retention
	})
	if len(evicted) == 0 {
		return 0
	}

	if s.onEvict != nil {
		s.onEvict(context.Background(), evicted)
	}
	s.logger.Info("evicted expired tasks", "count", len(evicted))
	return len(evicted)
}
