// Package status maintains a cached view of dependency health for the
// health endpoint. Probes run on a cron schedule so health requests never
// block on external services.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/interfaces"
)

const defaultProbeTimeout = 10 * time.Second

// DependencyStatus is the cached probe result for one dependency.
type DependencyStatus struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Snapshot is the aggregate health view served by GET /api/health.
type Snapshot struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// Service probes retrieval and generation health on a schedule and caches
// the results.
type Service struct {
	retrieval    interfaces.RetrievalService
	generation   interfaces.GenerationService
	logger       arbor.ILogger
	cron         *cron.Cron
	probeTimeout time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewService creates the status service. The initial snapshot reports all
// dependencies as unchecked until the first refresh runs.
func NewService(retrieval interfaces.RetrievalService, generation interfaces.GenerationService, probeTimeout time.Duration, logger arbor.ILogger) *Service {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Service{
		retrieval:    retrieval,
		generation:   generation,
		logger:       logger,
		cron:         cron.New(),
		probeTimeout: probeTimeout,
		snapshot: Snapshot{
			Status: "healthy",
			Dependencies: map[string]DependencyStatus{
				"retrieval":  {Status: "unknown"},
				"generation": {Status: "unknown"},
			},
		},
	}
}

// Start refreshes once immediately, then on the given cron schedule.
func (s *Service) Start(schedule string) error {
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	s.Refresh()

	_, err := s.cron.AddFunc(schedule, s.Refresh)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Dependency status refresher started")
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Dependency status refresher stopped")
}

// Refresh probes all dependencies and replaces the cached snapshot.
func (s *Service) Refresh() {
	deps := map[string]DependencyStatus{
		"retrieval":  s.probe(func(ctx context.Context) error { return s.retrieval.HealthCheck(ctx) }),
		"generation": s.probe(func(ctx context.Context) error { return s.generation.HealthCheck(ctx) }),
	}

	overall := "healthy"
	for name, dep := range deps {
		if dep.Status != "healthy" {
			overall = "degraded"
			s.logger.Warn().
				Str("dependency", name).
				Str("error", dep.Error).
				Msg("Dependency probe failed")
		}
	}

	s.mu.Lock()
	s.snapshot = Snapshot{Status: overall, Dependencies: deps}
	s.mu.Unlock()
}

// Snapshot returns the most recent cached health view.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deps := make(map[string]DependencyStatus, len(s.snapshot.Dependencies))
	for name, dep := range s.snapshot.Dependencies {
		deps[name] = dep
	}
	return Snapshot{Status: s.snapshot.Status, Dependencies: deps}
}

func (s *Service) probe(check func(ctx context.Context) error) DependencyStatus {
	ctx, cancel := context.WithTimeout(context.Background(), s.probeTimeout)
	defer cancel()

	result := DependencyStatus{Status: "healthy", CheckedAt: time.Now()}
	if err := check(ctx); err != nil {
		result.Status = "unhealthy"
		result.Error = err.Error()
	}
	return result
}
