package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
)

// CacheSweeper is implemented by components with a TTL cache the
// scheduler sweeps.
type CacheSweeper interface {
	SweepCache() int
}

// SessionReaper drops finished crawl sessions from the engine registry.
type SessionReaper interface {
	ReapFinished() int
}

// Service runs periodic maintenance: Badger value-log GC, cache sweeps
// and session reaping.
type Service struct {
	cron    *cron.Cron
	store   interfaces.StorageManager
	advisor CacheSweeper
	engine  SessionReaper
	logger  arbor.ILogger

	mu      sync.Mutex
	running bool
}

func NewService(store interfaces.StorageManager, advisor CacheSweeper, engine SessionReaper, logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		store:   store,
		advisor: advisor,
		engine:  engine,
		logger:  logger,
	}
}

// Start registers the maintenance jobs and starts the cron loop. An
// empty schedule falls back to every five minutes.
func (s *Service) Start(gcSchedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if gcSchedule == "" {
		gcSchedule = "@every 5m"
	}

	if _, err := s.cron.AddFunc(gcSchedule, s.runMaintenance); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", gcSchedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", gcSchedule).Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// IsRunning reports whether the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runMaintenance performs one maintenance pass. Errors are logged, never
// propagated; the next tick retries.
func (s *Service) runMaintenance() {
	if err := s.store.RunValueLogGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Badger value log GC failed")
	}

	s.store.GreenLightStorage().SweepCache()

	swept := 0
	if s.advisor != nil {
		swept = s.advisor.SweepCache()
	}

	reaped := 0
	if s.engine != nil {
		reaped = s.engine.ReapFinished()
	}

	s.logger.Debug().
		Int("advisor_entries_swept", swept).
		Int("sessions_reaped", reaped).
		Msg("Maintenance pass complete")
}
