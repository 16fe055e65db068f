package badger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// greenLightCacheTTL bounds how long the cached latest state per target is
// served before callers fall back to a fresh calculation.
const greenLightCacheTTL = 30 * time.Second

type cachedState struct {
	state    *models.GreenLightState
	cachedAt time.Time
}

// GreenLightStorage implements the GreenLightStorage interface for Badger.
// The in-memory cache is a convenience view, never authoritative.
type GreenLightStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.RWMutex
	cache  map[string]cachedState
}

// NewGreenLightStorage creates a new GreenLightStorage instance
func NewGreenLightStorage(db *BadgerDB, logger arbor.ILogger) interfaces.GreenLightStorage {
	return &GreenLightStorage{
		db:     db,
		logger: logger,
		cache:  make(map[string]cachedState),
	}
}

func (s *GreenLightStorage) PutGreenLightState(ctx context.Context, state *models.GreenLightState) error {
	if state.ID == "" {
		return fmt.Errorf("green-light state ID is required")
	}
	if state.ComputedAt.IsZero() {
		state.ComputedAt = time.Now().UTC()
	}

	if err := s.db.Store().Insert(state.ID, state); err != nil {
		return fmt.Errorf("failed to save green-light state: %w", err)
	}

	s.mu.Lock()
	s.cache[state.TargetID] = cachedState{state: state, cachedAt: time.Now()}
	s.mu.Unlock()

	return nil
}

// GetCachedGreenLightState returns the latest stored state for a target if
// it is still within the cache TTL.
func (s *GreenLightStorage) GetCachedGreenLightState(ctx context.Context, targetID string) (*models.GreenLightState, bool) {
	s.mu.RLock()
	entry, ok := s.cache[targetID]
	s.mu.RUnlock()

	if !ok || time.Since(entry.cachedAt) > greenLightCacheTTL {
		return nil, false
	}
	return entry.state, true
}

// ListGreenLightStates returns the most recent states for a target, newest
// first.
func (s *GreenLightStorage) ListGreenLightStates(ctx context.Context, targetID string, limit int) ([]*models.GreenLightState, error) {
	var states []models.GreenLightState
	if err := s.db.Store().Find(&states, badgerhold.Where("TargetID").Eq(targetID)); err != nil {
		return nil, fmt.Errorf("failed to list green-light states: %w", err)
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].ComputedAt.After(states[j].ComputedAt)
	})
	if limit > 0 && len(states) > limit {
		states = states[:limit]
	}

	result := make([]*models.GreenLightState, len(states))
	for i := range states {
		result[i] = &states[i]
	}
	return result, nil
}

// SweepCache drops cache entries past the TTL. Called periodically by the
// maintenance scheduler.
func (s *GreenLightStorage) SweepCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for targetID, entry := range s.cache {
		if time.Since(entry.cachedAt) > greenLightCacheTTL {
			delete(s.cache, targetID)
		}
	}
}
