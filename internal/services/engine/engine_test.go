package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

// memStore is an in-memory StorageManager for engine tests. All methods
// are mutex-guarded since the session goroutine and the test goroutine
// both touch it.
type memStore struct {
	mu        sync.Mutex
	targets   map[string]*models.Target
	snapshots map[string]*models.DnaSnapshot
	activeID  map[string]string
	events    []*models.LearningEvent
	logs      map[string]*models.RequestLog
	states    []*models.GreenLightState
}

func newMemStore() *memStore {
	return &memStore{
		targets:   make(map[string]*models.Target),
		snapshots: make(map[string]*models.DnaSnapshot),
		activeID:  make(map[string]string),
		logs:      make(map[string]*models.RequestLog),
	}
}

func (m *memStore) TargetStorage() interfaces.TargetStorage         { return m }
func (m *memStore) DnaStorage() interfaces.DnaStorage               { return m }
func (m *memStore) EventStorage() interfaces.EventStorage           { return m }
func (m *memStore) RequestLogStorage() interfaces.RequestLogStorage { return m }
func (m *memStore) GreenLightStorage() interfaces.GreenLightStorage { return m }
func (m *memStore) RunValueLogGC() error                            { return nil }
func (m *memStore) Close() error                                    { return nil }

func (m *memStore) SaveTarget(_ context.Context, target *models.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *target
	m.targets[target.ID] = &copied
	return nil
}

func (m *memStore) GetTarget(_ context.Context, id string) (*models.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.targets[id]
	if !ok {
		return nil, errors.New("target not found")
	}
	copied := *target
	return &copied, nil
}

func (m *memStore) GetTargetByURL(_ context.Context, url string) (*models.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, target := range m.targets {
		if target.URL == url {
			copied := *target
			return &copied, nil
		}
	}
	return nil, errors.New("target not found")
}

func (m *memStore) UpdateTargetFields(_ context.Context, id string, patch *models.TargetPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.targets[id]
	if !ok {
		return errors.New("target not found")
	}
	if patch.Status != nil {
		target.Status = *patch.Status
	}
	if patch.GreenLightStatus != nil {
		target.GreenLightStatus = *patch.GreenLightStatus
	}
	if patch.TrustScore != nil {
		target.TrustScore = models.ClampTrustScore(*patch.TrustScore)
	}
	if patch.EstablishedAt != nil {
		target.EstablishedAt = patch.EstablishedAt
	}
	if patch.MaintainedFor != nil {
		target.MaintainedFor = *patch.MaintainedFor
	}
	if patch.CurrentDnaID != nil {
		target.CurrentDnaID = *patch.CurrentDnaID
	}
	if patch.LastSeen != nil {
		target.LastSeen = *patch.LastSeen
	}
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) ListTargets(_ context.Context) ([]*models.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Target, 0, len(m.targets))
	for _, target := range m.targets {
		copied := *target
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memStore) DeleteTarget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.targets, id)
	return nil
}

func (m *memStore) CreateSnapshot(_ context.Context, snapshot *models.DnaSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prior, ok := m.activeID[snapshot.TargetID]; ok {
		m.snapshots[prior].IsActive = false
	}
	snapshot.IsActive = true
	copied := *snapshot
	m.snapshots[snapshot.ID] = &copied
	m.activeID[snapshot.TargetID] = snapshot.ID
	if target, ok := m.targets[snapshot.TargetID]; ok {
		target.CurrentDnaID = snapshot.ID
	}
	return nil
}

func (m *memStore) GetSnapshot(_ context.Context, id string) (*models.DnaSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot, ok := m.snapshots[id]
	if !ok {
		return nil, errors.New("snapshot not found")
	}
	copied := *snapshot
	return &copied, nil
}

func (m *memStore) GetActiveSnapshot(_ context.Context, targetID string) (*models.DnaSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.activeID[targetID]
	if !ok {
		return nil, errors.New("no active snapshot")
	}
	copied := *m.snapshots[id]
	return &copied, nil
}

func (m *memStore) GetLineage(_ context.Context, targetID string) ([]*models.DnaSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DnaSnapshot
	for _, snapshot := range m.snapshots {
		if snapshot.TargetID == targetID {
			copied := *snapshot
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) AppendEvent(_ context.Context, event *models.LearningEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *event
	m.events = append(m.events, &copied)
	return nil
}

func (m *memStore) ListEvents(_ context.Context, targetID string, limit int) ([]*models.LearningEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LearningEvent
	for i := len(m.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.events[i].TargetID == targetID {
			copied := *m.events[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) AppendRequestLog(_ context.Context, log *models.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *log
	m.logs[log.ID] = &copied
	return nil
}

func (m *memStore) UpdateRequestLogResponse(_ context.Context, id string, resp *models.RequestLogResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.logs[id]
	if !ok {
		return errors.New("request log not found")
	}
	if !log.CompletedAt.IsZero() {
		return errors.New("request log already completed")
	}
	log.ResponseStatus = resp.Status
	log.ResponseHeaders = resp.Headers
	log.ResponsePreview = resp.BodyPreview
	log.WasBlocked = resp.WasBlocked
	log.BlockReason = resp.BlockReason
	log.ChallengeDetected = resp.ChallengeDetected
	log.ChallengeType = resp.ChallengeType
	log.TimingMs = resp.TimingMs
	log.CompletedAt = time.Now().UTC()
	return nil
}

func (m *memStore) RecentRequestLogs(_ context.Context, targetID string, n int) ([]*models.RequestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RequestLog
	for _, log := range m.logs {
		if log.TargetID == targetID {
			copied := *log
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memStore) PutGreenLightState(_ context.Context, state *models.GreenLightState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.states = append(m.states, &copied)
	return nil
}

func (m *memStore) GetCachedGreenLightState(_ context.Context, targetID string) (*models.GreenLightState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i].TargetID == targetID {
			copied := *m.states[i]
			return &copied, true
		}
	}
	return nil, false
}

func (m *memStore) ListGreenLightStates(_ context.Context, targetID string, limit int) ([]*models.GreenLightState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GreenLightState
	for i := len(m.states) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.states[i].TargetID == targetID {
			copied := *m.states[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memStore) SweepCache() {}
