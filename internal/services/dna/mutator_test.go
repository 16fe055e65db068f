package dna

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

// memDnaStorage is an in-memory DnaStorage for mutator tests.
type memDnaStorage struct {
	snapshots map[string]*models.DnaSnapshot
	activeID  map[string]string
}

func newMemDnaStorage() *memDnaStorage {
	return &memDnaStorage{
		snapshots: make(map[string]*models.DnaSnapshot),
		activeID:  make(map[string]string),
	}
}

func (m *memDnaStorage) CreateSnapshot(ctx context.Context, snapshot *models.DnaSnapshot) error {
	if prior, ok := m.activeID[snapshot.TargetID]; ok {
		m.snapshots[prior].IsActive = false
	}
	snapshot.IsActive = true
	m.snapshots[snapshot.ID] = snapshot
	m.activeID[snapshot.TargetID] = snapshot.ID
	return nil
}

func (m *memDnaStorage) GetSnapshot(ctx context.Context, id string) (*models.DnaSnapshot, error) {
	if s, ok := m.snapshots[id]; ok {
		return s, nil
	}
	return nil, ErrNoActiveDna
}

func (m *memDnaStorage) GetActiveSnapshot(ctx context.Context, targetID string) (*models.DnaSnapshot, error) {
	if id, ok := m.activeID[targetID]; ok {
		return m.snapshots[id], nil
	}
	return nil, ErrNoActiveDna
}

func (m *memDnaStorage) GetLineage(ctx context.Context, targetID string) ([]*models.DnaSnapshot, error) {
	var out []*models.DnaSnapshot
	for _, s := range m.snapshots {
		if s.TargetID == targetID {
			out = append(out, s)
		}
	}
	return out, nil
}

// memEventStorage collects appended learning events.
type memEventStorage struct {
	events []*models.LearningEvent
}

func (m *memEventStorage) AppendEvent(ctx context.Context, event *models.LearningEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memEventStorage) ListEvents(ctx context.Context, targetID string, limit int) ([]*models.LearningEvent, error) {
	return m.events, nil
}

func newTestMutator() (*Mutator, *memDnaStorage, *memEventStorage) {
	dnaStore := newMemDnaStorage()
	eventStore := &memEventStorage{}
	return NewMutator(dnaStore, eventStore, arbor.NewLogger()), dnaStore, eventStore
}

func TestCreateInitial(t *testing.T) {
	mutator, _, events := newTestMutator()
	ctx := context.Background()

	snapshot, err := mutator.CreateInitial(ctx, "tgt-1")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", snapshot.Version)
	assert.Empty(t, snapshot.ParentID)
	assert.True(t, snapshot.IsActive)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventBirth, events.events[0].EventType)

	profile, err := snapshot.Profile()
	require.NoError(t, err)
	assert.NotEmpty(t, profile.Identity.UserAgent)
	assert.Equal(t, 2000, profile.Timing.DelayRange.MinMs)
}

func TestMutateIsConservative(t *testing.T) {
	mutator, _, _ := newTestMutator()
	ctx := context.Background()

	initial, err := mutator.CreateInitial(ctx, "tgt-1")
	require.NoError(t, err)
	before, err := initial.Profile()
	require.NoError(t, err)

	proposal := &interfaces.MutationProposal{
		Gene:       models.GeneTiming,
		Change:     map[string]interface{}{"delay_range": map[string]interface{}{"min_ms": 3000, "max_ms": 7000}},
		Reason:     "slow down after challenge",
		Confidence: 0.8,
		RiskLevel:  models.RiskLow,
	}
	result, err := mutator.Mutate(ctx, "tgt-1", proposal)
	require.NoError(t, err)

	assert.Equal(t, "1.0.1", result.Snapshot.Version)
	assert.Equal(t, initial.ID, result.Snapshot.ParentID)
	assert.Contains(t, result.Diff.Modified, "delay_range")

	after, err := result.Snapshot.Profile()
	require.NoError(t, err)

	// Only the timing gene may differ
	assert.Equal(t, before.Identity, after.Identity)
	assert.Equal(t, before.Network, after.Network)
	assert.Equal(t, before.Interaction, after.Interaction)
	assert.Equal(t, before.Capabilities, after.Capabilities)
	assert.Equal(t, before.Temporal, after.Temporal)
	assert.Equal(t, 3000, after.Timing.DelayRange.MinMs)
	assert.Equal(t, 7000, after.Timing.DelayRange.MaxMs)
	assert.Equal(t, before.Timing.ReadingSpeed, after.Timing.ReadingSpeed)
}

func TestMutateVersionChain(t *testing.T) {
	mutator, _, events := newTestMutator()
	ctx := context.Background()

	_, err := mutator.CreateInitial(ctx, "tgt-1")
	require.NoError(t, err)

	for i, want := range []string{"1.0.1", "1.0.2", "1.0.3"} {
		proposal := &interfaces.MutationProposal{
			Gene:      models.GeneIdentity,
			Change:    map[string]interface{}{"viewport": "1280x720"},
			Reason:    "resize",
			RiskLevel: models.RiskMedium,
		}
		result, err := mutator.Mutate(ctx, "tgt-1", proposal)
		require.NoError(t, err, "mutation %d", i)
		assert.Equal(t, want, result.Snapshot.Version)
	}

	// birth + three mutation events
	require.Len(t, events.events, 4)
	assert.Equal(t, 0, events.events[1].TrustImpact) // medium risk
}

func TestMutateTrustImpactByRisk(t *testing.T) {
	mutator, _, events := newTestMutator()
	ctx := context.Background()

	_, err := mutator.CreateInitial(ctx, "tgt-1")
	require.NoError(t, err)

	cases := []struct {
		risk   models.RiskLevel
		impact int
	}{
		{models.RiskHigh, -5},
		{models.RiskMedium, 0},
		{models.RiskLow, 5},
	}
	for _, tc := range cases {
		proposal := &interfaces.MutationProposal{
			Gene:      models.GeneCapabilities,
			Change:    map[string]interface{}{"javascript": true},
			Reason:    "risk check",
			RiskLevel: tc.risk,
		}
		_, err := mutator.Mutate(ctx, "tgt-1", proposal)
		require.NoError(t, err)
		last := events.events[len(events.events)-1]
		assert.Equal(t, tc.impact, last.TrustImpact, "risk %s", tc.risk)
	}
}

func TestMutateUnknownGene(t *testing.T) {
	mutator, _, _ := newTestMutator()
	ctx := context.Background()

	_, err := mutator.CreateInitial(ctx, "tgt-1")
	require.NoError(t, err)

	proposal := &interfaces.MutationProposal{
		Gene:      models.Gene("temporal"),
		Change:    map[string]interface{}{"time_of_day_policy": "always"},
		Reason:    "bad gene",
		RiskLevel: models.RiskLow,
	}
	_, err = mutator.Mutate(ctx, "tgt-1", proposal)
	assert.ErrorIs(t, err, ErrUnknownGene)
}

func TestMutateWithoutActiveDna(t *testing.T) {
	mutator, _, _ := newTestMutator()

	proposal := &interfaces.MutationProposal{
		Gene:      models.GeneTiming,
		Change:    map[string]interface{}{"reading_speed": "slow"},
		Reason:    "n/a",
		RiskLevel: models.RiskLow,
	}
	_, err := mutator.Mutate(context.Background(), "tgt-missing", proposal)
	assert.ErrorIs(t, err, ErrNoActiveDna)
}

func TestDnaRoundTrip(t *testing.T) {
	original := DefaultProfile()

	encoded, err := models.EncodeDNA(original)
	require.NoError(t, err)

	var decoded models.DNA
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	assert.Equal(t, *original, decoded)
}
