package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func seedTarget(t *testing.T, db *BadgerDB, id string) *models.Target {
	t.Helper()

	logger := arbor.NewLogger()
	targets := NewTargetStorage(db, logger)
	target := &models.Target{
		ID:               id,
		URL:              "https://example.com",
		Type:             models.TargetTypeWeb,
		Status:           models.TargetStatusDiscovering,
		GreenLightStatus: models.GreenLightRed,
	}
	require.NoError(t, targets.SaveTarget(context.Background(), target))
	return target
}

func TestCreateSnapshotActivationFlip(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	seedTarget(t, db, "tgt-1")
	storage := NewDnaStorage(db, logger)
	ctx := context.Background()

	first := &models.DnaSnapshot{
		ID:       "dna-1",
		TargetID: "tgt-1",
		Version:  "1.0.0",
		DnaJSON:  "{}",
	}
	require.NoError(t, storage.CreateSnapshot(ctx, first))

	second := &models.DnaSnapshot{
		ID:       "dna-2",
		TargetID: "tgt-1",
		Version:  "1.0.1",
		DnaJSON:  "{}",
		ParentID: "dna-1",
	}
	require.NoError(t, storage.CreateSnapshot(ctx, second))

	// Exactly one active snapshot per target
	active, err := storage.GetActiveSnapshot(ctx, "tgt-1")
	require.NoError(t, err)
	assert.Equal(t, "dna-2", active.ID)

	prior, err := storage.GetSnapshot(ctx, "dna-1")
	require.NoError(t, err)
	assert.False(t, prior.IsActive)

	// Target row points at the new snapshot
	targets := NewTargetStorage(db, logger)
	target, err := targets.GetTarget(ctx, "tgt-1")
	require.NoError(t, err)
	assert.Equal(t, "dna-2", target.CurrentDnaID)
}

func TestCreateSnapshotUnknownTargetRollsBack(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewDnaStorage(db, logger)
	ctx := context.Background()

	snapshot := &models.DnaSnapshot{
		ID:       "dna-orphan",
		TargetID: "tgt-missing",
		Version:  "1.0.0",
		DnaJSON:  "{}",
	}
	err := storage.CreateSnapshot(ctx, snapshot)
	require.Error(t, err)

	// The failed transaction must not leave the snapshot behind
	_, err = storage.GetSnapshot(ctx, "dna-orphan")
	assert.Error(t, err)
}

func TestGetActiveSnapshotMissing(t *testing.T) {
	db := newTestDB(t)
	storage := NewDnaStorage(db, arbor.NewLogger())

	_, err := storage.GetActiveSnapshot(context.Background(), "tgt-none")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoActiveDna)
}

func TestGetLineageOrdering(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	seedTarget(t, db, "tgt-2")
	storage := NewDnaStorage(db, logger)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"dna-a", "dna-b", "dna-c"} {
		snapshot := &models.DnaSnapshot{
			ID:        id,
			TargetID:  "tgt-2",
			Version:   "1.0." + string(rune('0'+i)),
			DnaJSON:   "{}",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i > 0 {
			snapshot.ParentID = []string{"dna-a", "dna-b"}[i-1]
		}
		require.NoError(t, storage.CreateSnapshot(ctx, snapshot))
	}

	lineage, err := storage.GetLineage(ctx, "tgt-2")
	require.NoError(t, err)
	require.Len(t, lineage, 3)
	assert.Equal(t, "dna-a", lineage[0].ID)
	assert.Equal(t, "dna-c", lineage[2].ID)

	// Parent references stay inside the target's own lineage
	for _, s := range lineage {
		if s.ParentID != "" {
			parent, err := storage.GetSnapshot(ctx, s.ParentID)
			require.NoError(t, err)
			assert.Equal(t, s.TargetID, parent.TargetID)
		}
	}
}
