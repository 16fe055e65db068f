package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrNoActiveDna is returned when a target has no active DNA snapshot.
var ErrNoActiveDna = errors.New("no active DNA snapshot")

// DnaStorage implements the DnaStorage interface for Badger
type DnaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDnaStorage creates a new DnaStorage instance
func NewDnaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DnaStorage {
	return &DnaStorage{
		db:     db,
		logger: logger,
	}
}

// CreateSnapshot inserts the snapshot, deactivates the prior active
// snapshot for the target, and repoints the target's CurrentDnaID, all in
// one Badger transaction. The activation flip and the insert succeed or
// fail together.
func (s *DnaStorage) CreateSnapshot(ctx context.Context, snapshot *models.DnaSnapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("snapshot ID is required")
	}
	if snapshot.TargetID == "" {
		return fmt.Errorf("snapshot target ID is required")
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	snapshot.IsActive = true

	store := s.db.Store()
	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		// Deactivate the prior active snapshot for this target
		var active []models.DnaSnapshot
		query := badgerhold.Where("TargetID").Eq(snapshot.TargetID).And("IsActive").Eq(true)
		if err := store.TxFind(tx, &active, query); err != nil {
			return fmt.Errorf("failed to find active snapshot: %w", err)
		}
		for i := range active {
			active[i].IsActive = false
			if err := store.TxUpdate(tx, active[i].ID, &active[i]); err != nil {
				return fmt.Errorf("failed to deactivate snapshot %s: %w", active[i].ID, err)
			}
		}

		if err := store.TxInsert(tx, snapshot.ID, snapshot); err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		// Repoint the target at the new snapshot
		var target models.Target
		if err := store.TxGet(tx, snapshot.TargetID, &target); err != nil {
			if err == badgerhold.ErrNotFound {
				return fmt.Errorf("%w: %s", ErrTargetNotFound, snapshot.TargetID)
			}
			return fmt.Errorf("failed to load target: %w", err)
		}
		target.CurrentDnaID = snapshot.ID
		target.UpdatedAt = time.Now().UTC()
		if err := store.TxUpdate(tx, target.ID, &target); err != nil {
			return fmt.Errorf("failed to update target DNA pointer: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("target_id", snapshot.TargetID).
		Str("snapshot_id", snapshot.ID).
		Str("version", snapshot.Version).
		Str("parent_id", snapshot.ParentID).
		Msg("DNA snapshot created")

	return nil
}

func (s *DnaStorage) GetSnapshot(ctx context.Context, id string) (*models.DnaSnapshot, error) {
	var snapshot models.DnaSnapshot
	if err := s.db.Store().Get(id, &snapshot); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("DNA snapshot not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get DNA snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *DnaStorage) GetActiveSnapshot(ctx context.Context, targetID string) (*models.DnaSnapshot, error) {
	var snapshots []models.DnaSnapshot
	query := badgerhold.Where("TargetID").Eq(targetID).And("IsActive").Eq(true)
	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to find active snapshot: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w: target %s", ErrNoActiveDna, targetID)
	}
	return &snapshots[0], nil
}

// GetLineage returns all snapshots for a target ordered oldest first.
func (s *DnaStorage) GetLineage(ctx context.Context, targetID string) ([]*models.DnaSnapshot, error) {
	var snapshots []models.DnaSnapshot
	if err := s.db.Store().Find(&snapshots, badgerhold.Where("TargetID").Eq(targetID)); err != nil {
		return nil, fmt.Errorf("failed to load DNA lineage: %w", err)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})

	result := make([]*models.DnaSnapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
