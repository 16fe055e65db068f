package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrTargetNotFound is returned when a target lookup finds no row.
var ErrTargetNotFound = errors.New("target not found")

// TargetStorage implements the TargetStorage interface for Badger
type TargetStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTargetStorage creates a new TargetStorage instance
func NewTargetStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TargetStorage {
	return &TargetStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TargetStorage) SaveTarget(ctx context.Context, target *models.Target) error {
	if target.ID == "" {
		return fmt.Errorf("target ID is required")
	}

	now := time.Now().UTC()
	if target.CreatedAt.IsZero() {
		target.CreatedAt = now
	}
	target.UpdatedAt = now
	target.TrustScore = models.ClampTrustScore(target.TrustScore)

	if err := s.db.Store().Upsert(target.ID, target); err != nil {
		return fmt.Errorf("failed to save target: %w", err)
	}
	return nil
}

func (s *TargetStorage) GetTarget(ctx context.Context, id string) (*models.Target, error) {
	var target models.Target
	if err := s.db.Store().Get(id, &target); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, id)
		}
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return &target, nil
}

func (s *TargetStorage) GetTargetByURL(ctx context.Context, url string) (*models.Target, error) {
	var targets []models.Target
	if err := s.db.Store().Find(&targets, badgerhold.Where("URL").Eq(url)); err != nil {
		return nil, fmt.Errorf("failed to find target: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: url %s", ErrTargetNotFound, url)
	}
	return &targets[0], nil
}

func (s *TargetStorage) UpdateTargetFields(ctx context.Context, id string, patch *models.TargetPatch) error {
	target, err := s.GetTarget(ctx, id)
	if err != nil {
		return err
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
	if patch.IsAuthenticated != nil {
		target.IsAuthenticated = *patch.IsAuthenticated
	}
	if patch.SessionCookies != nil {
		target.SessionCookies = *patch.SessionCookies
	}
	if patch.CurrentDnaID != nil {
		target.CurrentDnaID = *patch.CurrentDnaID
	}
	if patch.LastSeen != nil {
		target.LastSeen = *patch.LastSeen
	}

	return s.SaveTarget(ctx, target)
}

func (s *TargetStorage) ListTargets(ctx context.Context) ([]*models.Target, error) {
	var targets []models.Target
	if err := s.db.Store().Find(&targets, nil); err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	result := make([]*models.Target, len(targets))
	for i := range targets {
		result[i] = &targets[i]
	}
	return result, nil
}

func (s *TargetStorage) DeleteTarget(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Target{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete target: %w", err)
	}
	return nil
}
