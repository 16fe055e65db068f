package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EventStorage implements the EventStorage interface for Badger.
// Learning events are append-only; there is no update or delete path.
type EventStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEventStorage creates a new EventStorage instance
func NewEventStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EventStorage {
	return &EventStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EventStorage) AppendEvent(ctx context.Context, event *models.LearningEvent) error {
	if event.ID == "" {
		return fmt.Errorf("event ID is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Insert(event.ID, event); err != nil {
		return fmt.Errorf("failed to append learning event: %w", err)
	}

	s.logger.Debug().
		Str("target_id", event.TargetID).
		Str("event_type", string(event.EventType)).
		Str("title", event.Title).
		Int("trust_impact", event.TrustImpact).
		Msg("Learning event appended")

	return nil
}

// ListEvents returns the most recent events for a target, newest first.
func (s *EventStorage) ListEvents(ctx context.Context, targetID string, limit int) ([]*models.LearningEvent, error) {
	var events []models.LearningEvent
	if err := s.db.Store().Find(&events, badgerhold.Where("TargetID").Eq(targetID)); err != nil {
		return nil, fmt.Errorf("failed to list learning events: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	result := make([]*models.LearningEvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}
