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

// RequestLogStorage implements the RequestLogStorage interface for Badger.
// A row is created when the request goes out and updated exactly once when
// the response completes.
type RequestLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRequestLogStorage creates a new RequestLogStorage instance
func NewRequestLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RequestLogStorage {
	return &RequestLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RequestLogStorage) AppendRequestLog(ctx context.Context, log *models.RequestLog) error {
	if log.ID == "" {
		return fmt.Errorf("request log ID is required")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return fmt.Errorf("failed to append request log: %w", err)
	}
	return nil
}

// UpdateRequestLogResponse fills in the response fields of a pending log
// row. A row that already carries a response is left untouched.
func (s *RequestLogStorage) UpdateRequestLogResponse(ctx context.Context, id string, resp *models.RequestLogResponse) error {
	var log models.RequestLog
	if err := s.db.Store().Get(id, &log); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("request log not found: %s", id)
		}
		return fmt.Errorf("failed to get request log: %w", err)
	}

	if !log.CompletedAt.IsZero() {
		return fmt.Errorf("request log %s already has a response", id)
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

	if err := s.db.Store().Update(id, &log); err != nil {
		return fmt.Errorf("failed to update request log response: %w", err)
	}
	return nil
}

// RecentRequestLogs returns the n most recent logs for a target, newest
// first.
func (s *RequestLogStorage) RecentRequestLogs(ctx context.Context, targetID string, n int) ([]*models.RequestLog, error) {
	var logs []models.RequestLog
	if err := s.db.Store().Find(&logs, badgerhold.Where("TargetID").Eq(targetID)); err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if n > 0 && len(logs) > n {
		logs = logs[:n]
	}

	result := make([]*models.RequestLog, len(logs))
	for i := range logs {
		result[i] = &logs[i]
	}
	return result, nil
}
