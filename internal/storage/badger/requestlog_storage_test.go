package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/models"
)

func TestRequestLogResponseUpdateIsOneShot(t *testing.T) {
	db := newTestDB(t)
	storage := NewRequestLogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	log := &models.RequestLog{
		ID:       "req-1",
		TargetID: "tgt-1",
		Method:   "GET",
		URL:      "https://example.com/",
	}
	require.NoError(t, storage.AppendRequestLog(ctx, log))

	resp := &models.RequestLogResponse{
		Status:      200,
		BodyPreview: "welcome",
		TimingMs:    120,
	}
	require.NoError(t, storage.UpdateRequestLogResponse(ctx, "req-1", resp))

	// Second response update must be rejected
	err := storage.UpdateRequestLogResponse(ctx, "req-1", resp)
	require.Error(t, err)

	logs, err := storage.RecentRequestLogs(ctx, "tgt-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 200, logs[0].ResponseStatus)
	assert.Equal(t, "welcome", logs[0].ResponsePreview)
	assert.False(t, logs[0].CompletedAt.IsZero())
}

func TestRecentRequestLogsWindow(t *testing.T) {
	db := newTestDB(t)
	storage := NewRequestLogStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		log := &models.RequestLog{
			ID:        "req-" + string(rune('a'+i)),
			TargetID:  "tgt-1",
			Method:    "GET",
			URL:       "https://example.com/",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, storage.AppendRequestLog(ctx, log))
	}

	logs, err := storage.RecentRequestLogs(ctx, "tgt-1", 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Newest first
	assert.Equal(t, "req-e", logs[0].ID)
	assert.Equal(t, "req-c", logs[2].ID)
}
