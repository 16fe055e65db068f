package interfaces

import (
	"context"

	"github.com/ternarybob/chameleon/internal/models"
)

// TargetStorage persists targets. Mutable target fields are only ever
// written by the crawl session that owns the target.
type TargetStorage interface {
	SaveTarget(ctx context.Context, target *models.Target) error
	GetTarget(ctx context.Context, id string) (*models.Target, error)
	GetTargetByURL(ctx context.Context, url string) (*models.Target, error)
	UpdateTargetFields(ctx context.Context, id string, patch *models.TargetPatch) error
	ListTargets(ctx context.Context) ([]*models.Target, error)
	DeleteTarget(ctx context.Context, id string) error
}

// DnaStorage persists DNA snapshots. Lineage is append-only: snapshots are
// never updated (beyond the activation flip) or deleted.
type DnaStorage interface {
	// CreateSnapshot inserts the snapshot, deactivates the prior active
	// snapshot for the target, and updates the target's current DNA
	// pointer in one transaction.
	CreateSnapshot(ctx context.Context, snapshot *models.DnaSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.DnaSnapshot, error)
	GetActiveSnapshot(ctx context.Context, targetID string) (*models.DnaSnapshot, error)
	GetLineage(ctx context.Context, targetID string) ([]*models.DnaSnapshot, error)
}

// EventStorage persists learning events. Append-only.
type EventStorage interface {
	AppendEvent(ctx context.Context, event *models.LearningEvent) error
	ListEvents(ctx context.Context, targetID string, limit int) ([]*models.LearningEvent, error)
}

// RequestLogStorage persists request logs. Each row permits exactly one
// post-creation update carrying the response fields.
type RequestLogStorage interface {
	AppendRequestLog(ctx context.Context, log *models.RequestLog) error
	UpdateRequestLogResponse(ctx context.Context, id string, resp *models.RequestLogResponse) error
	RecentRequestLogs(ctx context.Context, targetID string, n int) ([]*models.RequestLog, error)
}

// GreenLightStorage persists green-light transition history and serves a
// short-lived cached view of the latest state per target.
type GreenLightStorage interface {
	PutGreenLightState(ctx context.Context, state *models.GreenLightState) error
	GetCachedGreenLightState(ctx context.Context, targetID string) (*models.GreenLightState, bool)
	ListGreenLightStates(ctx context.Context, targetID string, limit int) ([]*models.GreenLightState, error)
	SweepCache()
}

// StorageManager bundles the per-entity storage interfaces behind one
// connection-owning manager.
type StorageManager interface {
	TargetStorage() TargetStorage
	DnaStorage() DnaStorage
	EventStorage() EventStorage
	RequestLogStorage() RequestLogStorage
	GreenLightStorage() GreenLightStorage
	RunValueLogGC() error
	Close() error
}
