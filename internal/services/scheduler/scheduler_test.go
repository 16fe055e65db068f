package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

type stubStore struct {
	gcCalls    int
	sweepCalls int
}

func (s *stubStore) TargetStorage() interfaces.TargetStorage         { return nil }
func (s *stubStore) DnaStorage() interfaces.DnaStorage               { return nil }
func (s *stubStore) EventStorage() interfaces.EventStorage           { return nil }
func (s *stubStore) RequestLogStorage() interfaces.RequestLogStorage { return nil }
func (s *stubStore) GreenLightStorage() interfaces.GreenLightStorage { return s }
func (s *stubStore) RunValueLogGC() error                            { s.gcCalls++; return nil }
func (s *stubStore) Close() error                                    { return nil }

func (s *stubStore) PutGreenLightState(context.Context, *models.GreenLightState) error { return nil }
func (s *stubStore) GetCachedGreenLightState(context.Context, string) (*models.GreenLightState, bool) {
	return nil, false
}
func (s *stubStore) ListGreenLightStates(context.Context, string, int) ([]*models.GreenLightState, error) {
	return nil, nil
}
func (s *stubStore) SweepCache() { s.sweepCalls++ }

type stubSweeper struct{ calls int }

func (s *stubSweeper) SweepCache() int { s.calls++; return 0 }

type stubReaper struct{ calls int }

func (s *stubReaper) ReapFinished() int { s.calls++; return 0 }

func TestMaintenancePassTouchesEverything(t *testing.T) {
	store := &stubStore{}
	sweeper := &stubSweeper{}
	reaper := &stubReaper{}
	svc := NewService(store, sweeper, reaper, arbor.NewLogger())

	svc.runMaintenance()

	assert.Equal(t, 1, store.gcCalls)
	assert.Equal(t, 1, store.sweepCalls)
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 1, reaper.calls)
}

func TestSchedulerLifecycle(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, nil, nil, arbor.NewLogger())

	require.NoError(t, svc.Start("@every 1h"))
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start("@every 1h"))

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}

func TestInvalidScheduleRejected(t *testing.T) {
	svc := NewService(&stubStore{}, nil, nil, arbor.NewLogger())
	assert.Error(t, svc.Start("not a schedule"))
	assert.False(t, svc.IsRunning())
}
