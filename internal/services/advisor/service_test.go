package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

// scriptedModel replays a fixed set of tool calls and counts invocations.
type scriptedModel struct {
	calls   []interfaces.ToolCall
	err     error
	invoked int
}

func (m *scriptedModel) Invoke(_ context.Context, _, _ string) ([]interfaces.ToolCall, error) {
	m.invoked++
	if m.err != nil {
		return nil, m.err
	}
	return m.calls, nil
}

func (m *scriptedModel) ModelName() string { return "scripted-sonnet" }
func (m *scriptedModel) Close() error      { return nil }

func testEnvelope() *interfaces.AdvisorContext {
	return &interfaces.AdvisorContext{
		Target: interfaces.TargetSummary{
			ID:         "tgt_test",
			URL:        "https://example.com",
			Status:     models.TargetStatusLearning,
			GreenLight: models.GreenLightYellow,
			TrustScore: 40,
		},
		DNA: func() *models.DNA {
			d := &models.DNA{}
			d.Timing.DelayRange = models.DelayRange{MinMs: 2000, MaxMs: 5000}
			return d
		}(),
	}
}

func newTestService(t *testing.T, model interfaces.AdvisorModel) *Service {
	t.Helper()
	cfg := common.DefaultConfig()
	return NewService(model, cfg, arbor.NewLogger())
}

func mustArgs(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestOfflineResponseShape(t *testing.T) {
	svc := newTestService(t, nil)
	assert.True(t, svc.Offline())

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.True(t, resp.Mock)
	require.Len(t, resp.Mutations, 1)
	mutation := resp.Mutations[0]
	assert.Equal(t, models.GeneTiming, mutation.Gene)
	assert.Equal(t, models.RiskLow, mutation.RiskLevel)
	delay, ok := mutation.Change["delay_range"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 3000, delay["min_ms"])
	assert.Equal(t, 7000, delay["max_ms"])

	require.NotNil(t, resp.Trust)
	assert.Equal(t, 45, resp.Trust.TrustScore)
	assert.True(t, resp.Trust.ShouldContinue)

	require.NotNil(t, resp.Strategy)
	assert.Equal(t, "continue", resp.Strategy.Action)
}

func TestOfflineTrustClampedAt100(t *testing.T) {
	svc := newTestService(t, nil)
	envelope := testEnvelope()
	envelope.Target.TrustScore = 98

	resp, err := svc.Analyze(context.Background(), envelope)
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Trust.TrustScore)
}

func TestAnalyzeParsesAllThreeTools(t *testing.T) {
	model := &scriptedModel{calls: []interfaces.ToolCall{
		{Name: interfaces.ToolSuggestDnaMutation, Arguments: mustArgs(t, map[string]interface{}{
			"gene":       "timing",
			"change":     map[string]interface{}{"delay_range": map[string]int{"min_ms": 4000, "max_ms": 9000}},
			"reason":     "slow down after challenge",
			"confidence": 0.8,
			"riskLevel":  "low",
		})},
		{Name: interfaces.ToolEvaluateTrustStatus, Arguments: mustArgs(t, map[string]interface{}{
			"trustScore":     55,
			"signals":        []string{"no challenges in window"},
			"recommendation": "keep current pace",
			"shouldContinue": true,
		})},
		{Name: interfaces.ToolDetermineStrategy, Arguments: mustArgs(t, map[string]interface{}{
			"action": "adapt",
			"reason": "challenge pressure rising",
		})},
	}}
	svc := newTestService(t, model)

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.False(t, resp.Mock)
	assert.Equal(t, "scripted-sonnet", resp.Model)
	require.Len(t, resp.Mutations, 1)
	assert.Equal(t, models.GeneTiming, resp.Mutations[0].Gene)
	require.NotNil(t, resp.Trust)
	assert.Equal(t, 55, resp.Trust.TrustScore)
	require.NotNil(t, resp.Strategy)
	assert.Equal(t, "adapt", resp.Strategy.Action)
}

func TestMalformedToolCallDiscardedAlone(t *testing.T) {
	model := &scriptedModel{calls: []interfaces.ToolCall{
		// Missing required reason, fails validation.
		{Name: interfaces.ToolSuggestDnaMutation, Arguments: mustArgs(t, map[string]interface{}{
			"gene":       "timing",
			"change":     map[string]interface{}{"delay_range": map[string]int{"min_ms": 4000}},
			"confidence": 0.8,
			"riskLevel":  "low",
		})},
		{Name: interfaces.ToolDetermineStrategy, Arguments: mustArgs(t, map[string]interface{}{
			"action": "continue",
			"reason": "steady state",
		})},
	}}
	svc := newTestService(t, model)

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)

	assert.Empty(t, resp.Mutations)
	require.NotNil(t, resp.Strategy)
	assert.Equal(t, "continue", resp.Strategy.Action)
	assert.False(t, resp.Mock)
}

func TestUnknownGeneDiscarded(t *testing.T) {
	model := &scriptedModel{calls: []interfaces.ToolCall{
		{Name: interfaces.ToolSuggestDnaMutation, Arguments: mustArgs(t, map[string]interface{}{
			"gene":       "temporal",
			"change":     map[string]interface{}{"activeHours": "9-17"},
			"reason":     "try temporal shift",
			"confidence": 0.6,
			"riskLevel":  "medium",
		})},
		{Name: interfaces.ToolEvaluateTrustStatus, Arguments: mustArgs(t, map[string]interface{}{
			"trustScore":     60,
			"recommendation": "hold",
			"shouldContinue": true,
		})},
	}}
	svc := newTestService(t, model)

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.Empty(t, resp.Mutations)
	require.NotNil(t, resp.Trust)
}

func TestModelFailureFallsBackToOffline(t *testing.T) {
	model := &scriptedModel{err: errors.New("connection refused")}
	svc := newTestService(t, model)

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.True(t, resp.Mock)
	assert.Equal(t, offlineModelName, resp.Model)
}

func TestNoUsableToolCallsFallsBackToOffline(t *testing.T) {
	model := &scriptedModel{calls: []interfaces.ToolCall{
		{Name: "unrelated_tool", Arguments: json.RawMessage(`{}`)},
	}}
	svc := newTestService(t, model)

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.True(t, resp.Mock)
}

func TestAnalyzeCachesByContextDigest(t *testing.T) {
	model := &scriptedModel{calls: []interfaces.ToolCall{
		{Name: interfaces.ToolDetermineStrategy, Arguments: mustArgs(t, map[string]interface{}{
			"action": "continue",
			"reason": "steady state",
		})},
	}}
	svc := newTestService(t, model)

	envelope := testEnvelope()
	_, err := svc.Analyze(context.Background(), envelope)
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), envelope)
	require.NoError(t, err)
	assert.Equal(t, 1, model.invoked)

	// A different envelope misses the cache.
	changed := testEnvelope()
	changed.Target.TrustScore = 70
	_, err = svc.Analyze(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, 2, model.invoked)
}

func TestMutationCapEnforced(t *testing.T) {
	proposal := func(gene string) interfaces.ToolCall {
		return interfaces.ToolCall{Name: interfaces.ToolSuggestDnaMutation, Arguments: mustArgs(t, map[string]interface{}{
			"gene":       gene,
			"change":     map[string]interface{}{"field": "value"},
			"reason":     "test",
			"confidence": 0.5,
			"riskLevel":  "low",
		})}
	}
	model := &scriptedModel{calls: []interfaces.ToolCall{
		proposal("timing"), proposal("identity"), proposal("network"), proposal("interaction"),
	}}
	svc := newTestService(t, model)

	resp, err := svc.Analyze(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.Len(t, resp.Mutations, maxMutationsPerResponse)
}

func TestCacheSweepRemovesExpired(t *testing.T) {
	cache := newResponseCache(10 * time.Millisecond)
	cache.put("stale", &interfaces.AdvisorResponse{})
	time.Sleep(20 * time.Millisecond)
	cache.put("fresh", &interfaces.AdvisorResponse{})

	assert.Equal(t, 1, cache.Sweep())
	assert.Nil(t, cache.get("stale"))
	assert.NotNil(t, cache.get("fresh"))
}

func TestModelFamilyGate(t *testing.T) {
	cfg := &common.AdvisorConfig{Provider: "claude", APIKey: "key", Model: "claude-haiku-3"}
	_, err := NewAdvisorModel(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrModelUnsupported)

	cfg = &common.AdvisorConfig{Provider: "claude", APIKey: "key", Model: "claude-sonnet-4-20250514"}
	model, err := NewAdvisorModel(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "claude-sonnet-4-20250514", model.ModelName())

	// No API key means offline mode, not an error.
	cfg = &common.AdvisorConfig{Provider: "claude", Model: "claude-sonnet-4-20250514"}
	model, err = NewAdvisorModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, model)
}
