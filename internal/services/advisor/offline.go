package advisor

import (
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/models"
)

const offlineModelName = "offline-heuristic"

// offlineResponse synthesizes deterministic guidance when no external
// model is configured or reachable. It always proposes one conservative
// timing mutation that widens the request delay window, nudges trust up
// by five points, and tells the engine to keep going.
func offlineResponse(envelope *interfaces.AdvisorContext) *interfaces.AdvisorResponse {
	minMs, maxMs := 2000, 5000
	if envelope.DNA != nil {
		minMs = envelope.DNA.Timing.DelayRange.MinMs
		maxMs = envelope.DNA.Timing.DelayRange.MaxMs
	}

	trustScore := models.ClampTrustScore(envelope.Target.TrustScore + 5)

	return &interfaces.AdvisorResponse{
		Mutations: []interfaces.MutationProposal{
			{
				Gene: models.GeneTiming,
				Change: map[string]interface{}{
					"delay_range": map[string]interface{}{
						"min_ms": minMs + 1000,
						"max_ms": maxMs + 2000,
					},
				},
				Reason:     "Widen request spacing to look less mechanical",
				Confidence: 0.5,
				RiskLevel:  models.RiskLow,
			},
		},
		Trust: &interfaces.TrustEvaluation{
			TrustScore:     trustScore,
			Signals:        []string{"offline heuristic"},
			Recommendation: "Proceed slowly and keep observing",
			ShouldContinue: true,
		},
		Strategy: &interfaces.StrategyDecision{
			Action: "continue",
			Reason: "No model available; defaulting to cautious continuation",
		},
		Model: offlineModelName,
		Mock:  true,
	}
}
