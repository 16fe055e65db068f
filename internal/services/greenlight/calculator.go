package greenlight

import (
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/models"
)

// Hysteresis thresholds. Promotion happens at the ascending levels;
// demotion from ESTABLISHED only once the score sinks below 70.
const (
	thresholdYellow      = 25
	thresholdGreen       = 50
	thresholdEstablished = 75
	thresholdDemotion    = 70
)

// decayFactor scales the reported score decay for telemetry.
const decayFactor = 0.1

// Calculator computes green-light states from recent request history and
// the active DNA. Calculation is pure: identical inputs produce identical
// outputs, and the only clock it sees is the caller-provided now.
type Calculator struct {
	logger arbor.ILogger
}

// NewCalculator creates a new Calculator instance
func NewCalculator(logger arbor.ILogger) *Calculator {
	return &Calculator{logger: logger}
}

// Calculate produces a fresh green-light state for the target. The target
// row supplies the previous status, score and maintained-for counter; the
// caller persists the result and updates the target.
func (c *Calculator) Calculate(target *models.Target, dna *models.DNA, recent []*models.RequestLog, now time.Time) *models.GreenLightState {
	signals := models.SignalScores{
		Fingerprint: fingerprintScore(dna, recent),
		Behavior:    behaviorScore(recent),
		Challenge:   challengeScore(recent),
		Session:     sessionScore(recent),
		Network:     networkScore(recent),
	}

	aggregate := weightFingerprint*signals.Fingerprint +
		weightBehavior*signals.Behavior +
		weightChallenge*signals.Challenge +
		weightSession*signals.Session +
		weightNetwork*signals.Network
	trustScore := models.ClampTrustScore(int(math.Round(aggregate)))

	decayRate := 0.0
	if target.TrustScore > trustScore {
		decayRate = float64(target.TrustScore-trustScore) * decayFactor
	}

	state := &models.GreenLightState{
		ID:            common.NewStateID(),
		TargetID:      target.ID,
		TrustScore:    trustScore,
		Signals:       signals,
		DecayRate:     decayRate,
		EstablishedAt: target.EstablishedAt,
		MaintainedFor: target.MaintainedFor,
		ComputedAt:    now,
	}

	c.applyTransition(target.GreenLightStatus, trustScore, state, now)

	c.logger.Debug().
		Str("target_id", target.ID).
		Str("status", string(state.Status)).
		Int("trust_score", trustScore).
		Float64("decay_rate", decayRate).
		Msg("Green-light state calculated")

	return state
}

// applyTransition moves the status at most one level up or down from the
// previous status, and maintains the established counter.
func (c *Calculator) applyTransition(previous models.GreenLightStatus, score int, state *models.GreenLightState, now time.Time) {
	switch previous {
	case models.GreenLightRed:
		if score >= thresholdYellow {
			state.Status = models.GreenLightYellow
		} else {
			state.Status = models.GreenLightRed
		}
	case models.GreenLightYellow:
		switch {
		case score >= thresholdGreen:
			state.Status = models.GreenLightGreen
		case score < thresholdYellow:
			state.Status = models.GreenLightRed
		default:
			state.Status = models.GreenLightYellow
		}
	case models.GreenLightGreen:
		switch {
		case score >= thresholdEstablished:
			state.Status = models.GreenLightEstablished
			establishedAt := now
			state.EstablishedAt = &establishedAt
			state.MaintainedFor = 0
		case score < thresholdGreen:
			state.Status = models.GreenLightYellow
		default:
			state.Status = models.GreenLightGreen
		}
	case models.GreenLightEstablished:
		if score < thresholdDemotion {
			state.Status = models.GreenLightGreen
			state.MaintainedFor = 0
			lostAt := now
			state.LostAt = &lostAt
			state.ReasonLost = "trust score dropped below demotion threshold"
		} else {
			state.Status = models.GreenLightEstablished
			state.MaintainedFor++
		}
	default:
		// Unknown previous status starts the ladder over.
		state.Status = models.GreenLightRed
	}
}

// Transitioned reports whether the computed state changed tier relative to
// the previous status, which is what warrants a history row.
func Transitioned(previous models.GreenLightStatus, state *models.GreenLightState) bool {
	return previous != state.Status
}
