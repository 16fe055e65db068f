package greenlight

import (
	"strings"
	"time"

	"github.com/ternarybob/chameleon/internal/models"
)

// Signal weights. They sum to 1.0; the aggregate trust score is the
// weighted sum of the five sub-scores.
const (
	weightFingerprint = 0.25
	weightBehavior    = 0.25
	weightChallenge   = 0.20
	weightSession     = 0.15
	weightNetwork     = 0.15
)

// Per-check limits from the scoring model.
const (
	humanLikeMinInterval = 500 * time.Millisecond
	burstMinInterval     = 100 * time.Millisecond
	maxRepeatedFailures  = 2
	maxAvgResponseMs     = 10000
)

// scoreChecks converts a set of boolean checks into a 0-100 score: the
// fraction of passing checks times 100. No checks means a perfect score.
func scoreChecks(checks ...bool) float64 {
	if len(checks) == 0 {
		return 100
	}
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	return float64(passed) / float64(len(checks)) * 100
}

// fingerprintScore checks that the wire identity the DNA presents has not
// tripped fingerprint-level detection.
func fingerprintScore(dna *models.DNA, recent []*models.RequestLog) float64 {
	tlsConsistent := true
	for _, log := range recent {
		if log.WasBlocked && strings.Contains(strings.ToLower(log.BlockReason), "fingerprint") {
			tlsConsistent = false
			break
		}
	}

	headerOrderPreserved := len(dna.Network.HeaderOrder) > 0
	ja3Valid := dna.Network.JA3Hash != "" || dna.Network.TLSFingerprint != ""
	http2Supported := dna.Network.HTTPVersion == "2"

	return scoreChecks(tlsConsistent, headerOrderPreserved, ja3Valid, http2Supported)
}

// behaviorScore checks the observed request pacing against human-like
// bounds. The mouse and scroll checks are placeholders until interaction
// telemetry is captured; they always pass.
func behaviorScore(recent []*models.RequestLog) float64 {
	timingHumanLike := true
	noBursts := true

	intervals := requestIntervals(recent)
	if len(intervals) > 0 {
		var total time.Duration
		min := intervals[0]
		for _, iv := range intervals {
			total += iv
			if iv < min {
				min = iv
			}
		}
		avg := total / time.Duration(len(intervals))
		timingHumanLike = avg >= humanLikeMinInterval
		noBursts = min >= burstMinInterval
	}

	mouseNatural := true
	scrollNatural := true

	return scoreChecks(timingHumanLike, noBursts, mouseNatural, scrollNatural)
}

// challengeScore checks how the session has been handling anti-bot
// challenges in the recent window.
func challengeScore(recent []*models.RequestLog) float64 {
	unsolved := 0
	blockedChallenges := 0
	for _, log := range recent {
		if log.ChallengeDetected {
			unsolved++
			if log.WasBlocked {
				blockedChallenges++
			}
		}
	}

	noUnsolvedChallenges := unsolved == 0
	failuresWithinBudget := blockedChallenges <= maxRepeatedFailures
	solutionTimeAcceptable := true

	return scoreChecks(noUnsolvedChallenges, failuresWithinBudget, solutionTimeAcceptable)
}

// sessionScore checks whether the target is treating the session as an
// accepted returning client.
func sessionScore(recent []*models.RequestLog) float64 {
	cookiesAccepted := false
	var firstSuccess, lastSuccess time.Time
	refreshResponses := 0
	for _, log := range recent {
		if log.ResponseStatus == 200 {
			cookiesAccepted = true
			ts := log.CreatedAt
			if firstSuccess.IsZero() || ts.Before(firstSuccess) {
				firstSuccess = ts
			}
			if ts.After(lastSuccess) {
				lastSuccess = ts
			}
		}
		if log.ResponseStatus == 401 {
			refreshResponses++
		}
	}

	// Session duration is derived from the first and last success; it is
	// vacuously healthy until there are at least two successes.
	durationHealthy := true
	if !firstSuccess.IsZero() && lastSuccess.After(firstSuccess) {
		durationHealthy = lastSuccess.Sub(firstSuccess) >= 0
	}

	noTokenRefreshLoop := refreshResponses < 3

	return scoreChecks(cookiesAccepted, durationHealthy, noTokenRefreshLoop)
}

// networkScore checks for rate limiting and network-level blocking.
func networkScore(recent []*models.RequestLog) float64 {
	noRateLimit := true
	noIPBlacklist := true
	var totalMs int64
	completed := 0
	for _, log := range recent {
		if log.ResponseStatus == 429 {
			noRateLimit = false
		}
		if strings.Contains(strings.ToLower(log.BlockReason), "ip_blacklist") {
			noIPBlacklist = false
		}
		if log.TimingMs > 0 {
			totalMs += log.TimingMs
			completed++
		}
	}

	responseTimeAcceptable := true
	if completed > 0 {
		responseTimeAcceptable = totalMs/int64(completed) <= maxAvgResponseMs
	}

	return scoreChecks(noRateLimit, noIPBlacklist, responseTimeAcceptable)
}

// requestIntervals returns the gaps between consecutive requests in the
// window, oldest to newest.
func requestIntervals(recent []*models.RequestLog) []time.Duration {
	if len(recent) < 2 {
		return nil
	}

	// Recent logs arrive newest first; walk them in chronological order.
	intervals := make([]time.Duration, 0, len(recent)-1)
	for i := len(recent) - 1; i > 0; i-- {
		gap := recent[i-1].CreatedAt.Sub(recent[i].CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		intervals = append(intervals, gap)
	}
	return intervals
}
