package models

import "time"

// SignalScores holds the five weighted sub-scores behind a trust score.
// Each score is in [0, 100].
type SignalScores struct {
	Fingerprint float64 `json:"fingerprint"`
	Behavior    float64 `json:"behavior"`
	Challenge   float64 `json:"challenge"`
	Session     float64 `json:"session"`
	Network     float64 `json:"network"`
}

// GreenLightState captures the outcome of one green-light calculation.
// A row is appended per calculation; rows are never updated in place.
type GreenLightState struct {
	ID            string           `json:"id" badgerhold:"key"`
	TargetID      string           `json:"target_id" badgerhold:"index"`
	Status        GreenLightStatus `json:"status"`
	TrustScore    int              `json:"trust_score"`
	Signals       SignalScores     `json:"signals"`
	DecayRate     float64          `json:"decay_rate"`
	EstablishedAt *time.Time       `json:"established_at,omitempty"`
	MaintainedFor int              `json:"maintained_for"`
	LostAt        *time.Time       `json:"lost_at,omitempty"`
	ReasonLost    string           `json:"reason_lost,omitempty"`
	ComputedAt    time.Time        `json:"computed_at"`
}

// NavigationCapability is the per-status action allowance returned to the
// crawl engine alongside a green-light state.
type NavigationCapability struct {
	CanNavigate     bool    `json:"can_navigate"`
	MaxRequestsPerS float64 `json:"max_requests_per_s"`
	AllowForms      bool    `json:"allow_forms"`
	Unrestricted    bool    `json:"unrestricted"`
	Note            string  `json:"note,omitempty"`
}
