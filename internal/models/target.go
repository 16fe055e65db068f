package models

import "time"

// TargetStatus represents the lifecycle state of a target.
type TargetStatus string

const (
	TargetStatusDiscovering TargetStatus = "discovering"
	TargetStatusLearning    TargetStatus = "learning"
	TargetStatusEstablished TargetStatus = "established"
	TargetStatusPaused      TargetStatus = "paused"
	TargetStatusFailed      TargetStatus = "failed"
)

// TargetType represents the kind of target. Only web targets are handled
// today; other values are reserved.
type TargetType string

const (
	TargetTypeWeb TargetType = "web"
)

// GreenLightStatus is the trust tier computed by the green-light calculator.
type GreenLightStatus string

const (
	GreenLightRed         GreenLightStatus = "RED"
	GreenLightYellow      GreenLightStatus = "YELLOW"
	GreenLightGreen       GreenLightStatus = "GREEN"
	GreenLightEstablished GreenLightStatus = "ESTABLISHED"
)

// Target is the unit of adaptation. One crawl session owns a target at a
// time and is the only writer of its mutable fields.
type Target struct {
	ID               string           `json:"id" badgerhold:"key"`
	URL              string           `json:"url"`
	Type             TargetType       `json:"type"`
	Status           TargetStatus     `json:"status" badgerhold:"index"`
	GreenLightStatus GreenLightStatus `json:"green_light_status"`
	TrustScore       int              `json:"trust_score"`
	EstablishedAt    *time.Time       `json:"established_at,omitempty"`
	MaintainedFor    int              `json:"maintained_for"`
	IsAuthenticated  bool             `json:"is_authenticated"`
	AuthEndpoint     string           `json:"auth_endpoint,omitempty"`
	AuthUsername     string           `json:"auth_username,omitempty"`
	SessionCookies   string           `json:"session_cookies,omitempty"`
	CurrentDnaID     string           `json:"current_dna_id,omitempty"`
	LastSeen         time.Time        `json:"last_seen,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TargetPatch carries the per-iteration field updates applied by the
// owning crawl session. Nil fields are left untouched.
type TargetPatch struct {
	Status           *TargetStatus
	GreenLightStatus *GreenLightStatus
	TrustScore       *int
	EstablishedAt    *time.Time
	MaintainedFor    *int
	IsAuthenticated  *bool
	SessionCookies   *string
	CurrentDnaID     *string
	LastSeen         *time.Time
}

// ClampTrustScore bounds a trust score to [0, 100].
func ClampTrustScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
