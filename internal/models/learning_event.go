package models

import "time"

// EventType classifies a learning event.
type EventType string

const (
	EventBirth      EventType = "birth"
	EventMutation   EventType = "mutation"
	EventMilestone  EventType = "milestone"
	EventChallenge  EventType = "challenge"
	EventDiscovery  EventType = "discovery"
	EventGreenLight EventType = "green_light"
)

// LearningEvent is an append-only audit entry recording how a target's
// behavioral profile evolved and why. Rows are never updated in place.
type LearningEvent struct {
	ID              string    `json:"id" badgerhold:"key"`
	TargetID        string    `json:"target_id" badgerhold:"index"`
	DnaVersionID    string    `json:"dna_version_id,omitempty"`
	EventType       EventType `json:"event_type"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	AdvisorInsight  string    `json:"advisor_insight,omitempty"`
	AdvisorConfid   float64   `json:"advisor_confidence,omitempty"`
	AdvisorModel    string    `json:"advisor_model,omitempty"`
	DnaChanges      string    `json:"dna_changes,omitempty"`
	BeforeState     string    `json:"before_state,omitempty"`
	AfterState      string    `json:"after_state,omitempty"`
	TrustImpact     int       `json:"trust_impact"`
	ChallengeType   string    `json:"challenge_type,omitempty"`
	ChallengeSolved bool      `json:"challenge_solved,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
