package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/chameleon/internal/models"
)

// Advisor tool names. These are the exact tool identifiers exposed to the
// external model; a response may carry zero or more suggest_dna_mutation
// calls and at most one of each of the other two.
const (
	ToolSuggestDnaMutation  = "suggest_dna_mutation"
	ToolEvaluateTrustStatus = "evaluate_trust_status"
	ToolDetermineStrategy   = "determine_strategy"
)

// ObservationType labels a recent observation handed to the advisor.
type ObservationType string

const (
	ObservationBlocked   ObservationType = "blocked"
	ObservationChallenge ObservationType = "challenge"
	ObservationSuccess   ObservationType = "success"
)

// Observation is a short recent-history entry in the advisor context.
type Observation struct {
	Type      ObservationType `json:"type"`
	Summary   string          `json:"summary"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventSummary condenses a learning event for the advisor context.
type EventSummary struct {
	Type    models.EventType `json:"type"`
	Outcome string           `json:"outcome"`
}

// ChallengeInfo describes the challenge currently facing the session.
type ChallengeInfo struct {
	Type       string `json:"type"`
	Difficulty string `json:"difficulty,omitempty"`
	Attempts   int    `json:"attempts"`
}

// RequestQuickView is a one-line view of the most recent request.
type RequestQuickView struct {
	Method   string `json:"method"`
	URL      string `json:"url"`
	Status   int    `json:"status"`
	TimingMs int64  `json:"timing_ms"`
}

// TargetSummary condenses the target row for the advisor context.
type TargetSummary struct {
	ID         string                  `json:"id"`
	URL        string                  `json:"url"`
	Status     models.TargetStatus     `json:"status"`
	GreenLight models.GreenLightStatus `json:"green_light"`
	TrustScore int                     `json:"trust_score"`
}

// AdvisorContext is the envelope sent to the external model when the crawl
// engine asks for guidance.
type AdvisorContext struct {
	Target           TargetSummary     `json:"target"`
	DNA              *models.DNA       `json:"dna"`
	Observations     []Observation     `json:"observations,omitempty"`
	RecentEvents     []EventSummary    `json:"recent_events,omitempty"`
	CurrentChallenge *ChallengeInfo    `json:"current_challenge,omitempty"`
	LastRequest      *RequestQuickView `json:"last_request,omitempty"`
}

// MutationProposal is a parsed suggest_dna_mutation tool call.
type MutationProposal struct {
	Gene       models.Gene            `json:"gene" validate:"required"`
	Change     map[string]interface{} `json:"change" validate:"required,min=1"`
	Reason     string                 `json:"reason" validate:"required"`
	Confidence float64                `json:"confidence" validate:"gte=0,lte=1"`
	RiskLevel  models.RiskLevel       `json:"riskLevel" validate:"required,oneof=low medium high"`
}

// TrustEvaluation is a parsed evaluate_trust_status tool call.
type TrustEvaluation struct {
	TrustScore     int      `json:"trustScore" validate:"gte=0,lte=100"`
	Signals        []string `json:"signals"`
	Recommendation string   `json:"recommendation"`
	ShouldContinue bool     `json:"shouldContinue"`
}

// StrategyDecision is a parsed determine_strategy tool call.
type StrategyDecision struct {
	Action     string                 `json:"action" validate:"required,oneof=continue pause adapt retreat accelerate"`
	Reason     string                 `json:"reason" validate:"required"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// AdvisorResponse packages the validated tool calls from one consultation.
// Mock is true when the response was synthesized by the offline fallback;
// it is the only field callers should branch on to distinguish the two.
type AdvisorResponse struct {
	Mutations []MutationProposal `json:"mutations,omitempty"`
	Trust     *TrustEvaluation   `json:"trust,omitempty"`
	Strategy  *StrategyDecision  `json:"strategy,omitempty"`
	Model     string             `json:"model"`
	Mock      bool               `json:"mock"`
}

// AdvisorService analyzes a context envelope and returns mutation and
// strategy guidance. Implementations must degrade to a deterministic
// offline response rather than fail when no model is configured.
type AdvisorService interface {
	Analyze(ctx context.Context, envelope *AdvisorContext) (*AdvisorResponse, error)
}

// ToolCall is a raw structured tool invocation returned by a model
// provider before schema validation.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// AdvisorModel abstracts the chat-completion provider used by the advisor
// bridge. Invoke sends the system and user prompts with the fixed tool
// schema attached and returns the tool invocations the model emitted.
type AdvisorModel interface {
	Invoke(ctx context.Context, system, user string) ([]ToolCall, error)
	ModelName() string
	Close() error
}
