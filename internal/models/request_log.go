package models

import "time"

// RequestLog records one outbound request and, once completed, its
// response. The response fields are filled in by exactly one update after
// creation; the row is otherwise immutable.
type RequestLog struct {
	ID                string    `json:"id" badgerhold:"key"`
	TargetID          string    `json:"target_id" badgerhold:"index"`
	DnaVersionID      string    `json:"dna_version_id,omitempty"`
	Method            string    `json:"method"`
	URL               string    `json:"url"`
	RequestHeaders    string    `json:"request_headers,omitempty"`
	BodyPreview       string    `json:"body_preview,omitempty"`
	ResponseStatus    int       `json:"response_status"`
	ResponseHeaders   string    `json:"response_headers,omitempty"`
	ResponsePreview   string    `json:"response_preview,omitempty"`
	WasBlocked        bool      `json:"was_blocked"`
	BlockReason       string    `json:"block_reason,omitempty"`
	ChallengeDetected bool      `json:"challenge_detected"`
	ChallengeType     string    `json:"challenge_type,omitempty"`
	TimingMs          int64     `json:"timing_ms"`
	CreatedAt         time.Time `json:"created_at"`
	CompletedAt       time.Time `json:"completed_at,omitempty"`
}

// RequestLogResponse carries the one-shot response update for a pending
// request log row.
type RequestLogResponse struct {
	Status            int
	Headers           string
	BodyPreview       string
	WasBlocked        bool
	BlockReason       string
	ChallengeDetected bool
	ChallengeType     string
	TimingMs          int64
}
