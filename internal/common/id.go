package common

import (
	"github.com/google/uuid"
)

// NewTargetID generates a unique target ID with the "tgt_" prefix
func NewTargetID() string {
	return "tgt_" + uuid.New().String()
}

// NewDnaID generates a unique DNA snapshot ID with the "dna_" prefix
func NewDnaID() string {
	return "dna_" + uuid.New().String()
}

// NewEventID generates a unique learning event ID with the "evt_" prefix
func NewEventID() string {
	return "evt_" + uuid.New().String()
}

// NewRequestID generates a unique request log ID with the "req_" prefix
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewSessionID generates a unique crawl session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewStateID generates a unique green-light state ID with the "gls_" prefix
func NewStateID() string {
	return "gls_" + uuid.New().String()
}
