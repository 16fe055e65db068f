package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gene identifies a top-level DNA sub-record. Mutations apply at gene
// granularity as a shallow merge over the named sub-record only.
type Gene string

const (
	GeneIdentity     Gene = "identity"
	GeneTiming       Gene = "timing"
	GeneNetwork      Gene = "network"
	GeneInteraction  Gene = "interaction"
	GeneCapabilities Gene = "capabilities"
)

// ValidGene reports whether the label names a mutable gene.
func ValidGene(g Gene) bool {
	switch g {
	case GeneIdentity, GeneTiming, GeneNetwork, GeneInteraction, GeneCapabilities:
		return true
	}
	return false
}

// RiskLevel classifies how aggressive a proposed mutation is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// TrustImpact returns the learning-event trust adjustment for a mutation
// at this risk level.
func (r RiskLevel) TrustImpact() int {
	switch r {
	case RiskLow:
		return 5
	case RiskHigh:
		return -5
	default:
		return 0
	}
}

// IdentityGene describes the browser identity presented to the target.
type IdentityGene struct {
	UserAgent           string `json:"user_agent"`
	Viewport            string `json:"viewport"`
	Timezone            string `json:"timezone"`
	Language            string `json:"language"`
	Platform            string `json:"platform"`
	ColorDepth          int    `json:"color_depth"`
	DeviceMemory        int    `json:"device_memory"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
}

// DelayRange bounds the inter-request delay in milliseconds.
type DelayRange struct {
	MinMs int `json:"min_ms"`
	MaxMs int `json:"max_ms"`
}

// TimingGene describes pacing behavior between requests.
type TimingGene struct {
	ReadingSpeed  string     `json:"reading_speed"`
	TypingSpeed   string     `json:"typing_speed"`
	ClickPattern  string     `json:"click_pattern"`
	ScrollPattern string     `json:"scroll_pattern"`
	DelayRange    DelayRange `json:"delay_range"`
}

// NetworkGene describes the wire shape of outbound requests.
type NetworkGene struct {
	Headers        map[string]string `json:"headers"`
	HeaderOrder    []string          `json:"header_order"`
	TLSFingerprint string            `json:"tls_fingerprint"`
	HTTPVersion    string            `json:"http_version"`
	AcceptEncoding string            `json:"accept_encoding"`
	JA3Hash        string            `json:"ja3_hash,omitempty"`
}

// InteractionGene describes simulated user interaction patterns.
type InteractionGene struct {
	MouseMovement   string `json:"mouse_movement"`
	ScrollSpeed     string `json:"scroll_speed"`
	ClickPrecision  string `json:"click_precision"`
	ReadingStrategy string `json:"reading_strategy"`
	TabSwitching    bool   `json:"tab_switching"`
}

// CapabilitiesGene describes what the simulated client claims to support.
type CapabilitiesGene struct {
	JavaScript   bool `json:"javascript"`
	Cookies      bool `json:"cookies"`
	LocalStorage bool `json:"local_storage"`
	CaptchaSolve bool `json:"captcha_solve"`
	AltchaSolve  bool `json:"altcha_solve"`
}

// TemporalGene describes when the profile is willing to operate.
type TemporalGene struct {
	SessionDurationMin int    `json:"session_duration_min"`
	SessionDurationMax int    `json:"session_duration_max"`
	TimeOfDayPolicy    string `json:"time_of_day_policy"`
	DayOfWeekPolicy    string `json:"day_of_week_policy"`
}

// DNA is the behavioral profile used to shape outbound traffic against a
// single target. The temporal gene is carried in the profile but is not a
// mutation target.
type DNA struct {
	Identity     IdentityGene     `json:"identity"`
	Timing       TimingGene       `json:"timing"`
	Network      NetworkGene      `json:"network"`
	Interaction  InteractionGene  `json:"interaction"`
	Capabilities CapabilitiesGene `json:"capabilities"`
	Temporal     TemporalGene     `json:"temporal"`
}

// Clone returns a deep copy of the DNA. The maps and slices inside the
// network gene are the only reference types.
func (d *DNA) Clone() *DNA {
	out := *d
	if d.Network.Headers != nil {
		out.Network.Headers = make(map[string]string, len(d.Network.Headers))
		for k, v := range d.Network.Headers {
			out.Network.Headers[k] = v
		}
	}
	if d.Network.HeaderOrder != nil {
		out.Network.HeaderOrder = append([]string(nil), d.Network.HeaderOrder...)
	}
	return &out
}

// DnaSnapshot is an immutable versioned DNA record. Snapshots form a
// per-target ancestry tree via ParentID; lineage is append-only.
type DnaSnapshot struct {
	ID        string    `json:"id" badgerhold:"key"`
	TargetID  string    `json:"target_id" badgerhold:"index"`
	Version   string    `json:"version"`
	DnaJSON   string    `json:"dna_json"`
	ParentID  string    `json:"parent_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile decodes the stored DNA blob.
func (s *DnaSnapshot) Profile() (*DNA, error) {
	var d DNA
	if err := json.Unmarshal([]byte(s.DnaJSON), &d); err != nil {
		return nil, fmt.Errorf("failed to decode DNA snapshot %s: %w", s.ID, err)
	}
	return &d, nil
}

// EncodeDNA serializes a profile for storage.
func EncodeDNA(d *DNA) (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode DNA: %w", err)
	}
	return string(data), nil
}

// BumpPatchVersion increments the patch component of a semver string.
// "1.0.1" becomes "1.0.2". Malformed versions fall back to "1.0.1".
func BumpPatchVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "1.0.1"
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "1.0.1"
	}
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1)
}
