package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
)

// ProviderType represents the AI provider type.
type ProviderType string

const (
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses the Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderOffline uses the deterministic offline fallback
	ProviderOffline ProviderType = "offline"
)

// ErrModelUnsupported indicates the configured model name does not belong
// to a family the advisor knows how to drive with tool calls.
var ErrModelUnsupported = errors.New("advisor model not supported")

// claudeFamilies and geminiFamilies gate which model names the advisor
// accepts; tool calling is only exercised against these families.
var (
	claudeFamilies = []string{"sonnet", "opus"}
	geminiFamilies = []string{"pro", "flash"}
)

// NewAdvisorModel builds the provider selected by configuration. A missing
// API key or an explicit "offline" provider returns nil, which puts the
// advisor service into offline fallback mode.
func NewAdvisorModel(ctx context.Context, cfg *common.AdvisorConfig) (interfaces.AdvisorModel, error) {
	provider := ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	switch provider {
	case ProviderOffline, "":
		return nil, nil
	case ProviderClaude:
		if cfg.APIKey == "" {
			return nil, nil
		}
		if err := checkModelFamily(cfg.Model, claudeFamilies); err != nil {
			return nil, err
		}
		return newClaudeModel(cfg)
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, nil
		}
		if err := checkModelFamily(cfg.Model, geminiFamilies); err != nil {
			return nil, err
		}
		return newGeminiModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown advisor provider %q (supported: claude, gemini, offline)", cfg.Provider)
	}
}

func checkModelFamily(model string, families []string) error {
	lowered := strings.ToLower(model)
	for _, family := range families {
		if strings.Contains(lowered, family) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is outside the supported families %v", ErrModelUnsupported, model, families)
}
