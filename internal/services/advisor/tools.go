package advisor

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/chameleon/internal/interfaces"
)

// ToolSpec is the provider-neutral declaration of an advisor tool. Each
// provider translates the spec into its own function-calling schema.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]interface{}
	Required    []string
}

// AdvisorTools returns the fixed tool schema the advisor exposes to the
// model. The names and parameter shapes are part of the external
// contract and must not drift.
func AdvisorTools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        interfaces.ToolSuggestDnaMutation,
			Description: "Propose a shallow mutation to a single gene of the target's behavioral DNA.",
			Properties: map[string]interface{}{
				"gene": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"identity", "timing", "network", "interaction", "capabilities"},
					"description": "The DNA gene to mutate",
				},
				"change": map[string]interface{}{
					"type":        "object",
					"description": "Shallow field patch applied to the gene",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Why this mutation should help",
				},
				"confidence": map[string]interface{}{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "Confidence in the mutation, 0 to 1",
				},
				"riskLevel": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"low", "medium", "high"},
					"description": "How likely the mutation is to trip detection",
				},
			},
			Required: []string{"gene", "change", "reason", "confidence", "riskLevel"},
		},
		{
			Name:        interfaces.ToolEvaluateTrustStatus,
			Description: "Evaluate the current trust standing of the session against the target.",
			Properties: map[string]interface{}{
				"trustScore": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"maximum":     100,
					"description": "Assessed trust score",
				},
				"signals": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Signals supporting the assessment",
				},
				"recommendation": map[string]interface{}{
					"type":        "string",
					"description": "Short operator-facing recommendation",
				},
				"shouldContinue": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether the crawl should keep going",
				},
			},
			Required: []string{"trustScore", "recommendation", "shouldContinue"},
		},
		{
			Name:        interfaces.ToolDetermineStrategy,
			Description: "Choose the next strategic action for the crawl session.",
			Properties: map[string]interface{}{
				"action": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"continue", "pause", "adapt", "retreat", "accelerate"},
					"description": "The strategy to follow",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Why this strategy fits the situation",
				},
				"parameters": map[string]interface{}{
					"type":        "object",
					"description": "Optional strategy parameters",
				},
			},
			Required: []string{"action", "reason"},
		},
	}
}

const systemPrompt = `You are the adaptation advisor for a web reconnaissance engine.
You receive the state of one target: its behavioral DNA profile, recent request
observations, learning history, and any active anti-bot challenge. Respond only
through the provided tools: propose gene-level DNA mutations where they would
reduce detection, evaluate the current trust standing, and pick one strategy.
Prefer conservative, low-risk changes. Never propose more than three mutations.`

// buildUserPrompt renders the context envelope for the model.
func buildUserPrompt(envelope *interfaces.AdvisorContext) (string, error) {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode advisor context: %w", err)
	}
	return fmt.Sprintf("Current target state:\n\n%s\n\nAnalyze the situation and respond with tool calls.", string(data)), nil
}
