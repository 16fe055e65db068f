package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"google.golang.org/genai"
)

// geminiModel drives the Gemini API with the advisor tool set exposed as
// function declarations.
type geminiModel struct {
	client *genai.Client
	model  string
	temp   float32
	tokens int32
}

func newGeminiModel(ctx context.Context, cfg *common.AdvisorConfig) (*geminiModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini advisor requires an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &geminiModel{
		client: client,
		model:  cfg.Model,
		temp:   cfg.Temperature,
		tokens: int32(cfg.MaxTokens),
	}, nil
}

func (m *geminiModel) ModelName() string { return m.model }

func (m *geminiModel) Close() error { return nil }

func (m *geminiModel) Invoke(ctx context.Context, system, user string) ([]interfaces.ToolCall, error) {
	declarations := make([]*genai.FunctionDeclaration, 0, 3)
	for _, spec := range AdvisorTools() {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: schemaProperties(spec.Properties),
				Required:   spec.Required,
			},
		})
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(m.temp),
		MaxOutputTokens:   m.tokens,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: declarations},
		},
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(user), config)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	calls := make([]interfaces.ToolCall, 0, 3)
	for _, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode function call arguments: %w", err)
		}
		calls = append(calls, interfaces.ToolCall{Name: fc.Name, Arguments: args})
	}
	return calls, nil
}

// schemaProperties translates neutral JSON-schema property maps into the
// genai schema type.
func schemaProperties(props map[string]interface{}) map[string]*genai.Schema {
	out := make(map[string]*genai.Schema, len(props))
	for name, raw := range props {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out[name] = schemaFromMap(prop)
	}
	return out
}

func schemaFromMap(prop map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		switch t {
		case "string":
			schema.Type = genai.TypeString
		case "integer":
			schema.Type = genai.TypeInteger
		case "number":
			schema.Type = genai.TypeNumber
		case "boolean":
			schema.Type = genai.TypeBoolean
		case "array":
			schema.Type = genai.TypeArray
		case "object":
			schema.Type = genai.TypeObject
		}
	}
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}
	if values, ok := prop["enum"].([]string); ok {
		schema.Enum = values
	}
	if items, ok := prop["items"].(map[string]interface{}); ok {
		schema.Items = schemaFromMap(items)
	}
	return schema
}
