package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
)

// claudeModel drives the Anthropic Messages API with the advisor tool set.
type claudeModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	temp      float64
}

func newClaudeModel(cfg *common.AdvisorConfig) (*claudeModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude advisor requires an API key")
	}
	return &claudeModel{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		temp:      float64(cfg.Temperature),
	}, nil
}

func (m *claudeModel) ModelName() string { return m.model }

func (m *claudeModel) Close() error { return nil }

func (m *claudeModel) Invoke(ctx context.Context, system, user string) ([]interfaces.ToolCall, error) {
	tools := make([]anthropic.ToolUnionParam, 0, 3)
	for _, spec := range AdvisorTools() {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: spec.Properties,
					Required:   spec.Required,
				},
			},
		})
	}

	message, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(m.model),
		MaxTokens:   m.maxTokens,
		Temperature: anthropic.Float(m.temp),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Tools: tools,
	})
	if err != nil {
		return nil, fmt.Errorf("claude request failed: %w", err)
	}

	calls := make([]interfaces.ToolCall, 0, len(message.Content))
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			calls = append(calls, interfaces.ToolCall{
				Name:      variant.Name,
				Arguments: json.RawMessage(variant.JSON.Input.Raw()),
			})
		}
	}
	return calls, nil
}
