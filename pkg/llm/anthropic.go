package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider talks to the Anthropic Messages API. Grounded on
// original_source/src/services/llm/anthropic_provider.py.
type AnthropicProvider struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicProvider constructs a provider bound to the given model
// (e.g. "claude-sonnet-4-5"). timeout bounds every request made through
// Chat and HealthCheck (spec §6.5 CLAUDE_TIMEOUT_SECONDS); zero means no
// additional deadline beyond whatever the caller's context carries.
func NewAnthropicProvider(apiKey, model string, timeout time.Duration) *AnthropicProvider {
	return &AnthropicProvider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
	}
}

func (p *AnthropicProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, tools []Tool, systemPrompt string, maxTokens int, temperature float64) (*Response, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages:    toAnthropicMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	resp := &Response{
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Raw:          msg,
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			var input map[string]any
			_ = json.Unmarshal(variant.Input, &input)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}
	return resp, nil
}

func (p *AnthropicProvider) FormatToolResult(toolUseID string, result any) Message {
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return Message{
		Role: "user",
		Content: []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(toolUseID, string(payload), false),
		},
	}
}

func (p *AnthropicProvider) FormatAssistantMessage(resp *Response) Message {
	msg, ok := resp.Raw.(*anthropic.Message)
	if !ok {
		return Message{Role: "assistant", Content: resp.Content}
	}
	var blocks []anthropic.ContentBlockParamUnion
	for _, b := range msg.Content {
		blocks = append(blocks, b.ToParam())
	}
	return Message{Role: "assistant", Content: blocks}
}

func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic health check: %w", err)
	}
	return nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch content := m.Content.(type) {
		case string:
			if m.Role == "assistant" {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(content)))
			} else {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
			}
		case []anthropic.ContentBlockParamUnion:
			if m.Role == "assistant" {
				out = append(out, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: content})
			} else {
				out = append(out, anthropic.MessageParam{Role: anthropic.MessageParamRoleUser, Content: content})
			}
		}
	}
	return out
}

func toAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema["properties"],
					Required:   toStringSlice(t.InputSchema["required"]),
				},
			},
		})
	}
	return out
}

func toStringSlice(v any) []string {
	raw, ok := v.([]string)
	if ok {
		return raw
	}
	anySlice, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(anySlice))
	for _, item := range anySlice {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
