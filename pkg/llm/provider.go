// Package llm defines the provider-agnostic chat contract the RCA
// orchestrator and semantic correlator depend on, plus one concrete
// back-end. Grounded on
// original_source/src/services/llm/base.py (the abstract LLMProvider) and
// original_source/src/services/llm/anthropic_provider.py.
package llm

import "context"

// ToolCall is one function-call the model asked the caller to execute.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Response is a provider-normalized chat completion.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	StopReason   string
	InputTokens  int
	OutputTokens int
	Raw          any // the provider's native response, for FormatAssistantMessage
}

// HasToolCalls reports whether the model asked to invoke any tools.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// IsComplete reports whether the provider signaled a natural stop with no
// pending tool calls — i.e. the model believes it is done.
func (r *Response) IsComplete() bool {
	return !r.HasToolCalls() && r.StopReason != "tool_use"
}

// Tool is a provider-agnostic descriptor of a callable tool: name,
// description, and a JSON Schema of its arguments.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Message is one turn in the conversation transcript, in the
// provider-neutral shape callers build up; concrete providers translate it
// to their own wire format.
type Message struct {
	Role    string // "user", "assistant"
	Content any
}

// Provider is the capability contract every concrete LLM back-end
// implements. The orchestrator and semantic correlator depend only on this
// interface, never on a specific vendor SDK.
type Provider interface {
	Name() string
	Model() string

	// Chat sends the transcript plus tool declarations and a system prompt,
	// returning a normalized Response.
	Chat(ctx context.Context, messages []Message, tools []Tool, systemPrompt string, maxTokens int, temperature float64) (*Response, error)

	// FormatToolResult builds the provider-native message representing the
	// result of one tool call, to append to the transcript before the next
	// Chat call.
	FormatToolResult(toolUseID string, result any) Message

	// FormatAssistantMessage re-wraps a Response's raw content as an
	// assistant-role transcript entry, so the next turn includes exactly
	// what the model said (text and tool_use blocks alike).
	FormatAssistantMessage(resp *Response) Message

	// HealthCheck performs a minimal round-trip to confirm the backend is
	// reachable and credentials are valid.
	HealthCheck(ctx context.Context) error
}
