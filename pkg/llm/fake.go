package llm

import "context"

// FakeProvider is a scripted Provider for tests: each call to Chat pops the
// next response off Responses, in order.
type FakeProvider struct {
	ModelName string
	Responses []*Response
	Err       error

	Calls int
}

func (f *FakeProvider) Name() string  { return "fake" }
func (f *FakeProvider) Model() string { return f.ModelName }

func (f *FakeProvider) Chat(ctx context.Context, messages []Message, tools []Tool, systemPrompt string, maxTokens int, temperature float64) (*Response, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Calls >= len(f.Responses) {
		return &Response{StopReason: "end_turn"}, nil
	}
	resp := f.Responses[f.Calls]
	f.Calls++
	return resp, nil
}

func (f *FakeProvider) FormatToolResult(toolUseID string, result any) Message {
	return Message{Role: "user", Content: result}
}

func (f *FakeProvider) FormatAssistantMessage(resp *Response) Message {
	return Message{Role: "assistant", Content: resp.Content}
}

func (f *FakeProvider) HealthCheck(ctx context.Context) error {
	return f.Err
}

var _ Provider = (*FakeProvider)(nil)
