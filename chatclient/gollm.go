package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmClient implements ChatClient through the gollm library, which gives
// access to every provider gollm supports behind one configuration surface.
// gollm's Generate API is prompt-oriented, so the conversation is flattened
// into a single prompt and tool calls are recovered from structured JSON in
// the response text.
type GollmClient struct {
	provider string
	llm      gollm.LLM
}

// NewGollmClient creates a client for the given gollm provider name
// ("openai", "anthropic", "ollama", ...). An empty apiKey defers to the
// provider's environment variable.
func NewGollmClient(provider, model, apiKey string) (*GollmClient, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxRetries(0), // retries are handled by Retry in this package
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}
	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm client for %s: %w", provider, err)
	}
	return &GollmClient{provider: provider, llm: llm}, nil
}

func (c *GollmClient) CreateChatCompletion(ctx context.Context, model string, messages []ChatMessage, tools []ToolDescriptor) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, &ClientError{Code: CodeInvalidRequest, Provider: c.provider, Message: "empty chat history"}
	}
	if model != "" {
		c.llm.SetOption("model", model)
	}

	prompt := c.buildPrompt(messages, tools)
	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, c.classifyError(err)
	}

	calls := parseEmbeddedToolCalls(text)
	if len(calls) > 0 {
		return &ChatResult{Kind: ResultToolCalls, ToolCalls: calls}, nil
	}
	return &ChatResult{Kind: ResultMessage, Content: text, TurnOver: true}, nil
}

func (c *GollmClient) buildPrompt(messages []ChatMessage, tools []ToolDescriptor) *gollm.Prompt {
	var system string
	var parts []string

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system += m.Content + "\n"
		case RoleUser:
			parts = append(parts, m.Content)
		case RoleAssistant:
			if m.Content != "" {
				parts = append(parts, "[Assistant]: "+m.Content)
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, fmt.Sprintf("[Tool Call %s]: %s(%s)", tc.ID, tc.Name, tc.Arguments))
			}
		case RoleTool:
			prefix := "[Tool Result]"
			if m.IsError {
				prefix = "[Tool Error]"
			}
			parts = append(parts, fmt.Sprintf("%s %s: %s", prefix, m.ToolName, m.Content))
		}
	}

	var opts []gollm.PromptOption
	if system != "" {
		opts = append(opts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}
	if len(tools) > 0 {
		gollmTools := make([]gollm.Tool, 0, len(tools))
		for _, t := range tools {
			gollmTools = append(gollmTools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, gollm.WithTools(gollmTools))
	}

	return gollm.NewPrompt(strings.Join(parts, "\n"), opts...)
}

// parseEmbeddedToolCalls extracts tool calls that gollm returns as JSON
// embedded in the response text.
func parseEmbeddedToolCalls(text string) []ToolCall {
	type rawCall struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	var rawCalls []rawCall

	if start := strings.Index(text, `[{"name"`); start != -1 {
		if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
			return nil
		}
	} else if start := strings.Index(text, `{"tool_calls"`); start != -1 {
		var wrapper struct {
			ToolCalls []rawCall `json:"tool_calls"`
		}
		if err := json.Unmarshal([]byte(text[start:]), &wrapper); err != nil {
			return nil
		}
		rawCalls = wrapper.ToolCalls
	} else {
		return nil
	}

	calls := make([]ToolCall, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: rc.Arguments,
		})
	}
	return calls
}

// classifyError maps a gollm error to the taxonomy. gollm does not expose
// typed errors, so classification keys off the message content.
func (c *GollmClient) classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	code := CodeNetwork
	status := 0
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		code, status = CodeInvalidAPIKey, 401
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		code, status = CodeRateLimit, 429
	case strings.Contains(msg, "402") || strings.Contains(msg, "quota") || strings.Contains(msg, "credit"):
		code, status = CodeInsufficientCredits, 402
	case strings.Contains(msg, "context length") || strings.Contains(msg, "too many tokens"):
		code, status = CodeContextLength, 413
	case strings.Contains(msg, "500") || strings.Contains(msg, "internal server") || strings.Contains(msg, "unavailable"):
		code, status = CodeServiceUnavailable, 503
	}
	return &ClientError{Code: code, Provider: c.provider, StatusCode: status, Message: err.Error(), Cause: err}
}
