package chatclient

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicProvider = "anthropic"

const defaultAnthropicMaxTokens = 4096

// AnthropicClient implements ChatClient on top of the Anthropic messages API.
type AnthropicClient struct {
	api       anthropic.Client
	maxTokens int64
}

// NewAnthropicClient creates a client. If apiKey is empty the SDK reads
// ANTHROPIC_API_KEY from the environment.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicClient{
		api:       anthropic.NewClient(opts...),
		maxTokens: defaultAnthropicMaxTokens,
	}
}

func (c *AnthropicClient) CreateChatCompletion(ctx context.Context, model string, messages []ChatMessage, tools []ToolDescriptor) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, &ClientError{Code: CodeInvalidRequest, Provider: anthropicProvider, Message: "empty chat history"}
	}

	system, params := toAnthropicMessages(messages)

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		Messages:  params,
		Tools:     toAnthropicTools(tools),
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.api.Messages.New(ctx, req)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	content, calls := parseAnthropicContent(msg.Content)

	if len(calls) > 0 {
		// Claude often narrates before calling tools; the text travels with
		// the calls so it reaches memory and the user.
		return &ChatResult{Kind: ResultToolCalls, Content: content, ToolCalls: calls}, nil
	}
	if content == "" {
		return nil, &ClientError{Code: CodeEmptyResponse, Provider: anthropicProvider, Message: "response contained no text or tool_use blocks"}
	}
	return &ChatResult{
		Kind:     ResultMessage,
		Content:  content,
		TurnOver: msg.StopReason != anthropic.StopReasonMaxTokens,
	}, nil
}

// parseAnthropicContent splits a response's content blocks into accumulated
// text and tool calls.
func parseAnthropicContent(blocks []anthropic.ContentBlockUnion) (string, []ToolCall) {
	var content string
	var calls []ToolCall
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if content != "" {
				content += "\n"
			}
			content += block.Text
		case "tool_use":
			args := json.RawMessage(block.Input)
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			calls = append(calls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	return content, calls
}

// toAnthropicMessages converts the neutral history to messages API params.
// System messages are hoisted into the request-level system prompt, and runs
// of consecutive tool results are grouped into a single user message so each
// tool_result block directly follows its tool_use turn.
func toAnthropicMessages(messages []ChatMessage) (string, []anthropic.MessageParam) {
	var system string
	out := make([]anthropic.MessageParam, 0, len(messages))

	var pendingResults []anthropic.ContentBlockParamUnion
	flushResults := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range messages {
		if m.Role != RoleTool {
			flushResults()
		}
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		}
	}
	flushResults()
	return system, out
}

func toAnthropicTools(tools []ToolDescriptor) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := t.Parameters["properties"]; ok {
			schema.Properties = props
		}
		switch req := t.Parameters["required"].(type) {
		case []string:
			schema.Required = req
		case []any:
			for _, r := range req {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}
	return out
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(apiErr.StatusCode, anthropicProvider, apiErr.Error(), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ClientError{Code: CodeNetwork, Provider: anthropicProvider, Message: err.Error(), Cause: err}
}
