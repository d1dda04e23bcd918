package chatclient

import (
	"context"
	"encoding/json"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-issued request to invoke a tool. It is immutable once
// issued; the ID is opaque and unique within a turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ChatMessage is the fundamental unit of conversation history.
//
// ToolCalls is populated only on assistant messages that request tools.
// ToolCallID and ToolName are populated only on tool messages and link the
// result back to the originating call.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// SystemMessage creates a system ChatMessage.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage creates a user ChatMessage.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant ChatMessage carrying final text.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// AssistantToolCalls creates an assistant ChatMessage carrying tool calls,
// with optional accompanying text.
func AssistantToolCalls(content string, calls []ToolCall) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage creates a tool ChatMessage answering the call with the given ID.
func ToolMessage(toolCallID, toolName, content string, isError bool) ChatMessage {
	return ChatMessage{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		IsError:    isError,
	}
}

// ResultKind discriminates the two possible chat completion outcomes.
type ResultKind string

const (
	// ResultMessage means the model produced a final text answer.
	ResultMessage ResultKind = "message"
	// ResultToolCalls means the model requested one or more tool invocations.
	ResultToolCalls ResultKind = "tool_calls"
)

// ChatResult is the discriminated response from a chat completion: either a
// final assistant message or an ordered batch of tool calls. Callers switch
// on Kind; exactly one of Content/ToolCalls is meaningful.
type ChatResult struct {
	Kind    ResultKind
	Content string
	// TurnOver is false when the model stopped early (e.g. output length
	// limit) and expects to be called again to continue its answer.
	TurnOver  bool
	ToolCalls []ToolCall
}

// ToolDescriptor advertises a tool's name and input schema to the model.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// ChatClient sends a full message sequence plus tool descriptors to a model
// and returns the discriminated result. Implementations classify transport
// and provider failures into the error taxonomy in errors.go.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, model string, messages []ChatMessage, tools []ToolDescriptor) (*ChatResult, error)
}
