package session

// EventKind identifies the type of session event.
type EventKind string

const (
	EventSessionStarted    EventKind = "session_started"
	EventSessionEnded      EventKind = "session_ended"
	EventUserMessage       EventKind = "user_message"
	EventAssistantMessage  EventKind = "assistant_message"
	EventAwaitingAssistant EventKind = "awaiting_assistant"
	EventToolCall          EventKind = "tool_call"
	EventToolResult        EventKind = "tool_result"
	EventRetrying          EventKind = "retrying"
	EventHistoryCleared    EventKind = "history_cleared"
	EventRoundLimit        EventKind = "round_limit"
	EventTurnAborted       EventKind = "turn_aborted"
	EventError             EventKind = "error"
)

// Event is a notification about something that happened in the session.
// Fields beyond Kind are populated where they apply.
type Event struct {
	Kind     EventKind
	Message  string
	ToolName string
	ToolArgs string
	IsError  bool
}

// ActionKind identifies an interaction the session needs from the user.
type ActionKind string

const (
	ActionRequestUserInput ActionKind = "request_user_input"
	ActionRequestApproval  ActionKind = "request_approval"
)

// Action is a request for user interaction. For ActionRequestApproval,
// Operation describes what the tool is about to do.
type Action struct {
	Kind      ActionKind
	ToolName  string
	Operation string
}

// EventHandler receives session events and answers interaction requests.
//
// HandleEvent must return promptly; the orchestrator calls it inline and
// does not buffer. HandleAction blocks until the user responds: the returned
// string is the user's input for ActionRequestUserInput, or the approval
// answer ("y"/"yes" approves) for ActionRequestApproval.
type EventHandler interface {
	HandleEvent(event Event)
	HandleAction(action Action) (string, error)
}
