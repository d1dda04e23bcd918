package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/truls27a/code-g/chatclient"
	"github.com/truls27a/code-g/tools"
)

// State is the lifecycle state of a session.
type State string

const (
	StateAwaitingInput State = "awaiting_input"
	StateModelPending  State = "model_pending"
	StateToolsPending  State = "tools_pending"
	StateAborted       State = "aborted"
)

// ErrSessionAborted is returned when a turn is cut short by cancellation or
// a fatal model error. The session cannot be used afterwards.
var ErrSessionAborted = errors.New("session aborted")

const (
	defaultMaxRounds    = 10
	maxFeedbackAttempts = 3
)

// Config holds the session settings. The zero value is usable once Model is
// set.
type Config struct {
	// Model is the model identifier passed to the chat client.
	Model string
	// MaxRounds bounds the number of tool round-trips per user message.
	// 0 means the default of 10.
	MaxRounds int
	// MaxMemoryMessages triggers history compaction between turns when the
	// history grows past it. 0 disables compaction.
	MaxMemoryMessages int
	// SystemPrompt selects the system prompt; the zero value uses the
	// default prompt.
	SystemPrompt SystemPromptConfig
	// Retry governs model call retries. Zero value uses DefaultRetryPolicy.
	Retry chatclient.RetryPolicy
	// AutoApprove skips the approval prompt for mutating tools.
	AutoApprove bool
}

// Session drives the conversation loop: user message in, model calls and
// tool executions in between, assistant answer out. Sessions are not safe
// for concurrent use.
type Session struct {
	id       string
	client   chatclient.ChatClient
	registry *tools.Registry
	memory   *Memory
	handler  EventHandler
	cfg      Config
	state    State
}

// New creates a session. The system prompt, when enabled, is appended to
// memory immediately so it is part of every snapshot.
func New(client chatclient.ChatClient, registry *tools.Registry, handler EventHandler, cfg Config) *Session {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if isZeroRetryPolicy(cfg.Retry) {
		cfg.Retry = chatclient.DefaultRetryPolicy()
	}

	s := &Session{
		id:       uuid.New().String(),
		client:   client,
		registry: registry,
		memory:   NewMemory(),
		handler:  handler,
		cfg:      cfg,
		state:    StateAwaitingInput,
	}
	if prompt, ok := cfg.SystemPrompt.Prompt(); ok {
		s.memory.Append(chatclient.SystemMessage(prompt))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// History returns a copy of the conversation history.
func (s *Session) History() []chatclient.ChatMessage { return s.memory.Snapshot() }

// Reset discards the conversation history and re-seeds the system prompt.
// The interactive loop invokes it for the "clear" command.
func (s *Session) Reset() {
	s.memory.Clear()
	if prompt, ok := s.cfg.SystemPrompt.Prompt(); ok {
		s.memory.Append(chatclient.SystemMessage(prompt))
	}
	s.handler.HandleEvent(Event{Kind: EventHistoryCleared})
}

// SendMessage processes one user message through the loop and returns the
// assistant's final answer. Every tool call issued by the model receives
// exactly one result before the next model call; calls are executed
// sequentially in issued order.
func (s *Session) SendMessage(ctx context.Context, text string) (string, error) {
	if s.state == StateAborted {
		return "", ErrSessionAborted
	}

	s.memory.Append(chatclient.UserMessage(text))
	s.handler.HandleEvent(Event{Kind: EventUserMessage, Message: text})

	rounds := 0
	feedbackAttempts := 0

	for {
		if err := ctx.Err(); err != nil {
			s.state = StateAborted
			s.handler.HandleEvent(Event{Kind: EventTurnAborted, Message: err.Error()})
			return "", fmt.Errorf("%w: %v", ErrSessionAborted, err)
		}

		if rounds >= s.cfg.MaxRounds {
			// The model keeps asking for tools; stop calling it and close
			// the turn with a synthetic answer instead.
			final := fmt.Sprintf("I reached the limit of %d tool rounds for this request without finishing. "+
				"The work so far is recorded above; send a follow-up message to continue.", s.cfg.MaxRounds)
			s.memory.Append(chatclient.AssistantMessage(final))
			s.handler.HandleEvent(Event{Kind: EventRoundLimit, Message: final})
			s.finishTurn()
			return final, nil
		}

		s.state = StateModelPending
		s.handler.HandleEvent(Event{Kind: EventAwaitingAssistant})

		result, err := s.callModel(ctx)
		if err != nil {
			switch chatclient.StrategyFor(err) {
			case chatclient.RetryFeedback:
				feedbackAttempts++
				if feedbackAttempts >= maxFeedbackAttempts {
					s.state = StateAborted
					s.handler.HandleEvent(Event{Kind: EventError, Message: err.Error()})
					return "", fmt.Errorf("%w: model rejected the request repeatedly: %v", ErrSessionAborted, err)
				}
				// Surface the rejection to the model and let it correct
				// itself on the next call.
				s.memory.Append(chatclient.SystemMessage(fmt.Sprintf("The previous request failed: %v. Adjust and continue.", err)))
				s.handler.HandleEvent(Event{Kind: EventRetrying, Message: err.Error()})
				continue
			default:
				s.state = StateAborted
				s.handler.HandleEvent(Event{Kind: EventError, Message: err.Error()})
				return "", fmt.Errorf("%w: %v", ErrSessionAborted, err)
			}
		}

		switch result.Kind {
		case chatclient.ResultMessage:
			s.memory.Append(chatclient.AssistantMessage(result.Content))
			s.handler.HandleEvent(Event{Kind: EventAssistantMessage, Message: result.Content})
			if !result.TurnOver {
				// The model announced more work without requesting tools;
				// give it another round rather than stopping mid-task.
				rounds++
				continue
			}
			s.finishTurn()
			return result.Content, nil

		case chatclient.ResultToolCalls:
			s.memory.Append(chatclient.AssistantToolCalls(result.Content, result.ToolCalls))
			if result.Content != "" {
				s.handler.HandleEvent(Event{Kind: EventAssistantMessage, Message: result.Content})
			}
			s.state = StateToolsPending
			if err := s.executeToolCalls(ctx, result.ToolCalls); err != nil {
				return "", err
			}
			rounds++

		default:
			s.state = StateAborted
			return "", fmt.Errorf("%w: unexpected result kind %q", ErrSessionAborted, result.Kind)
		}
	}
}

// Run drives the interactive loop: request input, process it, repeat until
// the user types "exit" or the session aborts.
func (s *Session) Run(ctx context.Context) error {
	s.handler.HandleEvent(Event{Kind: EventSessionStarted})
	defer s.handler.HandleEvent(Event{Kind: EventSessionEnded})

	for {
		input, err := s.handler.HandleAction(Action{Kind: ActionRequestUserInput})
		if err != nil {
			return fmt.Errorf("read user input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			return nil
		}
		if strings.EqualFold(input, "clear") {
			s.Reset()
			continue
		}

		if _, err := s.SendMessage(ctx, input); err != nil {
			if errors.Is(err, ErrSessionAborted) {
				return err
			}
			s.handler.HandleEvent(Event{Kind: EventError, Message: err.Error()})
		}
	}
}

func (s *Session) callModel(ctx context.Context) (*chatclient.ChatResult, error) {
	policy := s.cfg.Retry
	policy.OnRetry = s.notifyRetry(policy.OnRetry)

	return chatclient.Retry(ctx, policy, func(ctx context.Context) (*chatclient.ChatResult, error) {
		return s.client.CreateChatCompletion(ctx, s.cfg.Model, s.memory.Snapshot(), s.registry.Descriptors())
	})
}

func (s *Session) notifyRetry(next func(error, int, time.Duration)) func(error, int, time.Duration) {
	return func(err error, attempt int, delay time.Duration) {
		s.handler.HandleEvent(Event{
			Kind:    EventRetrying,
			Message: fmt.Sprintf("model call failed (attempt %d, retrying in %s): %v", attempt, delay, err),
		})
		if next != nil {
			next(err, attempt, delay)
		}
	}
}

// executeToolCalls runs each call in issued order, appending exactly one
// tool message per call. Cancellation mid-batch answers every remaining call
// with a synthetic failure so the history stays well-formed, then aborts.
func (s *Session) executeToolCalls(ctx context.Context, calls []chatclient.ToolCall) error {
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			for _, unanswered := range calls[i:] {
				s.memory.Append(chatclient.ToolMessage(unanswered.ID, unanswered.Name, "turn aborted before this tool call ran", true))
			}
			s.state = StateAborted
			s.handler.HandleEvent(Event{Kind: EventTurnAborted, Message: err.Error()})
			return fmt.Errorf("%w: %v", ErrSessionAborted, err)
		}

		content, isError := s.executeOne(ctx, call)
		s.memory.Append(chatclient.ToolMessage(call.ID, call.Name, content, isError))
		s.handler.HandleEvent(Event{
			Kind:     EventToolResult,
			ToolName: call.Name,
			Message:  content,
			IsError:  isError,
		})
	}
	return nil
}

func (s *Session) executeOne(ctx context.Context, call chatclient.ToolCall) (content string, isError bool) {
	s.handler.HandleEvent(Event{
		Kind:     EventToolCall,
		ToolName: call.Name,
		ToolArgs: string(call.Arguments),
	})

	tool, err := s.registry.Resolve(call.Name)
	if err != nil {
		return fmt.Sprintf("Unknown tool: %s", call.Name), true
	}

	if tool.RequiresApproval() && !s.cfg.AutoApprove {
		answer, actErr := s.handler.HandleAction(Action{
			Kind:      ActionRequestApproval,
			ToolName:  call.Name,
			Operation: tool.ApprovalPrompt(call.Arguments),
		})
		if actErr != nil {
			return fmt.Sprintf("approval prompt failed: %v", actErr), true
		}
		if !approved(answer) {
			return "User declined to run this tool", true
		}
	}

	output, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		return fmt.Sprintf("Tool error (%s): %v", call.Name, err), true
	}
	return tools.TruncateToolOutput(output, call.Name), false
}

// finishTurn returns the session to the input state and compacts the
// history. Compaction only runs here, between turns, so in-flight tool
// calls are never separated from their results.
func (s *Session) finishTurn() {
	s.state = StateAwaitingInput
	s.memory.Compact(s.cfg.MaxMemoryMessages)
}

// isZeroRetryPolicy reports whether the policy was left unset. RetryPolicy
// carries a func field, so it cannot be compared to its zero value directly.
func isZeroRetryPolicy(p chatclient.RetryPolicy) bool {
	return p.MaxRetries == 0 && p.BaseDelay == 0 && p.MaxDelay == 0 &&
		p.BackoffMultiplier == 0 && !p.Jitter && p.OnRetry == nil
}

func approved(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
