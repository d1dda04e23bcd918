package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/truls27a/code-g/chatclient"
	"github.com/truls27a/code-g/tools"
)

// fakeClient scripts model responses by call number (1-based).
type fakeClient struct {
	respond func(call int, messages []chatclient.ChatMessage) (*chatclient.ChatResult, error)
	calls   int
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, _ string, messages []chatclient.ChatMessage, _ []chatclient.ToolDescriptor) (*chatclient.ChatResult, error) {
	f.calls++
	return f.respond(f.calls, messages)
}

func finalResult(text string) (*chatclient.ChatResult, error) {
	return &chatclient.ChatResult{Kind: chatclient.ResultMessage, Content: text, TurnOver: true}, nil
}

func toolCallResult(calls ...chatclient.ToolCall) (*chatclient.ChatResult, error) {
	return &chatclient.ChatResult{Kind: chatclient.ResultToolCalls, ToolCalls: calls}, nil
}

// recordingHandler captures events and answers actions from canned values.
type recordingHandler struct {
	events   []Event
	approval string // answer for approval prompts; "y" when empty
	inputs   []string
}

func (h *recordingHandler) HandleEvent(e Event) { h.events = append(h.events, e) }

func (h *recordingHandler) HandleAction(a Action) (string, error) {
	switch a.Kind {
	case ActionRequestApproval:
		if h.approval == "" {
			return "y", nil
		}
		return h.approval, nil
	case ActionRequestUserInput:
		if len(h.inputs) == 0 {
			return "exit", nil
		}
		next := h.inputs[0]
		h.inputs = h.inputs[1:]
		return next, nil
	}
	return "", fmt.Errorf("unexpected action %q", a.Kind)
}

func (h *recordingHandler) eventsOfKind(kind EventKind) []Event {
	var out []Event
	for _, e := range h.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func fastRetry() chatclient.RetryPolicy {
	return chatclient.RetryPolicy{MaxRetries: 2, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 2.0}
}

func newTestSession(t *testing.T, client chatclient.ChatClient, dir string, handler *recordingHandler) *Session {
	t.Helper()
	reg, err := tools.NewRegistryWith(tools.AllTools(tools.Config{Root: dir})...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return New(client, reg, handler, Config{
		Model:       "test-model",
		Retry:       fastRetry(),
		AutoApprove: true,
	})
}

// checkPairing verifies every assistant tool call is answered by exactly one
// tool message, in order, before the next non-tool message.
func checkPairing(t *testing.T, history []chatclient.ChatMessage) {
	t.Helper()
	for i, msg := range history {
		if msg.Role != chatclient.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}
		for j, call := range msg.ToolCalls {
			idx := i + 1 + j
			if idx >= len(history) {
				t.Fatalf("call %s at history[%d] has no result", call.ID, i)
			}
			result := history[idx]
			if result.Role != chatclient.RoleTool {
				t.Fatalf("history[%d] = role %q, want tool result for call %s", idx, result.Role, call.ID)
			}
			if result.ToolCallID != call.ID {
				t.Errorf("history[%d].ToolCallID = %q, want %q (results must follow call order)", idx, result.ToolCallID, call.ID)
			}
		}
	}
}

func TestSendMessageReadsFileAndAnswers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{respond: func(call int, messages []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		switch call {
		case 1:
			return toolCallResult(chatclient.ToolCall{
				ID: "call_1", Name: "read_file", Arguments: json.RawMessage(`{"path":"a.txt"}`),
			})
		case 2:
			// The result of the read must already be in the history.
			last := messages[len(messages)-1]
			if last.Role != chatclient.RoleTool || last.Content != "hello" {
				t.Errorf("last message before second call = %+v, want tool result %q", last, "hello")
			}
			return finalResult("The file contains: hello")
		}
		t.Fatalf("unexpected call %d", call)
		return nil, nil
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, dir, handler)

	answer, err := s.SendMessage(context.Background(), "what is in a.txt?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "The file contains: hello" {
		t.Errorf("answer = %q", answer)
	}
	if s.State() != StateAwaitingInput {
		t.Errorf("state = %q, want awaiting_input", s.State())
	}
	checkPairing(t, s.History())
}

func TestSendMessageExecutesCallsInIssuedOrder(t *testing.T) {
	dir := t.TempDir()

	client := &fakeClient{respond: func(call int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		switch call {
		case 1:
			// Write then read the same file in one batch; the read must see
			// the write's effect.
			return toolCallResult(
				chatclient.ToolCall{ID: "w1", Name: "write_file", Arguments: json.RawMessage(`{"path":"note.txt","content":"first"}`)},
				chatclient.ToolCall{ID: "r1", Name: "read_file", Arguments: json.RawMessage(`{"path":"note.txt"}`)},
			)
		default:
			return finalResult("done")
		}
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, dir, handler)

	if _, err := s.SendMessage(context.Background(), "write then read"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	history := s.History()
	checkPairing(t, history)

	var readResult *chatclient.ChatMessage
	for i := range history {
		if history[i].Role == chatclient.RoleTool && history[i].ToolCallID == "r1" {
			readResult = &history[i]
		}
	}
	if readResult == nil {
		t.Fatal("no result recorded for the read call")
	}
	if readResult.IsError || readResult.Content != "first" {
		t.Errorf("read result = %+v, want content %q", readResult, "first")
	}
}

func TestSendMessageRoundLimitProducesSyntheticAnswer(t *testing.T) {
	dir := t.TempDir()

	// The model never finishes: every call requests another read.
	client := &fakeClient{respond: func(_ int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		return toolCallResult(chatclient.ToolCall{
			ID: "loop", Name: "search_files", Arguments: json.RawMessage(`{"pattern":"*.go"}`),
		})
	}}

	handler := &recordingHandler{}
	reg, err := tools.NewRegistryWith(tools.AllTools(tools.Config{Root: dir})...)
	if err != nil {
		t.Fatal(err)
	}
	s := New(client, reg, handler, Config{
		Model:       "test-model",
		MaxRounds:   10,
		Retry:       fastRetry(),
		AutoApprove: true,
	})

	answer, err := s.SendMessage(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if client.calls != 10 {
		t.Errorf("model called %d times, want exactly 10", client.calls)
	}
	if !strings.Contains(answer, "limit of 10 tool rounds") {
		t.Errorf("answer = %q, want round limit explanation", answer)
	}
	if len(handler.eventsOfKind(EventRoundLimit)) != 1 {
		t.Error("expected one round_limit event")
	}

	history := s.History()
	checkPairing(t, history)
	last := history[len(history)-1]
	if last.Role != chatclient.RoleAssistant || len(last.ToolCalls) != 0 {
		t.Errorf("history must end with the synthetic assistant answer, got %+v", last)
	}
	if s.State() != StateAwaitingInput {
		t.Errorf("state = %q, want awaiting_input after round limit", s.State())
	}
}

func TestSendMessageUnknownToolBecomesFailureResult(t *testing.T) {
	client := &fakeClient{respond: func(call int, messages []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		if call == 1 {
			return toolCallResult(chatclient.ToolCall{ID: "x1", Name: "bogus_tool", Arguments: json.RawMessage(`{}`)})
		}
		last := messages[len(messages)-1]
		if !last.IsError || !strings.Contains(last.Content, "Unknown tool") {
			t.Errorf("unknown tool result = %+v, want error result", last)
		}
		return finalResult("recovered")
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, t.TempDir(), handler)

	answer, err := s.SendMessage(context.Background(), "use a bad tool")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("answer = %q", answer)
	}
	checkPairing(t, s.History())
}

func TestSendMessageToolFailureDoesNotUnwindLoop(t *testing.T) {
	client := &fakeClient{respond: func(call int, messages []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		if call == 1 {
			return toolCallResult(chatclient.ToolCall{
				ID: "e1", Name: "edit_file",
				Arguments: json.RawMessage(`{"path":"missing.txt","old_str":"a","new_str":"b"}`),
			})
		}
		last := messages[len(messages)-1]
		if !last.IsError {
			t.Errorf("edit failure result = %+v, want IsError", last)
		}
		return finalResult("the edit failed")
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, t.TempDir(), handler)

	if _, err := s.SendMessage(context.Background(), "edit something"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	checkPairing(t, s.History())
}

func TestSendMessageFatalModelErrorAborts(t *testing.T) {
	client := &fakeClient{respond: func(_ int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		return nil, &chatclient.ClientError{Code: chatclient.CodeInvalidAPIKey, Message: "bad key"}
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, t.TempDir(), handler)

	_, err := s.SendMessage(context.Background(), "hello")
	if !errors.Is(err, ErrSessionAborted) {
		t.Fatalf("error = %v, want ErrSessionAborted", err)
	}
	if client.calls != 1 {
		t.Errorf("fatal error retried: %d calls", client.calls)
	}
	if s.State() != StateAborted {
		t.Errorf("state = %q, want aborted", s.State())
	}

	// An aborted session refuses further messages.
	if _, err := s.SendMessage(context.Background(), "again"); !errors.Is(err, ErrSessionAborted) {
		t.Errorf("post-abort SendMessage error = %v, want ErrSessionAborted", err)
	}
}

func TestSendMessageTransientErrorRetriesThenSucceeds(t *testing.T) {
	client := &fakeClient{respond: func(call int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		if call == 1 {
			return nil, &chatclient.ClientError{Code: chatclient.CodeServiceUnavailable, Message: "overloaded"}
		}
		return finalResult("finally")
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, t.TempDir(), handler)

	answer, err := s.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "finally" {
		t.Errorf("answer = %q", answer)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", client.calls)
	}
	if len(handler.eventsOfKind(EventRetrying)) == 0 {
		t.Error("expected a retrying event")
	}
}

func TestSendMessageFeedbackErrorInformsModel(t *testing.T) {
	client := &fakeClient{respond: func(call int, messages []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		if call == 1 {
			return nil, &chatclient.ClientError{Code: chatclient.CodeContextLength, Message: "context too long"}
		}
		last := messages[len(messages)-1]
		if last.Role != chatclient.RoleSystem || !strings.Contains(last.Content, "context too long") {
			t.Errorf("expected feedback system message before retry, got %+v", last)
		}
		return finalResult("adjusted")
	}}

	handler := &recordingHandler{}
	s := newTestSession(t, client, t.TempDir(), handler)

	answer, err := s.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if answer != "adjusted" {
		t.Errorf("answer = %q", answer)
	}
}

func TestSendMessageCancellationSynthesizesFailureResults(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	client := &fakeClient{respond: func(call int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		if call > 1 {
			t.Fatal("model must not be called again after an aborted batch")
		}
		return toolCallResult(
			chatclient.ToolCall{ID: "c1", Name: "search_files", Arguments: json.RawMessage(`{"pattern":"*.go"}`)},
			chatclient.ToolCall{ID: "c2", Name: "search_files", Arguments: json.RawMessage(`{"pattern":"*.txt"}`)},
		)
	}}

	handler := &recordingHandler{}
	// The first call cancels the context as it runs; the second must get a
	// synthetic failure instead of running.
	reg, err := tools.NewRegistryWith(&cancellingSearch{dir: dir, cancel: cancel})
	if err != nil {
		t.Fatal(err)
	}
	s := New(client, reg, handler, Config{Model: "test-model", Retry: fastRetry(), AutoApprove: true})

	_, err = s.SendMessage(ctx, "search twice")
	if !errors.Is(err, ErrSessionAborted) {
		t.Fatalf("error = %v, want ErrSessionAborted", err)
	}
	if s.State() != StateAborted {
		t.Errorf("state = %q, want aborted", s.State())
	}

	history := s.History()
	checkPairing(t, history)

	var second *chatclient.ChatMessage
	for i := range history {
		if history[i].Role == chatclient.RoleTool && history[i].ToolCallID == "c2" {
			second = &history[i]
		}
	}
	if second == nil {
		t.Fatal("unanswered call c2 got no synthetic result")
	}
	if !second.IsError || !strings.Contains(second.Content, "aborted") {
		t.Errorf("synthetic result = %+v, want aborted failure", second)
	}
}

// cancellingSearch is a search_files stand-in that cancels the session
// context as a side effect of running.
type cancellingSearch struct {
	dir    string
	cancel context.CancelFunc
}

func (c *cancellingSearch) Name() string                            { return "search_files" }
func (c *cancellingSearch) Description() string                     { return "test stand-in" }
func (c *cancellingSearch) Schema() map[string]any                  { return map[string]any{"type": "object"} }
func (c *cancellingSearch) RequiresApproval() bool                  { return false }
func (c *cancellingSearch) ApprovalPrompt(_ json.RawMessage) string { return "search" }
func (c *cancellingSearch) Call(_ context.Context, _ json.RawMessage) (string, error) {
	c.cancel()
	return "ok", nil
}

func TestSendMessageApprovalDeclined(t *testing.T) {
	dir := t.TempDir()

	client := &fakeClient{respond: func(call int, messages []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		if call == 1 {
			return toolCallResult(chatclient.ToolCall{
				ID: "w1", Name: "write_file",
				Arguments: json.RawMessage(`{"path":"secret.txt","content":"x"}`),
			})
		}
		last := messages[len(messages)-1]
		if !last.IsError || !strings.Contains(last.Content, "declined") {
			t.Errorf("declined result = %+v, want declined failure", last)
		}
		return finalResult("understood")
	}}

	handler := &recordingHandler{approval: "n"}
	reg, err := tools.NewRegistryWith(tools.AllTools(tools.Config{Root: dir})...)
	if err != nil {
		t.Fatal(err)
	}
	s := New(client, reg, handler, Config{Model: "test-model", Retry: fastRetry()})

	if _, err := s.SendMessage(context.Background(), "write a file"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(dir, "secret.txt")); statErr == nil {
		t.Error("declined write still created the file")
	}
	checkPairing(t, s.History())
}

func TestRunLoopsUntilExit(t *testing.T) {
	client := &fakeClient{respond: func(_ int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		return finalResult("answer")
	}}

	handler := &recordingHandler{inputs: []string{"first question", "second question", "exit"}}
	s := newTestSession(t, client, t.TempDir(), handler)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("model calls = %d, want 2", client.calls)
	}
	if len(handler.eventsOfKind(EventSessionStarted)) != 1 || len(handler.eventsOfKind(EventSessionEnded)) != 1 {
		t.Error("expected session start and end events")
	}
}

func TestNewKeepsPartialRetryPolicy(t *testing.T) {
	client := &fakeClient{respond: func(_ int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		return nil, &chatclient.ClientError{Code: chatclient.CodeServiceUnavailable, Message: "down"}
	}}

	handler := &recordingHandler{}
	reg := tools.NewRegistry()
	// Only MaxRetries is set; the rest of the policy must stay as given
	// (zero delays), not be replaced by the default policy.
	s := New(client, reg, handler, Config{
		Model: "m",
		Retry: chatclient.RetryPolicy{MaxRetries: 1},
	})

	start := time.Now()
	_, err := s.SendMessage(context.Background(), "hello")
	if !errors.Is(err, ErrSessionAborted) {
		t.Fatalf("error = %v, want ErrSessionAborted after exhaustion", err)
	}
	if client.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + 1 retry)", client.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("took %s; the default policy's delays were applied", elapsed)
	}
}

func TestRunClearCommandResetsHistory(t *testing.T) {
	client := &fakeClient{respond: func(_ int, _ []chatclient.ChatMessage) (*chatclient.ChatResult, error) {
		return finalResult("answer")
	}}

	handler := &recordingHandler{inputs: []string{"first question", "clear", "exit"}}
	s := newTestSession(t, client, t.TempDir(), handler)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	history := s.History()
	if len(history) != 1 || history[0].Role != chatclient.RoleSystem {
		t.Errorf("history after clear = %+v, want only the re-seeded system prompt", history)
	}
	if len(handler.eventsOfKind(EventHistoryCleared)) != 1 {
		t.Error("expected a history_cleared event")
	}
}

func TestNewSeedsSystemPrompt(t *testing.T) {
	client := &fakeClient{}
	handler := &recordingHandler{}
	reg := tools.NewRegistry()

	s := New(client, reg, handler, Config{Model: "m"})
	history := s.History()
	if len(history) != 1 || history[0].Role != chatclient.RoleSystem {
		t.Fatalf("history = %+v, want seeded system prompt", history)
	}

	s = New(client, reg, handler, Config{Model: "m", SystemPrompt: NoSystemPrompt()})
	if len(s.History()) != 0 {
		t.Error("NoSystemPrompt still seeded a message")
	}

	s = New(client, reg, handler, Config{Model: "m", SystemPrompt: CustomSystemPrompt("be terse")})
	if got := s.History()[0].Content; got != "be terse" {
		t.Errorf("custom prompt = %q", got)
	}
}
