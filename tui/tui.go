// Package tui renders session events in the terminal and collects user
// input. It is the default EventHandler for the interactive CLI.
package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/truls27a/code-g/session"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

// Tui is a terminal event handler. It writes rendered events to out and
// reads user input and approval answers from in.
type Tui struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Tui reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Tui {
	return &Tui{in: bufio.NewReader(in), out: out}
}

// HandleEvent renders a session event.
func (t *Tui) HandleEvent(e session.Event) {
	switch e.Kind {
	case session.EventSessionStarted:
		fmt.Fprintln(t.out, assistantStyle.Render("CodeG is ready. Type your request, or 'exit' to quit."))
	case session.EventSessionEnded:
		fmt.Fprintln(t.out, toolStyle.Render("Session ended."))
	case session.EventUserMessage:
		// Echoed by the prompt itself; nothing to render.
	case session.EventAwaitingAssistant:
		fmt.Fprintln(t.out, toolStyle.Render("Thinking..."))
	case session.EventAssistantMessage:
		fmt.Fprintln(t.out, assistantStyle.Render(e.Message))
	case session.EventToolCall:
		fmt.Fprintln(t.out, toolStyle.Render(fmt.Sprintf("> %s %s", e.ToolName, summarizeArgs(e.ToolArgs))))
	case session.EventToolResult:
		if e.IsError {
			fmt.Fprintln(t.out, errorStyle.Render(fmt.Sprintf("  %s failed: %s", e.ToolName, firstLine(e.Message))))
		} else {
			fmt.Fprintln(t.out, toolStyle.Render(fmt.Sprintf("  %s done", e.ToolName)))
		}
	case session.EventHistoryCleared:
		fmt.Fprintln(t.out, toolStyle.Render("Conversation cleared."))
	case session.EventRetrying:
		fmt.Fprintln(t.out, warnStyle.Render("Retrying: "+firstLine(e.Message)))
	case session.EventRoundLimit:
		fmt.Fprintln(t.out, warnStyle.Render(e.Message))
	case session.EventTurnAborted:
		fmt.Fprintln(t.out, errorStyle.Render("Turn aborted: "+e.Message))
	case session.EventError:
		fmt.Fprintln(t.out, errorStyle.Render("Error: "+e.Message))
	}
}

// HandleAction prompts the user and returns their answer.
func (t *Tui) HandleAction(a session.Action) (string, error) {
	switch a.Kind {
	case session.ActionRequestUserInput:
		fmt.Fprint(t.out, promptStyle.Render("You: "))
	case session.ActionRequestApproval:
		fmt.Fprintln(t.out, warnStyle.Render(a.Operation))
		fmt.Fprint(t.out, promptStyle.Render("Allow? [y/N]: "))
	default:
		return "", fmt.Errorf("unknown action %q", a.Kind)
	}

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func summarizeArgs(args string) string {
	args = strings.TrimSpace(args)
	if len(args) > 80 {
		return args[:80] + "..."
	}
	return args
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
