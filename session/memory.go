package session

import (
	"github.com/truls27a/code-g/chatclient"
)

// Memory holds the ordered conversation history. Messages are only ever
// appended during a turn; truncation happens through Compact, which the
// session invokes only between turns so a tool call is never separated from
// its result.
type Memory struct {
	messages []chatclient.ChatMessage
}

// NewMemory creates an empty conversation memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Append adds messages to the end of the history.
func (m *Memory) Append(messages ...chatclient.ChatMessage) {
	m.messages = append(m.messages, messages...)
}

// Snapshot returns a copy of the history. Mutating the returned slice does
// not affect the memory.
func (m *Memory) Snapshot() []chatclient.ChatMessage {
	out := make([]chatclient.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of messages in the history.
func (m *Memory) Len() int { return len(m.messages) }

// Clear removes all messages.
func (m *Memory) Clear() { m.messages = nil }

// Compact drops the oldest messages until at most maxMessages remain.
// A leading system message is always kept, and the cut never lands between
// an assistant tool-call message and its tool results: tool result messages
// at the cut point are dropped along with their originating call.
// maxMessages <= 0 disables compaction.
func (m *Memory) Compact(maxMessages int) {
	if maxMessages <= 0 || len(m.messages) <= maxMessages {
		return
	}

	keepSystem := 0
	if len(m.messages) > 0 && m.messages[0].Role == chatclient.RoleSystem {
		keepSystem = 1
	}

	cut := len(m.messages) - maxMessages + keepSystem
	if cut <= keepSystem {
		return
	}
	// Advance past orphaned tool results so the history never starts with a
	// result whose call was dropped.
	for cut < len(m.messages) && m.messages[cut].Role == chatclient.RoleTool {
		cut++
	}
	if cut >= len(m.messages) {
		m.messages = m.messages[:keepSystem]
		return
	}

	kept := make([]chatclient.ChatMessage, 0, keepSystem+len(m.messages)-cut)
	kept = append(kept, m.messages[:keepSystem]...)
	kept = append(kept, m.messages[cut:]...)
	m.messages = kept
}
