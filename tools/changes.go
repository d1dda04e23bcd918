package tools

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ChangeKind distinguishes file creation from modification.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
)

// Change records a single file mutation made through a tool.
type Change struct {
	Path string
	Kind ChangeKind
	Diff string
	Time time.Time
}

// ChangeTracker accumulates the file changes made during a session so they
// can be summarized back to the user. A nil tracker is valid and records
// nothing.
type ChangeTracker struct {
	mu      sync.Mutex
	changes []Change
}

func NewChangeTracker() *ChangeTracker { return &ChangeTracker{} }

// Record logs a change to path. before is the file content prior to the
// change, or "" for a newly created file.
func (t *ChangeTracker) Record(path, before, after string) {
	if t == nil {
		return
	}
	kind := ChangeModified
	if before == "" {
		kind = ChangeCreated
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = append(t.changes, Change{
		Path: path,
		Kind: kind,
		Diff: lineDiff(before, after),
		Time: time.Now(),
	})
}

// Changes returns a copy of the recorded changes in order.
func (t *ChangeTracker) Changes() []Change {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Change, len(t.changes))
	copy(out, t.changes)
	return out
}

// Reset discards all recorded changes.
func (t *ChangeTracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = nil
}

// Summary renders the recorded changes as a short human-readable report.
func (t *ChangeTracker) Summary() string {
	changes := t.Changes()
	if len(changes) == 0 {
		return "No files were changed."
	}
	var b strings.Builder
	for _, c := range changes {
		fmt.Fprintf(&b, "%s %s\n", c.Kind, c.Path)
		if c.Diff != "" {
			b.WriteString(c.Diff)
			if !strings.HasSuffix(c.Diff, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// lineDiff computes a minimal unified-style line diff between before and
// after using an LCS table. Good enough for the small files edited in a
// session; not a replacement for a real diff tool.
func lineDiff(before, after string) string {
	if before == after {
		return ""
	}
	a := splitLines(before)
	b := splitLines(after)

	// LCS lengths.
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var out strings.Builder
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			fmt.Fprintf(&out, "- %s\n", a[i])
			i++
		default:
			fmt.Fprintf(&out, "+ %s\n", b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		fmt.Fprintf(&out, "- %s\n", a[i])
	}
	for ; j < len(b); j++ {
		fmt.Fprintf(&out, "+ %s\n", b[j])
	}
	return strings.TrimRight(out.String(), "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
