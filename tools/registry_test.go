package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeTool struct {
	name   string
	output string
	err    error
}

func (f *fakeTool) Name() string                               { return f.name }
func (f *fakeTool) Description() string                        { return "fake tool " + f.name }
func (f *fakeTool) Schema() map[string]any                     { return map[string]any{"type": "object"} }
func (f *fakeTool) RequiresApproval() bool                     { return false }
func (f *fakeTool) ApprovalPrompt(_ json.RawMessage) string    { return f.name }
func (f *fakeTool) Call(_ context.Context, _ json.RawMessage) (string, error) {
	return f.output, f.err
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	r, err := NewRegistryWith(
		&fakeTool{name: "zeta"},
		&fakeTool{name: "alpha"},
		&fakeTool{name: "mid"},
	)
	if err != nil {
		t.Fatalf("NewRegistryWith: %v", err)
	}

	want := []string{"zeta", "alpha", "mid"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	descs := r.Descriptors()
	for i, d := range descs {
		if d.Name != want[i] {
			t.Errorf("Descriptors()[%d].Name = %q, want %q", i, d.Name, want[i])
		}
		if !d.Strict {
			t.Errorf("Descriptors()[%d].Strict = false, want true", i)
		}
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	first := &fakeTool{name: "dup", output: "first"}
	if err := r.Register(first); err != nil {
		t.Fatalf("Register(first): %v", err)
	}

	err := r.Register(&fakeTool{name: "dup", output: "second"})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("Register(duplicate) error = %v, want ErrDuplicateTool", err)
	}

	// The original registration survives.
	got, err := r.Resolve("dup")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != Tool(first) {
		t.Error("Resolve returned the second registration, want the first")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nope")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Resolve(unknown) error = %v, want ErrUnknownTool", err)
	}
}

func TestAllToolsCanonicalSet(t *testing.T) {
	r, err := NewRegistryWith(AllTools(Config{})...)
	if err != nil {
		t.Fatalf("NewRegistryWith(AllTools): %v", err)
	}
	want := []string{"read_file", "search_files", "write_file", "edit_file", "execute_command"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadOnlyToolsExcludeMutators(t *testing.T) {
	for _, tl := range ReadOnlyTools(Config{}) {
		if tl.RequiresApproval() {
			t.Errorf("read-only tool %s requires approval", tl.Name())
		}
	}
}
