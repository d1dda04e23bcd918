package tools

import (
	"fmt"

	"github.com/truls27a/code-g/chatclient"
)

// ErrUnknownTool is returned by Resolve for names no tool was registered
// under; ErrDuplicateTool by Register when the name is already taken.
var (
	ErrUnknownTool   = fmt.Errorf("unknown tool")
	ErrDuplicateTool = fmt.Errorf("duplicate tool name")
)

// Registry is an ordered, name-keyed collection of tools. It is populated
// once at startup and read-only afterwards, so it is safe for concurrent
// readers without locking.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// NewRegistryWith creates a registry from the given tools, preserving order.
func NewRegistryWith(ts ...Tool) (*Registry, error) {
	r := NewRegistry()
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. A second tool with the same name is rejected and the
// existing registration is kept.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Descriptors returns tool descriptors in registration order, for
// advertising the capability set to the model.
func (r *Registry) Descriptors() []chatclient.ToolDescriptor {
	out := make([]chatclient.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, chatclient.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
			Strict:      true,
		})
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Config carries the shared settings for the core tool set.
type Config struct {
	// Root is the directory file paths resolve against. Defaults to the
	// process working directory when empty.
	Root string
	// CommandTimeout bounds execute_command runs; MaxCommandTimeout caps
	// model-requested overrides.
	CommandTimeout    int // seconds; 0 means the default
	MaxCommandTimeout int // seconds; 0 means the default
	// Tracker, when set, records file mutations made by write_file and
	// edit_file.
	Tracker *ChangeTracker
}

// AllTools returns the full core tool set in canonical order.
func AllTools(cfg Config) []Tool {
	return []Tool{
		NewReadFile(cfg.Root),
		NewSearchFiles(cfg.Root),
		NewWriteFile(cfg.Root, cfg.Tracker),
		NewEditFile(cfg.Root, cfg.Tracker),
		NewExecuteCommand(cfg.Root, cfg.CommandTimeout, cfg.MaxCommandTimeout),
	}
}

// ReadOnlyTools returns only the tools that cannot mutate anything.
func ReadOnlyTools(cfg Config) []Tool {
	return []Tool{
		NewReadFile(cfg.Root),
		NewSearchFiles(cfg.Root),
	}
}
