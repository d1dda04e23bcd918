package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type writeFileInput struct {
	Path    string `json:"path" jsonschema_description:"Path to the file to write, relative to the working directory."`
	Content string `json:"content" jsonschema_description:"The full file content to write."`
	// Overwrite guards against clobbering: writing over an existing file
	// without it is rejected so the model must state its intent.
	Overwrite bool `json:"overwrite,omitempty" jsonschema_description:"Set to true to replace an existing file. Without it, writing to an existing path fails."`
}

// WriteFile creates a file, or replaces one when overwrite is explicit.
type WriteFile struct {
	root    string
	tracker *ChangeTracker
}

// NewWriteFile creates the write_file tool rooted at root. tracker may be nil.
func NewWriteFile(root string, tracker *ChangeTracker) *WriteFile {
	return &WriteFile{root: root, tracker: tracker}
}

func (t *WriteFile) Name() string { return "write_file" }

func (t *WriteFile) Description() string {
	return "Write content to a new file, creating parent directories as needed. To replace an existing file, set overwrite to true; use edit_file for partial changes."
}

func (t *WriteFile) Schema() map[string]any { return GenerateSchema[writeFileInput]() }

func (t *WriteFile) RequiresApproval() bool { return true }

func (t *WriteFile) ApprovalPrompt(args json.RawMessage) string {
	var in writeFileInput
	_ = json.Unmarshal(args, &in)
	return fmt.Sprintf("Write file: %s (%d bytes)", in.Path, len(in.Content))
}

func (t *WriteFile) Call(_ context.Context, args json.RawMessage) (string, error) {
	var in writeFileInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	resolved := resolvePath(t.root, in.Path)

	var before string
	existing, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if !in.Overwrite {
			return "", fmt.Errorf("%s already exists; set overwrite to true to replace it, or use edit_file for partial changes", in.Path)
		}
		before = string(existing)
	case os.IsNotExist(err):
		// new file
	default:
		return "", fmt.Errorf("write %s: %w", in.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("write %s: %w", in.Path, err)
	}
	if err := os.WriteFile(resolved, []byte(in.Content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", in.Path, err)
	}

	t.tracker.Record(in.Path, before, in.Content)
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(in.Content), in.Path), nil
}
