package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type editFileInput struct {
	Path       string `json:"path" jsonschema_description:"Path to the file to edit, relative to the working directory."`
	OldStr     string `json:"old_str" jsonschema_description:"Exact text to find in the file. Must match exactly one region unless replace_all is set."`
	NewStr     string `json:"new_str" jsonschema_description:"Replacement text."`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema_description:"Replace every occurrence of old_str. Default: false."`
}

// EditFile replaces an exact text region in an existing file. The match must
// be unambiguous: zero matches or multiple matches (without replace_all)
// leave the file untouched and report the mismatch.
type EditFile struct {
	root    string
	tracker *ChangeTracker
}

// NewEditFile creates the edit_file tool rooted at root. tracker may be nil.
func NewEditFile(root string, tracker *ChangeTracker) *EditFile {
	return &EditFile{root: root, tracker: tracker}
}

func (t *EditFile) Name() string { return "edit_file" }

func (t *EditFile) Description() string {
	return "Replace an exact string occurrence in an existing file. old_str must be unique in the file unless replace_all is true."
}

func (t *EditFile) Schema() map[string]any { return GenerateSchema[editFileInput]() }

func (t *EditFile) RequiresApproval() bool { return true }

func (t *EditFile) ApprovalPrompt(args json.RawMessage) string {
	var in editFileInput
	_ = json.Unmarshal(args, &in)
	return fmt.Sprintf("Edit file: %s (replace %d chars with %d chars)", in.Path, len(in.OldStr), len(in.NewStr))
}

func (t *EditFile) Call(_ context.Context, args json.RawMessage) (string, error) {
	var in editFileInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", fmt.Errorf("path is required")
	}
	if in.OldStr == "" {
		return "", fmt.Errorf("old_str is required; use write_file to create a new file")
	}
	if in.OldStr == in.NewStr {
		return "", fmt.Errorf("old_str and new_str are identical")
	}

	resolved := resolvePath(t.root, in.Path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("edit %s: %w", in.Path, err)
	}
	content := string(data)

	count := strings.Count(content, in.OldStr)
	if count == 0 {
		return "", fmt.Errorf("no matching region found: old_str does not appear in %s", in.Path)
	}
	if count > 1 && !in.ReplaceAll {
		return "", fmt.Errorf("old_str appears %d times in %s; provide more surrounding context to make it unique, or set replace_all", count, in.Path)
	}

	var updated string
	replacements := 1
	if in.ReplaceAll {
		updated = strings.ReplaceAll(content, in.OldStr, in.NewStr)
		replacements = count
	} else {
		updated = strings.Replace(content, in.OldStr, in.NewStr, 1)
	}

	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("edit %s: %w", in.Path, err)
	}

	t.tracker.Record(in.Path, content, updated)
	return fmt.Sprintf("Successfully replaced %d occurrence(s) in %s", replacements, in.Path), nil
}
