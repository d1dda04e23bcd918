package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultReadLimit   = 2000 // lines per page when limit is omitted
	maxLineRunes       = 2000
	readTruncationNote = "\n[truncated; re-run with offset/limit to fetch more]"
)

type readFileInput struct {
	Path   string `json:"path" jsonschema_description:"Path to the file to read, relative to the working directory."`
	Offset int    `json:"offset,omitempty" jsonschema_description:"1-based line number to start reading from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum number of lines to return. Default: 2000."`
}

// ReadFile reads a text file, with line-based paging for large files.
type ReadFile struct {
	root string
}

// NewReadFile creates the read_file tool rooted at root.
func NewReadFile(root string) *ReadFile {
	return &ReadFile{root: root}
}

func (t *ReadFile) Name() string { return "read_file" }

func (t *ReadFile) Description() string {
	return "Read the contents of a file. Supports offset/limit paging for large files."
}

func (t *ReadFile) Schema() map[string]any { return GenerateSchema[readFileInput]() }

func (t *ReadFile) RequiresApproval() bool { return false }

func (t *ReadFile) ApprovalPrompt(args json.RawMessage) string {
	var in readFileInput
	_ = json.Unmarshal(args, &in)
	return fmt.Sprintf("Read file: %s", in.Path)
}

func (t *ReadFile) Call(_ context.Context, args json.RawMessage) (string, error) {
	var in readFileInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	resolved := resolvePath(t.root, in.Path)
	fi, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in.Path, err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", in.Path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in.Path, err)
	}

	lines := strings.Split(string(data), "\n")

	start := 0
	if in.Offset > 0 {
		start = in.Offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}

	truncated := end < len(lines)
	window := make([]string, end-start)
	for i := start; i < end; i++ {
		line := lines[i]
		if r := []rune(line); len(r) > maxLineRunes {
			line = string(r[:maxLineRunes])
			truncated = true
		}
		window[i-start] = line
	}

	out := strings.Join(window, "\n")
	if truncated {
		out += readTruncationNote
	}
	return out, nil
}

// resolvePath resolves path against root; absolute paths pass through.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if root == "" {
		return path
	}
	return filepath.Join(root, path)
}
