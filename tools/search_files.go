package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const maxSearchResults = 50

type searchFilesInput struct {
	Pattern string `json:"pattern" jsonschema_description:"Filename pattern to search for. Supports wildcards, e.g. '*.go', 'config.*', 'main.go'."`
	Path    string `json:"path,omitempty" jsonschema_description:"Directory to search from, relative to the working directory. Defaults to the working directory."`
}

// SearchFiles finds files whose names match a glob-style pattern, searching
// recursively from the working directory.
type SearchFiles struct {
	root string
}

// NewSearchFiles creates the search_files tool rooted at root.
func NewSearchFiles(root string) *SearchFiles {
	return &SearchFiles{root: root}
}

func (t *SearchFiles) Name() string { return "search_files" }

func (t *SearchFiles) Description() string {
	return "Search recursively for files matching a pattern. The pattern can be a filename or use wildcards (e.g. '*.go' for all Go files)."
}

func (t *SearchFiles) Schema() map[string]any { return GenerateSchema[searchFilesInput]() }

func (t *SearchFiles) RequiresApproval() bool { return false }

func (t *SearchFiles) ApprovalPrompt(args json.RawMessage) string {
	var in searchFilesInput
	_ = json.Unmarshal(args, &in)
	return fmt.Sprintf("Search files: %s", in.Pattern)
}

func (t *SearchFiles) Call(_ context.Context, args json.RawMessage) (string, error) {
	var in searchFilesInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	if _, err := filepath.Match(in.Pattern, ""); err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", in.Pattern, err)
	}

	base := resolvePath(t.root, in.Path)
	if in.Path == "" {
		base = t.root
		if base == "" {
			base = "."
		}
	}

	var matches []string
	capped := false
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			// Dependency and VCS directories dominate results without
			// ever being what the model is looking for.
			switch d.Name() {
			case ".git", "node_modules", "target", ".idea":
				return filepath.SkipDir
			}
			return nil
		}
		ok, _ := filepath.Match(in.Pattern, d.Name())
		if !ok {
			return nil
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			rel = path
		}
		matches = append(matches, rel)
		if len(matches) >= maxSearchResults {
			capped = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %q: %w", in.Pattern, err)
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No files found matching pattern '%s'", in.Pattern), nil
	}

	sort.Strings(matches)
	out := strings.Join(matches, "\n")
	if capped {
		out += fmt.Sprintf("\n[results capped at %d files; narrow the pattern to see more]", maxSearchResults)
	}
	return out, nil
}
