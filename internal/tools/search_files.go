package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
)

var errSearchLimit = errors.New("search limit reached")

// SearchFilesTool finds workspace files by glob pattern.
type SearchFilesTool struct{}

func NewSearchFilesTool() *SearchFilesTool {
	return &SearchFilesTool{}
}

func (t *SearchFilesTool) Name() string {
	return ToolNameSearchFiles
}

func (t *SearchFilesTool) Description() string {
	return "Find files by glob pattern (supports ** for any depth, e.g. '**/*_test.go' or 'internal/**/config.*'). A pattern without '/' matches file names at any depth."
}

func (t *SearchFilesTool) Params() []Param {
	return []Param{
		{Name: "pattern", Type: TypeString, Description: "Glob pattern relative to the workspace root", Required: true},
	}
}

func (t *SearchFilesTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	pattern := normalizeGlob(args.String("pattern", ""))
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var matches []string
	err := tc.FS.Walk(ctx, func(fi *fs.FileInfo) error {
		if ok, _ := doublestar.Match(pattern, fi.Path); ok {
			matches = append(matches, fi.Path)
			if len(matches) >= consts.MaxSearchResults {
				return errSearchLimit
			}
		}
		return nil
	})
	truncated := errors.Is(err, errSearchLimit)
	if err != nil && !truncated {
		return nil, fmt.Errorf("error walking workspace: %w", err)
	}

	if len(matches) == 0 {
		return &Output{Text: fmt.Sprintf("No files match %s", pattern)}, nil
	}
	text := strings.Join(matches, "\n")
	if truncated {
		text += fmt.Sprintf("\n\n[... more than %d matches, refine the pattern]", consts.MaxSearchResults)
	}
	return &Output{
		Text:     text,
		Metadata: map[string]interface{}{"matches": len(matches), "truncated": truncated},
	}, nil
}

func normalizeGlob(pattern string) string {
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "./")
	if pattern != "" && !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}
	return pattern
}
