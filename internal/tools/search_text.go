package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
)

const maxMatchLineLength = 300

// SearchTextTool greps workspace files with a regular expression.
type SearchTextTool struct{}

func NewSearchTextTool() *SearchTextTool {
	return &SearchTextTool{}
}

func (t *SearchTextTool) Name() string {
	return ToolNameSearchText
}

func (t *SearchTextTool) Description() string {
	return "Search file contents with a regular expression (RE2 syntax). Returns matching lines as path:line: text. Binary and very large files are skipped."
}

func (t *SearchTextTool) Params() []Param {
	return []Param{
		{Name: "pattern", Type: TypeString, Description: "Regular expression to search for", Required: true},
		{Name: "glob", Type: TypeString, Description: "Only search files matching this glob (optional, e.g. '**/*.go')"},
		{Name: "case_insensitive", Type: TypeBoolean, Description: "Match case-insensitively (default false)"},
	}
}

func (t *SearchTextTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	expr := args.String("pattern", "")
	if expr == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	if args.Bool("case_insensitive", false) {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}

	glob := normalizeGlob(args.String("glob", ""))
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob pattern: %s", glob)
	}

	var matches []string
	files := 0
	err = tc.FS.Walk(ctx, func(fi *fs.FileInfo) error {
		if glob != "" {
			if ok, _ := doublestar.Match(glob, fi.Path); !ok {
				return nil
			}
		}
		if fi.Size > consts.MaxAttachedFileBytes {
			return nil
		}
		data, err := tc.FS.ReadFile(ctx, fi.Path)
		if err != nil || isBinary(data) {
			return nil
		}
		found := false
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, consts.BufferSize64KB), consts.BufferSize1MB)
		for lineNo := 1; scanner.Scan(); lineNo++ {
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}
			found = true
			matches = append(matches, fmt.Sprintf("%s:%d: %s", fi.Path, lineNo, clipLine(strings.TrimSpace(line))))
			if len(matches) >= consts.MaxSearchResults {
				files++
				return errSearchLimit
			}
		}
		if found {
			files++
		}
		return nil
	})
	truncated := errors.Is(err, errSearchLimit)
	if err != nil && !truncated {
		return nil, fmt.Errorf("error searching workspace: %w", err)
	}

	if len(matches) == 0 {
		return &Output{Text: fmt.Sprintf("No matches for %s", args.String("pattern", ""))}, nil
	}
	text := strings.Join(matches, "\n")
	if truncated {
		text += fmt.Sprintf("\n\n[... stopped after %d matches, narrow the pattern or glob]", consts.MaxSearchResults)
	}
	return &Output{
		Text:     text,
		Metadata: map[string]interface{}{"matches": len(matches), "files": files, "truncated": truncated},
	}, nil
}

func clipLine(line string) string {
	if len(line) <= maxMatchLineLength {
		return line
	}
	return line[:maxMatchLineLength] + "..."
}
