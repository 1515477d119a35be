package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/dimslaev/ai-chat/internal/fs"
)

// EditFileTool applies a unified diff to an existing file.
type EditFileTool struct{}

func NewEditFileTool() *EditFileTool {
	return &EditFileTool{}
}

func (t *EditFileTool) Name() string {
	return ToolNameEditFile
}

func (t *EditFileTool) Description() string {
	return `Update an existing file by applying a unified diff with standard hunk headers. Context and removed lines must match the current file exactly.

Example:
--- a/main.go
+++ b/main.go
@@ -3,3 +3,3 @@
 func main() {
-	fmt.Println("hello")
+	fmt.Println("hello, world")
 }`
}

func (t *EditFileTool) Params() []Param {
	return []Param{
		{Name: "path", Type: TypeString, Description: "Path of the file to update (relative to the workspace root)", Required: true},
		{Name: "diff", Type: TypeString, Description: "Unified diff describing the change; file headers are optional, hunk headers are required", Required: true},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	path := args.String("path", "")
	diffText := args.String("diff", "")
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	if strings.TrimSpace(diffText) == "" {
		return nil, fmt.Errorf("diff is required")
	}

	info, err := tc.FS.Stat(ctx, path)
	if err != nil {
		candidates, findErr := fs.FindCandidates(ctx, tc.FS, path)
		if findErr != nil {
			return nil, errors.Join(err, findErr)
		}
		return nil, &fs.NotFoundError{Path: path, Candidates: candidates}
	}
	if info.IsDir {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	current, err := tc.FS.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	updated, stats, err := applyUnifiedDiff(string(current), diffText)
	if err != nil {
		return nil, fmt.Errorf("error applying diff: %w", err)
	}

	if err := tc.FS.WriteFile(ctx, path, []byte(updated)); err != nil {
		return nil, fmt.Errorf("error writing file: %w", err)
	}

	return &Output{
		Text: fmt.Sprintf("Updated %s: %d hunk(s), +%d -%d lines", path, stats.hunks, stats.added, stats.removed),
		Metadata: map[string]interface{}{
			"path":    path,
			"added":   stats.added,
			"removed": stats.removed,
		},
	}, nil
}

type diffStats struct {
	hunks, added, removed int
}

// applyUnifiedDiff applies a unified diff to content. Hunks must be in file
// order and their context and removed lines must match.
func applyUnifiedDiff(original, diffText string) (string, diffStats, error) {
	var stats diffStats
	if !strings.HasPrefix(diffText, "---") && !strings.HasPrefix(diffText, "diff ") {
		diffText = "--- a/file\n+++ b/file\n" + diffText
	}
	if !strings.HasSuffix(diffText, "\n") {
		diffText += "\n"
	}

	fileDiff, err := diff.ParseFileDiff([]byte(diffText))
	if err != nil {
		return "", stats, fmt.Errorf("failed to parse unified diff: %w", err)
	}
	if len(fileDiff.Hunks) == 0 {
		return "", stats, fmt.Errorf("diff contains no hunks")
	}

	trailingNewline := strings.HasSuffix(original, "\n")
	originalLines := strings.Split(strings.TrimSuffix(original, "\n"), "\n")
	if original == "" {
		originalLines = nil
	}

	result := make([]string, 0, len(originalLines))
	pos := 0
	for i, hunk := range fileDiff.Hunks {
		start := int(hunk.OrigStartLine) - 1
		if hunk.OrigLines == 0 {
			// Pure insertion hunks name the line after which to insert.
			start = int(hunk.OrigStartLine)
		}
		if start < pos {
			return "", stats, fmt.Errorf("hunk %d overlaps the previous hunk", i+1)
		}
		if start > len(originalLines) {
			return "", stats, fmt.Errorf("hunk %d starts at line %d, past the end of the file (%d lines)", i+1, start+1, len(originalLines))
		}
		result = append(result, originalLines[pos:start]...)
		pos = start

		for _, line := range strings.Split(strings.TrimSuffix(string(hunk.Body), "\n"), "\n") {
			if line == "" || strings.HasPrefix(line, `\`) {
				continue
			}
			text := line[1:]
			switch line[0] {
			case ' ', '-':
				if pos >= len(originalLines) || originalLines[pos] != text {
					got := "end of file"
					if pos < len(originalLines) {
						got = fmt.Sprintf("%q", originalLines[pos])
					}
					return "", stats, fmt.Errorf("hunk %d does not apply at line %d: expected %q, found %s", i+1, pos+1, text, got)
				}
				if line[0] == ' ' {
					result = append(result, text)
				} else {
					stats.removed++
				}
				pos++
			case '+':
				result = append(result, text)
				stats.added++
			default:
				return "", stats, fmt.Errorf("hunk %d has an invalid line prefix %q", i+1, line[:1])
			}
		}
		stats.hunks++
	}
	result = append(result, originalLines[pos:]...)

	out := strings.Join(result, "\n")
	if trailingNewline || (original == "" && len(result) > 0) {
		out += "\n"
	}
	return out, stats, nil
}
