package tools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
)

// ReadFileTool reads workspace files, whole or by line range. A missing path
// is resolved against files with the same base name.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool {
	return &ReadFileTool{}
}

func (t *ReadFileTool) Name() string {
	return ToolNameReadFile
}

func (t *ReadFileTool) Description() string {
	return fmt.Sprintf("Read a file from the workspace. Can read the entire file or a line range. Maximum %d lines per read. If the path does not exist, files with the same name are suggested; a single match is read automatically.", consts.MaxLinesPerRead)
}

func (t *ReadFileTool) Params() []Param {
	return []Param{
		{Name: "path", Type: TypeString, Description: "Path to the file to read (relative to the workspace root)", Required: true},
		{Name: "from_line", Type: TypeInteger, Description: "Starting line number (1-indexed, optional)"},
		{Name: "to_line", Type: TypeInteger, Description: fmt.Sprintf("Ending line number (1-indexed, inclusive, optional, at most %d lines from start)", consts.MaxLinesPerRead)},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	path := args.String("path", "")
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	fromLine := args.Int("from_line", 0)
	toLine := args.Int("to_line", 0)

	res, err := fs.Resolve(ctx, tc.FS, path)
	if err != nil {
		return nil, err
	}

	data, err := tc.FS.ReadFile(ctx, res.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if isBinary(data) {
		return nil, fmt.Errorf("%s appears to be a binary file", res.Path)
	}

	content, header, err := selectLines(string(data), fromLine, toLine)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if res.AutoPicked {
		fmt.Fprintf(&b, "Note: %s was not found; reading %s, the only file with that name.\n", res.Requested, res.Path)
	}
	fmt.Fprintf(&b, "File: %s (%s)\n", res.Path, header)
	b.WriteString(content)

	return &Output{
		Text: b.String(),
		Metadata: map[string]interface{}{
			"path":        res.Path,
			"auto_picked": res.AutoPicked,
		},
	}, nil
}

// selectLines applies the optional 1-based inclusive range and the per-read
// line cap.
func selectLines(content string, fromLine, toLine int) (string, string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)
	if total == 0 {
		return "", "empty file", nil
	}

	if fromLine <= 0 {
		fromLine = 1
	}
	if fromLine > total {
		return "", "", fmt.Errorf("from_line %d is past the end of the file (%d lines)", fromLine, total)
	}
	explicitEnd := toLine > 0
	if !explicitEnd || toLine > total {
		toLine = total
	}
	if toLine < fromLine {
		return "", "", fmt.Errorf("to_line %d is before from_line %d", toLine, fromLine)
	}
	if toLine-fromLine+1 > consts.MaxLinesPerRead {
		if explicitEnd {
			return "", "", fmt.Errorf("cannot read more than %d lines at once", consts.MaxLinesPerRead)
		}
		toLine = fromLine + consts.MaxLinesPerRead - 1
	}

	selected := strings.Join(lines[fromLine-1:toLine], "\n")
	header := fmt.Sprintf("lines %d-%d of %d", fromLine, toLine, total)
	if toLine < total && !explicitEnd {
		selected += fmt.Sprintf("\n\n[... file truncated, %d total lines, showing lines %d-%d. Use from_line and to_line to read more]", total, fromLine, toLine)
	}
	return selected, header, nil
}

// isBinary reports whether data has a NUL byte within its first 8KB.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) >= 0
}
