package tools

import (
	"context"
	"fmt"
	"strings"
)

// WriteFileTool creates or overwrites a workspace file.
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool {
	return &WriteFileTool{}
}

func (t *WriteFileTool) Name() string {
	return ToolNameWriteFile
}

func (t *WriteFileTool) Description() string {
	return "Create a file or replace its entire content. Parent directories are created as needed. Prefer edit_file for changes to existing files."
}

func (t *WriteFileTool) Params() []Param {
	return []Param{
		{Name: "path", Type: TypeString, Description: "Path of the file to write (relative to the workspace root)", Required: true},
		{Name: "content", Type: TypeString, Description: "Full file content", Required: true},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	path := args.String("path", "")
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	content := args.String("content", "")

	action := "created"
	if info, err := tc.FS.Stat(ctx, path); err == nil {
		if info.IsDir {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		action = "updated"
	}

	if err := tc.FS.WriteFile(ctx, path, []byte(content)); err != nil {
		return nil, fmt.Errorf("error writing file: %w", err)
	}

	return &Output{
		Text:     fmt.Sprintf("%s %s (%d bytes)", strings.ToUpper(action[:1])+action[1:], path, len(content)),
		Metadata: map[string]interface{}{"path": path, "action": action, "bytes": len(content)},
	}, nil
}
