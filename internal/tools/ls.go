package tools

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ListDirectoryTool lists one workspace directory.
type ListDirectoryTool struct{}

func NewListDirectoryTool() *ListDirectoryTool {
	return &ListDirectoryTool{}
}

func (t *ListDirectoryTool) Name() string {
	return ToolNameListDirectory
}

func (t *ListDirectoryTool) Description() string {
	return "List the files and directories inside a workspace directory. Ignored files (.gitignore, .git, node_modules) are omitted."
}

func (t *ListDirectoryTool) Params() []Param {
	return []Param{
		{Name: "path", Type: TypeString, Description: "Directory to list, relative to the workspace root (default: the root)"},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	dir := strings.TrimSpace(args.String("path", "."))
	if dir == "" {
		dir = "."
	}

	entries, err := tc.FS.ListDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("error listing directory: %w", err)
	}
	if len(entries) == 0 {
		return &Output{Text: fmt.Sprintf("%s is empty", dir)}, nil
	}

	var b strings.Builder
	dirs, files := 0, 0
	for _, e := range entries {
		name := path.Base(e.Path)
		if e.IsDir {
			dirs++
			fmt.Fprintf(&b, "%s/\n", name)
			continue
		}
		files++
		fmt.Fprintf(&b, "%s (%s)\n", name, formatSize(e.Size))
	}
	fmt.Fprintf(&b, "\n%d director%s, %d file%s", dirs, plural(dirs, "y", "ies"), files, plural(files, "", "s"))

	return &Output{
		Text:     b.String(),
		Metadata: map[string]interface{}{"dirs": dirs, "files": files},
	}, nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
