package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/syntax"
)

// CodeOutlineTool lists the declarations of a source file.
type CodeOutlineTool struct{}

func NewCodeOutlineTool() *CodeOutlineTool {
	return &CodeOutlineTool{}
}

func (t *CodeOutlineTool) Name() string {
	return ToolNameCodeOutline
}

func (t *CodeOutlineTool) Description() string {
	langs := syntax.SupportedOutlineLanguages()
	if len(langs) == 0 {
		return "List the functions, types and classes declared in a source file with their line ranges. (Unavailable in this build.)"
	}
	return fmt.Sprintf("List the functions, types and classes declared in a source file with their line ranges. Use it to navigate large files before reading line ranges. Languages: %s.", strings.Join(langs, ", "))
}

func (t *CodeOutlineTool) Params() []Param {
	return []Param{
		{Name: "path", Type: TypeString, Description: "Source file to outline (relative to the workspace root)", Required: true},
	}
}

func (t *CodeOutlineTool) Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error) {
	path := args.String("path", "")
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}

	res, err := fs.Resolve(ctx, tc.FS, path)
	if err != nil {
		return nil, err
	}
	lang := syntax.DetectLanguage(res.Path)
	if !syntax.OutlineSupported(lang) {
		return nil, fmt.Errorf("no outline support for %s", res.Path)
	}

	data, err := tc.FS.ReadFile(ctx, res.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	outline, err := syntax.BuildOutline(ctx, data, lang)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if res.AutoPicked {
		fmt.Fprintf(&b, "Note: %s was not found; outlining %s, the only file with that name.\n", res.Requested, res.Path)
	}
	fmt.Fprintf(&b, "Outline of %s (%s):\n", res.Path, lang)
	if len(outline.Symbols) == 0 && !outline.HasErrors {
		b.WriteString("(no declarations)")
	} else {
		b.WriteString(outline.Format())
	}

	return &Output{
		Text:     strings.TrimRight(b.String(), "\n"),
		Metadata: map[string]interface{}{"path": res.Path, "symbols": len(outline.Symbols)},
	}, nil
}
