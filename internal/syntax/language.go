package syntax

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DetectLanguage determines the language from a file's extension.
// Returns "" for files without a known language.
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py", ".pyw":
		return "python"
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".tsx":
		return "tsx"
	case ".jsx":
		return "jsx"
	case ".sh", ".bash", ".zsh":
		return "bash"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".md", ".markdown":
		return "markdown"
	}
	switch strings.ToLower(filepath.Base(path)) {
	case "makefile":
		return "makefile"
	case "dockerfile":
		return "dockerfile"
	}
	return ""
}

// FenceTag returns the markdown code fence info string for path.
func FenceTag(path string) string {
	if lang := DetectLanguage(path); lang != "" {
		return lang
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Symbol is one declaration in an outline.
type Symbol struct {
	Kind      string   `json:"kind"` // function, method, type, class, interface, const, var
	Name      string   `json:"name"`
	Line      int      `json:"line"` // 1-based
	EndLine   int      `json:"end_line"`
	Container string   `json:"container,omitempty"` // enclosing type or class
	Children  []Symbol `json:"children,omitempty"`
}

// Outline lists the declarations of one source file.
type Outline struct {
	Language  string   `json:"language"`
	Symbols   []Symbol `json:"symbols"`
	HasErrors bool     `json:"has_errors"`
}

// Format renders the outline as indented text, one symbol per line.
func (o *Outline) Format() string {
	var b strings.Builder
	var write func(symbols []Symbol, depth int)
	write = func(symbols []Symbol, depth int) {
		for _, s := range symbols {
			name := s.Name
			if s.Container != "" {
				name = s.Container + "." + s.Name
			}
			fmt.Fprintf(&b, "%s%s %s (lines %d-%d)\n", strings.Repeat("  ", depth), s.Kind, name, s.Line, s.EndLine)
			write(s.Children, depth+1)
		}
	}
	write(o.Symbols, 0)
	if o.HasErrors {
		b.WriteString("(file contains syntax errors; outline may be incomplete)\n")
	}
	return b.String()
}
