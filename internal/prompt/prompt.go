package prompt

import (
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/dimslaev/ai-chat/internal/llm"
)

const systemPromptTemplate = `You are a coding assistant working inside the user's project. Answer concisely and ground your answers in the project's actual code.

## Operating Environment
- Working directory: {{ .WorkingDir }}
- Operating System: {{ .OS }}
- Current date: {{ .CurrentDate }}
{{- if .ProjectTypes }}
- Detected project type: {{ .ProjectTypes }}
{{- end }}
{{- if .ToolsEnabled }}

## Tooling
You can call these tools. Tool results are returned to you before you answer.
{{- range .Tools }}
- {{ .Name }}: {{ .Summary }}
{{- end }}

## Strategy
- Locate before reading: use search_files, search_text or list_directory when a path is unknown.
- Read only what you need; use line ranges and code_outline for large files.
- Before editing, read the current content; prefer edit_file with a minimal diff over rewriting whole files.
- Stop calling tools once you have enough information and answer the user.
{{- else }}

## Context
Tools are disabled. Work only from the conversation and the files included in it; say so when you need a file that is not included.
{{- end }}

## Communication
- Use Markdown. Put code in fenced blocks tagged with the language.
- Respond directly without unnecessary preamble.
`

var systemPrompt = template.Must(template.New("systemPrompt").Parse(systemPromptTemplate))

// ToolSummary is one tool menu entry.
type ToolSummary struct {
	Name    string
	Summary string
}

// Data drives the system prompt.
type Data struct {
	WorkingDir   string
	OS           string
	CurrentDate  string
	ProjectTypes string
	ToolsEnabled bool
	Tools        []ToolSummary
}

// NewData fills the environment fields and derives the tool menu from defs.
func NewData(workingDir, projectTypes string, toolsEnabled bool, defs []llm.ToolDefinition) Data {
	d := Data{
		WorkingDir:   workingDir,
		OS:           runtime.GOOS,
		CurrentDate:  time.Now().Format("2006-01-02"),
		ProjectTypes: projectTypes,
		ToolsEnabled: toolsEnabled,
	}
	if toolsEnabled {
		for _, def := range defs {
			d.Tools = append(d.Tools, ToolSummary{Name: def.Name, Summary: firstSentence(def.Description)})
		}
	}
	return d
}

// Build renders the system prompt.
func Build(d Data) (string, error) {
	var b strings.Builder
	if err := systemPrompt.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i+1]
	}
	return s
}
