package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/session"
)

// Tool is a local capability the model may invoke.
//
// Parameters are declared once as a []Param; the JSON schema sent to the
// model and the argument checks done before Execute both derive from it.
type Tool interface {
	Name() string
	Description() string
	Params() []Param
	Execute(ctx context.Context, tc *ToolContext, args Args) (*Output, error)
}

// ToolContext carries the collaborators a tool may use during one call.
type ToolContext struct {
	WorkspaceRoot string
	FS            fs.FileSystem
	Todos         *session.TodoList
}

// Output is what a tool hands back on success.
type Output struct {
	Text     string
	Metadata map[string]interface{}
}

// ToolResult is the outcome of one tool call as fed back to the model.
// Failures are reported in Content, never as Go errors.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
	Duration   time.Duration
	Metadata   map[string]interface{}
}

// Registry manages available tools
type Registry struct {
	tools map[string]Tool
	order []string
	log   *logger.Logger
}

// NewRegistry creates an empty tool registry
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Global()
	}
	return &Registry{
		tools: make(map[string]Tool),
		log:   log.WithPrefix("tools"),
	}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Name()]; !exists {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Tools returns registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Filter returns a registry holding the tools for which keep is true.
func (r *Registry) Filter(keep func(name string) bool) *Registry {
	out := &Registry{tools: make(map[string]Tool), log: r.log}
	for _, name := range r.order {
		if keep(name) {
			out.Register(r.tools[name])
		}
	}
	return out
}

// Definitions returns the tool menu in the provider-neutral declaration shape.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, tool := range r.Tools() {
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  BuildSchema(tool.Params()),
		})
	}
	return defs
}

// ExecuteToolCall runs one model-requested call. It never returns an error
// and never panics: unknown tools, malformed arguments, handler errors and
// handler panics all come back as text in the result.
func (r *Registry) ExecuteToolCall(ctx context.Context, tc *ToolContext, call llm.ToolCall) (result ToolResult) {
	start := time.Now()
	result = ToolResult{ToolCallID: call.ID, Name: call.Name}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("%s panicked: %v\n%s", call.Name, rec, debug.Stack())
			result.Content = fmt.Sprintf("Error: tool %s failed unexpectedly: %v", call.Name, rec)
			result.IsError = true
		}
		result.Duration = time.Since(start)
	}()

	tool, ok := r.tools[call.Name]
	if !ok {
		r.log.Warn("unknown tool requested: %s", call.Name)
		result.Content = r.unknownToolMessage(call.Name)
		result.IsError = true
		return result
	}

	args, err := ParseArgs(call.Arguments)
	if err != nil {
		r.log.Warn("%s: invalid arguments: %v", call.Name, err)
		result.Content = fmt.Sprintf("Error: invalid arguments for %s: %v", call.Name, err)
		result.IsError = true
		return result
	}
	if err := validateArgs(tool.Params(), args); err != nil {
		result.Content = fmt.Sprintf("Error: invalid arguments for %s: %v", call.Name, err)
		result.IsError = true
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Content = "Error: cancelled before execution"
		result.IsError = true
		return result
	}

	r.log.Debug("executing %s id=%s", call.Name, call.ID)
	out, err := tool.Execute(ctx, tc, args)
	if err != nil {
		r.log.Info("%s returned error: %v", call.Name, err)
		result.Content = "Error: " + err.Error()
		result.IsError = true
		return result
	}
	if out == nil {
		result.Content = "Error: tool returned no output"
		result.IsError = true
		return result
	}

	result.Content = truncateOutput(out.Text, consts.BufferSize64KB)
	result.Metadata = out.Metadata
	return result
}

// CancelledResult is recorded for calls skipped because the turn was stopped.
func CancelledResult(call llm.ToolCall) ToolResult {
	return ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    "Cancelled: the user stopped the turn before this tool ran.",
		IsError:    true,
	}
}

func (r *Registry) unknownToolMessage(name string) string {
	msg := fmt.Sprintf("Error: unknown tool %q.", name)
	if suggestion := closestName(name, r.order); suggestion != "" {
		msg += fmt.Sprintf(" Did you mean %q?", suggestion)
	}
	if len(r.order) > 0 {
		names := r.Names()
		sort.Strings(names)
		msg += " Available tools: " + strings.Join(names, ", ")
	}
	return msg
}

// closestName returns the candidate within edit distance 3 of name.
func closestName(name string, candidates []string) string {
	best, bestDist := "", 4
	for _, c := range candidates {
		if d := levenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func levenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func truncateOutput(text string, limit int) string {
	kept, truncated := fs.TruncateText(text, limit)
	if !truncated {
		return text
	}
	return kept + fmt.Sprintf("\n\n[... output truncated, %d of %d bytes shown]", len(kept), len(text))
}

// ParseArgs decodes the JSON object of a tool call. An empty string is an
// empty argument set. Anything after the object, such as a second object
// from concatenated calls, is rejected.
func ParseArgs(raw string) (Args, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Args{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args Args
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected trailing data after arguments at offset %d", dec.InputOffset())
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}
