package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/project"
	"github.com/dimslaev/ai-chat/internal/prompt"
	"github.com/dimslaev/ai-chat/internal/session"
	"github.com/dimslaev/ai-chat/internal/syntax"
	"github.com/dimslaev/ai-chat/internal/tools"
)

// Assembler builds the model input for one request.
type Assembler struct {
	fs           fs.FileSystem
	registry     *tools.Registry
	workingDir   string
	contextFiles []string
	projectTypes string
	redactor     Redactor
	log          *logger.Logger
}

// Redactor masks credentials in text before it reaches a provider.
type Redactor interface {
	Redact(content string) (string, int)
}

// NewAssembler creates an assembler. projectTypes is a short description of
// the workspace for the system prompt and may be empty.
func NewAssembler(fsys fs.FileSystem, registry *tools.Registry, workingDir string, contextFiles []string, projectTypes string, log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.Global()
	}
	return &Assembler{
		fs:           fsys,
		registry:     registry,
		workingDir:   workingDir,
		contextFiles: append([]string(nil), contextFiles...),
		projectTypes: projectTypes,
		log:          log.WithPrefix("assembler"),
	}
}

// PrepareMessages returns, in order: the system prompt, the project context
// document, one message per readable attached file, the recent history and,
// while a truncated response is being continued, the text produced so far.
// The result depends only on the session state, snap and the workspace
// content; the tools toggle is taken from snap so it stays fixed for a turn.
func (a *Assembler) PrepareMessages(ctx context.Context, state *session.State, snap config.Snapshot) ([]llm.Message, error) {
	var defs []llm.ToolDefinition
	if snap.ToolsEnabled && a.registry != nil {
		defs = a.registry.Definitions()
	}
	system, err := prompt.Build(prompt.NewData(a.workingDir, a.projectTypes, snap.ToolsEnabled, defs))
	if err != nil {
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}
	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}

	doc, err := project.LoadContext(ctx, a.fs, a.contextFiles, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to load project context: %w", err)
	}
	if doc != nil {
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Project context from %s:\n\n%s", doc.Name, fenced(a.redact(doc.Name, doc.Content), "markdown")),
		})
	}

	for _, f := range state.AttachedFiles() {
		content, err := a.readAttachment(ctx, f)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			a.log.Warn("skipping attached file %s: %v", f.Locator, err)
			continue
		}
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Attached file %s:\n\n%s", f.Locator, fenced(a.redact(f.Locator, content), syntax.FenceTag(f.Locator))),
		})
	}

	limit := snap.HistoryLimit
	if limit <= 0 {
		limit = consts.DefaultHistoryLimit
	}
	messages = append(messages, state.Recent(limit)...)

	if buffered := state.Continuation(); buffered != "" {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: buffered})
	}
	return messages, nil
}

func (a *Assembler) readAttachment(ctx context.Context, f session.AttachedFile) (string, error) {
	data, err := a.fs.ReadFile(ctx, f.Locator)
	if err != nil {
		return "", err
	}
	content, truncated := fs.TruncateText(string(data), consts.MaxAttachedFileBytes)
	if truncated {
		content += "\n[... truncated]"
	}
	return content, nil
}

func (a *Assembler) redact(source, content string) string {
	if a.redactor == nil {
		return content
	}
	out, n := a.redactor.Redact(content)
	if n > 0 {
		a.log.Info("masked %d secret(s) in %s", n, source)
	}
	return out
}

// fenced wraps content in a code fence longer than any fence it contains.
func fenced(content, tag string) string {
	fence := fenceMarker
	for strings.Contains(content, fence) {
		fence += "`"
	}
	return fence + tag + "\n" + strings.TrimRight(content, "\n") + "\n" + fence
}

// hasToolExchanges reports whether messages carry tool calls or results.
func hasToolExchanges(messages []llm.Message) bool {
	for _, m := range messages {
		if m.Role == llm.RoleTool || len(m.ToolCalls) > 0 {
			return true
		}
	}
	return false
}
