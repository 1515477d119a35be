// Package orchestrator runs assistant turns: context assembly, the bounded
// tool phase and the streamed answer with continuation of truncated output.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/orchestrator/loop"
	"github.com/dimslaev/ai-chat/internal/project"
	"github.com/dimslaev/ai-chat/internal/session"
	"github.com/dimslaev/ai-chat/internal/tools"
)

var errTurnAlreadyRun = errors.New("turn already ran")

// ToolsPreference persists the tools toggle.
type ToolsPreference interface {
	SaveToolsEnabled(ctx context.Context, enabled bool) error
}

// UserTurn is one submitted user message.
type UserTurn struct {
	ID      string
	Content string
}

// Options configures an Engine.
type Options struct {
	Client   llm.Client
	FS       fs.FileSystem
	Registry *tools.Registry
	Sink     event.Sink
	// Settings is read once at the start of every turn.
	Settings     func() config.Snapshot
	Preference   ToolsPreference
	WorkingDir   string
	ContextFiles []string
	ToolsEnabled bool
	// Redactor, when set, masks secrets in file content and tool output.
	Redactor Redactor
	Logger   *logger.Logger
}

// Engine owns one session and runs its turns.
type Engine struct {
	client     llm.Client
	fs         fs.FileSystem
	registry   *tools.Registry
	assembler  *Assembler
	state      *session.State
	sink       event.Sink
	settings   func() config.Snapshot
	preference ToolsPreference
	workingDir string
	log        *logger.Logger
}

// New creates an engine. The workspace is scanned once for project types.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, errors.New("orchestrator: client is required")
	}
	if opts.FS == nil {
		return nil, errors.New("orchestrator: filesystem is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	registry := opts.Registry
	if registry == nil {
		registry = tools.NewDefaultRegistry(log)
	}
	settings := opts.Settings
	if settings == nil {
		defaults := config.DefaultConfig().Snapshot()
		settings = func() config.Snapshot { return defaults }
	}

	projectTypes := ""
	types, err := project.NewDetector(opts.FS).Detect(ctx)
	if err != nil {
		log.Warn("project detection failed: %v", err)
	} else {
		projectTypes = project.Summary(types)
	}

	assembler := NewAssembler(opts.FS, registry, opts.WorkingDir, opts.ContextFiles, projectTypes, log)
	assembler.redactor = opts.Redactor

	return &Engine{
		client:     opts.Client,
		fs:         opts.FS,
		registry:   registry,
		assembler:  assembler,
		state:      session.NewState(opts.ToolsEnabled),
		sink:       opts.Sink,
		settings:   settings,
		preference: opts.Preference,
		workingDir: opts.WorkingDir,
		log:        log.WithPrefix("engine"),
	}, nil
}

// State exposes the session for hosts that render history.
func (e *Engine) State() *session.State {
	return e.state
}

func (e *Engine) emit(ev event.Event) {
	event.Dispatch(e.sink, ev)
}

// Turn is a turn that holds the session but has not run yet.
type Turn struct {
	engine *Engine
	handle *session.CancelHandle
	input  UserTurn
	once   sync.Once
}

// Begin claims the session for turn. A Stop issued after Begin returns
// cancels this turn even if Run has not started. The caller must call Run.
func (e *Engine) Begin(ctx context.Context, turn UserTurn) (*Turn, error) {
	handle, err := e.state.BeginTurn(ctx)
	if err != nil {
		return nil, &TurnError{Code: CodeTurnInProgress, Err: err}
	}
	return &Turn{engine: e, handle: handle, input: turn}, nil
}

// Run executes the turn and releases the session. Only the first call runs.
func (t *Turn) Run() error {
	err := errTurnAlreadyRun
	t.once.Do(func() {
		defer t.engine.state.EndTurn()
		err = t.engine.run(t.handle.Context(), t.input)
	})
	return err
}

// Submit runs one turn on the caller's goroutine and returns when it ends.
// A stopped turn returns nil. Failures are reported as error events and
// returned as *TurnError.
func (e *Engine) Submit(ctx context.Context, turn UserTurn) error {
	t, err := e.Begin(ctx, turn)
	if err != nil {
		return err
	}
	return t.Run()
}

func (e *Engine) run(ctx context.Context, turn UserTurn) error {
	snap := e.settings()
	snap.ToolsEnabled = e.state.ToolsEnabled()

	e.state.ClearContinuation()
	e.state.Append(&session.Message{ID: turn.ID, Role: llm.RoleUser, Content: turn.Content})
	e.log.Info("turn %s started (tools=%t, model=%s)", turn.ID, snap.ToolsEnabled, snap.Model)

	if ctx.Err() != nil {
		e.log.Info("turn %s stopped before it started", turn.ID)
		e.emit(event.Ended())
		return nil
	}

	if snap.ToolsEnabled {
		result, err := e.runToolPhase(ctx, snap)
		if err != nil {
			code := ErrorCode(err)
			if code == "" {
				code = CodeProviderError
				err = &TurnError{Code: code, Err: err}
			}
			e.log.Error("tool phase failed: %v", err)
			e.emit(event.Err(errors.Unwrap(err).Error(), code))
			return err
		}
		if result.Terminal == loop.TerminalCancelled {
			e.log.Info("turn %s stopped during tool phase", turn.ID)
			e.emit(event.Ended())
			return nil
		}
	}

	if ctx.Err() != nil {
		e.emit(event.Ended())
		return nil
	}
	return e.streamAnswer(ctx, snap)
}

// Stop cancels the active turn. The turn itself emits message-ended; when
// idle, Stop emits it directly.
func (e *Engine) Stop() {
	active, _ := e.state.Stop()
	if !active {
		e.emit(event.Ended())
	}
}

// AttachFile pins a workspace file into the context. It reports false when
// the locator is already attached.
func (e *Engine) AttachFile(f session.AttachedFile) bool {
	return e.state.AttachFile(f)
}

// DetachFile removes an attachment by locator.
func (e *Engine) DetachFile(locator string) bool {
	return e.state.DetachFile(locator)
}

// ResolveAttachment maps a user-typed path to a workspace file. A single
// near match is picked automatically; otherwise the error is a
// *fs.NotFoundError listing the candidates.
func (e *Engine) ResolveAttachment(ctx context.Context, path string) (session.AttachedFile, fs.Resolution, error) {
	res, err := fs.Resolve(ctx, e.fs, path)
	if err != nil {
		return session.AttachedFile{}, res, err
	}
	return session.AttachedFile{Locator: res.Path}, res, nil
}

// SetToolsEnabled switches the tool phase on or off and persists the choice.
// The session keeps the new value even when persisting fails.
func (e *Engine) SetToolsEnabled(ctx context.Context, enabled bool) error {
	e.state.SetToolsEnabled(enabled)
	if e.preference == nil {
		return nil
	}
	if err := e.preference.SaveToolsEnabled(ctx, enabled); err != nil {
		e.log.Warn("failed to persist tools preference: %v", err)
		return fmt.Errorf("failed to persist tools preference: %w", err)
	}
	return nil
}

// ToolsEnabled reports the current toggle.
func (e *Engine) ToolsEnabled() bool {
	return e.state.ToolsEnabled()
}

// Reset stops any active turn, waits for it to end and clears the session.
func (e *Engine) Reset() {
	if active, done := e.state.Stop(); active && done != nil {
		<-done
	}
	e.state.Clear()
}
