package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/orchestrator/loop"
	"github.com/dimslaev/ai-chat/internal/session"
	"github.com/dimslaev/ai-chat/internal/tools"
)

// toolIteration is one round of the tool phase: a non-streaming completion
// offering every tool, followed by sequential execution of the calls it
// requested.
type toolIteration struct {
	engine *Engine
	snap   config.Snapshot
}

func (it *toolIteration) Execute(ctx context.Context, state loop.State) (*loop.IterationOutcome, error) {
	e := it.engine

	messages, err := e.assembler.PrepareMessages(ctx, e.state, it.snap)
	if err != nil {
		if ctx.Err() != nil {
			return &loop.IterationOutcome{Result: loop.Cancelled}, nil
		}
		return &loop.IterationOutcome{
			Result: loop.Error,
			Error:  &TurnError{Code: CodeAssemblyError, Err: err},
		}, nil
	}

	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		Model:       it.snap.Model,
		Messages:    messages,
		Tools:       e.registry.Definitions(),
		ToolChoice:  llm.ToolChoiceAuto,
		Temperature: it.snap.Temperature,
		MaxTokens:   it.snap.MaxTokens,
	})
	if ctx.Err() != nil {
		return &loop.IterationOutcome{Result: loop.Cancelled}, nil
	}
	if err != nil {
		return &loop.IterationOutcome{
			Result: loop.Error,
			Error:  &TurnError{Code: CodeProviderError, Err: err},
		}, nil
	}
	if resp == nil || len(resp.ToolCalls) == 0 {
		return &loop.IterationOutcome{Result: loop.Satisfied}, nil
	}

	calls := make([]llm.ToolCall, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		calls[i] = call
	}
	e.log.Debug("iteration %d: model requested %d tool call(s)", state.Iteration(), len(calls))

	e.state.Append(&session.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: calls,
	})

	tc := &tools.ToolContext{
		WorkspaceRoot: e.workingDir,
		FS:            e.fs,
		Todos:         e.state.Todos(),
	}

	executed := 0
	for i, call := range calls {
		if ctx.Err() != nil {
			e.recordCancelled(calls[i:])
			return &loop.IterationOutcome{Result: loop.Cancelled, ToolCalls: executed}, nil
		}

		e.emit(event.Event{Kind: event.ToolStarted, ToolName: call.Name, ToolCallID: call.ID})
		result := e.registry.ExecuteToolCall(ctx, tc, call)
		executed++
		e.recordResult(result)
		e.emit(event.Event{Kind: event.ToolFinished, ToolName: call.Name, ToolCallID: call.ID, IsError: result.IsError})
		e.log.Debug("tool %s finished in %s (error=%t)", call.Name, result.Duration, result.IsError)

		if ctx.Err() != nil {
			e.recordCancelled(calls[i+1:])
			return &loop.IterationOutcome{Result: loop.Cancelled, ToolCalls: executed}, nil
		}
	}

	return &loop.IterationOutcome{Result: loop.Continue, ToolCalls: executed}, nil
}

func (e *Engine) recordResult(result tools.ToolResult) {
	e.state.Append(&session.Message{
		Role:       llm.RoleTool,
		Content:    e.assembler.redact(result.Name+" output", result.Content),
		ToolCallID: result.ToolCallID,
		ToolName:   result.Name,
	})
}

// recordCancelled answers calls that never ran so every requested call has
// a matching result in the history.
func (e *Engine) recordCancelled(calls []llm.ToolCall) {
	for _, call := range calls {
		e.recordResult(tools.CancelledResult(call))
	}
}

// runToolPhase runs the tool loop for one turn.
func (e *Engine) runToolPhase(ctx context.Context, snap config.Snapshot) (*loop.Result, error) {
	cfg := loop.DefaultConfig()
	if snap.MaxToolIterations > 0 {
		cfg.MaxIterations = snap.MaxToolIterations
	}
	runner := loop.NewOrchestratorLoop(cfg, nil, &toolIteration{engine: e, snap: snap})
	result, err := runner.Run(ctx)
	if err != nil {
		return result, err
	}
	switch result.Terminal {
	case loop.TerminalExhausted:
		e.log.Warn("tool loop exhausted after %d iterations (%d tool calls)", result.IterationsExecuted, result.ToolCallsExecuted)
		e.emit(event.Exhausted(result.IterationsExecuted))
	case loop.TerminalSatisfied:
		e.log.Debug("tool loop satisfied after %d iterations", result.IterationsExecuted)
	}
	return result, nil
}
