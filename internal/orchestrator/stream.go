package orchestrator

import (
	"context"
	"errors"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/llm"
)

var errStreamCancelled = errors.New("stream cancelled")

// streamAnswer streams the final answer into one assistant message. A round
// that ends on the length limit keeps the text produced so far in the
// continuation buffer and runs again into the same message.
func (e *Engine) streamAnswer(ctx context.Context, snap config.Snapshot) error {
	limit := snap.MaxContinuations
	if limit <= 0 {
		limit = consts.DefaultMaxContinuations
	}

	if !e.state.HasOpenAssistant() {
		e.emit(event.Started())
		if _, err := e.state.OpenAssistant(); err != nil {
			return e.failStream(CodeStreamError, err)
		}
	}

	for continuations := 0; ; {
		messages, err := e.assembler.PrepareMessages(ctx, e.state, snap)
		if err != nil {
			if ctx.Err() != nil {
				e.abortStream()
				return nil
			}
			return e.failStream(CodeAssemblyError, err)
		}

		req := &llm.CompletionRequest{
			Model:       snap.Model,
			Messages:    messages,
			ToolChoice:  llm.ToolChoiceNone,
			Temperature: snap.Temperature,
			MaxTokens:   snap.MaxTokens,
		}
		// Providers reject tool exchanges in the input unless the tools are declared.
		if snap.ToolsEnabled || hasToolExchanges(messages) {
			req.Tools = e.registry.Definitions()
		}

		reason, err := e.consumeStream(ctx, req)
		if errors.Is(err, errStreamCancelled) {
			e.abortStream()
			return nil
		}
		if err != nil {
			return e.failStream(CodeStreamError, err)
		}

		if reason == llm.FinishLength {
			if continuations < limit {
				continuations++
				e.state.SetContinuation(e.state.OpenContent())
				e.log.Debug("response truncated, continuing (%d/%d)", continuations, limit)
				continue
			}
			e.log.Warn("response still truncated after %d continuations", limit)
		}

		e.state.ClearContinuation()
		e.state.CloseOpen()
		e.emit(event.Ended())
		return nil
	}
}

// consumeStream runs one streaming request, appending every increment to
// the open message. It returns the finish reason reported by the provider.
func (e *Engine) consumeStream(ctx context.Context, req *llm.CompletionRequest) (llm.FinishReason, error) {
	stream, err := e.client.Stream(ctx, req)
	if ctx.Err() != nil {
		if stream != nil {
			stream.Close()
		}
		return "", errStreamCancelled
	}
	if err != nil {
		return "", err
	}
	defer stream.Close()

	buffered := e.state.Continuation()
	repairPending := buffered != ""
	reason := llm.FinishNone

	for stream.Next() {
		if ctx.Err() != nil {
			return reason, errStreamCancelled
		}
		delta := stream.Current()
		if delta.FinishReason != llm.FinishNone {
			reason = delta.FinishReason
		}
		text := delta.Text
		if text == "" {
			continue
		}
		if repairPending {
			text = RepairContinuation(buffered, text)
			repairPending = false
		}
		if err := e.state.AppendToOpen(text); err != nil {
			return reason, err
		}
		e.emit(event.Chunk(text))
	}
	if ctx.Err() != nil {
		return reason, errStreamCancelled
	}
	if err := stream.Err(); err != nil {
		return reason, err
	}
	return reason, nil
}

// abortStream ends the message after a stop. Text already shown is kept.
func (e *Engine) abortStream() {
	e.state.ClearContinuation()
	if e.state.OpenContent() == "" {
		e.state.DiscardOpen()
	} else {
		e.state.CloseOpen()
	}
	e.emit(event.Ended())
}

// failStream drops the unfinished message and reports the failure.
func (e *Engine) failStream(code string, err error) error {
	e.log.Error("streaming failed: %v", err)
	e.state.ClearContinuation()
	e.state.DiscardOpen()
	e.emit(event.Ended())
	e.emit(event.Err(err.Error(), code))
	return &TurnError{Code: code, Err: err}
}
