package event

import (
	"fmt"
	"sync"
)

// Kind names an outbound event.
type Kind string

const (
	// MessageStarted opens a new assistant message.
	MessageStarted Kind = "message-started"
	// ChunkAppended carries streamed text for the open message.
	ChunkAppended Kind = "chunk-appended"
	// MessageEnded closes the assistant message (finished, cancelled or failed).
	MessageEnded Kind = "message-ended"
	// Error reports a failed turn.
	Error Kind = "error"

	// ToolStarted and ToolFinished bracket one tool call.
	ToolStarted  Kind = "tool-started"
	ToolFinished Kind = "tool-finished"
	// ToolLoopExhausted reports that the tool loop hit its iteration bound.
	ToolLoopExhausted Kind = "tool-loop-exhausted"
)

// Event is one notification to the presentation layer.
type Event struct {
	Kind Kind `json:"type"`
	// Text is the delta for ChunkAppended.
	Text string `json:"text,omitempty"`
	// Message and Code describe an Error.
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	// ToolName and ToolCallID identify the call for tool events.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	// IsError marks a ToolFinished whose result reports a failure.
	IsError bool `json:"is_error,omitempty"`
	// Iterations is set on ToolLoopExhausted.
	Iterations int `json:"iterations,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case ChunkAppended:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Text)
	case Error:
		if e.Code != "" {
			return fmt.Sprintf("%s(%s: %s)", e.Kind, e.Code, e.Message)
		}
		return fmt.Sprintf("%s(%s)", e.Kind, e.Message)
	case ToolStarted, ToolFinished:
		return fmt.Sprintf("%s(%s)", e.Kind, e.ToolName)
	case ToolLoopExhausted:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Iterations)
	}
	return string(e.Kind)
}

func Started() Event             { return Event{Kind: MessageStarted} }
func Chunk(text string) Event    { return Event{Kind: ChunkAppended, Text: text} }
func Ended() Event               { return Event{Kind: MessageEnded} }
func Exhausted(n int) Event      { return Event{Kind: ToolLoopExhausted, Iterations: n} }
func Err(msg, code string) Event { return Event{Kind: Error, Message: msg, Code: code} }

// Sink receives events in emission order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Dispatch sends the event if the sink is set.
func Dispatch(s Sink, e Event) {
	if s == nil {
		return
	}
	s.Emit(e)
}

// Recorder is a Sink that keeps every event. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events.
func (r *Recorder) Kinds() []Kind {
	events := r.Events()
	kinds := make([]Kind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Text concatenates the text of all ChunkAppended events.
func (r *Recorder) Text() string {
	var out string
	for _, e := range r.Events() {
		if e.Kind == ChunkAppended {
			out += e.Text
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
