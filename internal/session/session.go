package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dimslaev/ai-chat/internal/llm"
)

// ErrTurnInProgress is returned when a turn starts while another is active.
var ErrTurnInProgress = errors.New("a turn is already in progress")

// ErrNoOpenMessage is returned when streaming text arrives without an open
// assistant message.
var ErrNoOpenMessage = errors.New("no open assistant message")

// Message represents a conversation message
type Message struct {
	ID         string         `json:"id"`
	Role       llm.Role       `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"` // Name of the tool for tool responses
	Timestamp  time.Time      `json:"timestamp"`
}

// ToLLM returns the provider-neutral form of the message.
func (m *Message) ToLLM() llm.Message {
	return llm.Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  append([]llm.ToolCall(nil), m.ToolCalls...),
		ToolCallID: m.ToolCallID,
		ToolName:   m.ToolName,
	}
}

// AttachedFile is a workspace file the user pinned into the context.
type AttachedFile struct {
	Name    string `json:"name"`
	Locator string `json:"locator"` // workspace-relative path
}

// CancelHandle is the cancellation token of one turn. A cancelled handle
// stays cancelled; the state replaces it instead of resetting it.
type CancelHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newCancelHandle(parent context.Context) *CancelHandle {
	ctx, cancel := context.WithCancel(parent)
	return &CancelHandle{ctx: ctx, cancel: cancel}
}

// Context is cancelled once the handle is signalled.
func (h *CancelHandle) Context() context.Context {
	return h.ctx
}

// Cancel signals the handle.
func (h *CancelHandle) Cancel() {
	h.cancel()
}

// Cancelled reports whether the handle has been signalled.
func (h *CancelHandle) Cancelled() bool {
	return h.ctx.Err() != nil
}

// State is the conversation state owned by one engine.
type State struct {
	mu sync.RWMutex

	history      []*Message
	open         *Message // streaming assistant message, also the last history entry
	files        []AttachedFile
	cancel       *CancelHandle
	continuation string
	toolsEnabled bool
	busy         bool
	turnDone     chan struct{}
	todos        *TodoList
}

// NewState creates an empty session.
func NewState(toolsEnabled bool) *State {
	return &State{
		cancel:       newCancelHandle(context.Background()),
		toolsEnabled: toolsEnabled,
		todos:        NewTodoList(),
	}
}

// Append adds a finished message to the history, assigning its ID and
// timestamp when unset.
func (s *State) Append(msg *Message) *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
	return msg
}

func (s *State) appendLocked(msg *Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.history = append(s.history, msg)
}

// History returns a copy of all messages, the open one included.
func (s *State) History() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]*Message, len(s.history))
	for i, m := range s.history {
		cp := *m
		messages[i] = &cp
	}
	return messages
}

// Len returns the number of history messages.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Recent returns up to n of the latest finished messages. Tool results at the
// head of the window whose requesting assistant message fell outside it are
// dropped. When the latest user message falls outside the window it is
// prepended, so a long tool phase never hides the question being answered.
func (s *State) Recent(n int) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	closed := s.history
	if s.open != nil && len(closed) > 0 && closed[len(closed)-1] == s.open {
		closed = closed[:len(closed)-1]
	}
	window := closed
	if n > 0 && len(window) > n {
		window = window[len(window)-n:]
	}
	for len(window) > 0 && window[0].Role == llm.RoleTool {
		window = window[1:]
	}

	out := make([]llm.Message, 0, len(window)+1)
	start := len(closed) - len(window)
	for i := len(closed) - 1; i >= 0; i-- {
		if closed[i].Role != llm.RoleUser {
			continue
		}
		if i < start {
			out = append(out, closed[i].ToLLM())
		}
		break
	}
	for _, m := range window {
		out = append(out, m.ToLLM())
	}
	return out
}

// OpenAssistant starts the streaming assistant message.
func (s *State) OpenAssistant() (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open != nil {
		return nil, errors.New("an assistant message is already open")
	}
	msg := &Message{Role: llm.RoleAssistant}
	s.appendLocked(msg)
	s.open = msg
	cp := *msg
	return &cp, nil
}

// HasOpenAssistant reports whether a streaming message is open.
func (s *State) HasOpenAssistant() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open != nil
}

// AppendToOpen extends the open assistant message.
func (s *State) AppendToOpen(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return ErrNoOpenMessage
	}
	s.open.Content += text
	return nil
}

// OpenContent returns the text streamed into the open message so far.
func (s *State) OpenContent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.open == nil {
		return ""
	}
	return s.open.Content
}

// CloseOpen finalizes the open message, keeping whatever text it holds.
func (s *State) CloseOpen() *Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return nil
	}
	cp := *s.open
	s.open = nil
	return &cp
}

// DiscardOpen removes the open message from the history.
func (s *State) DiscardOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i] == s.open {
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.open = nil
}

// AttachFile adds f unless a file with the same locator is attached.
func (s *State) AttachFile(f AttachedFile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.files {
		if existing.Locator == f.Locator {
			return false
		}
	}
	if f.Name == "" {
		f.Name = f.Locator
	}
	s.files = append(s.files, f)
	return true
}

// DetachFile removes the file with the given locator.
func (s *State) DetachFile(locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.Locator == locator {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// AttachedFiles returns the attached files in attachment order.
func (s *State) AttachedFiles() []AttachedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AttachedFile(nil), s.files...)
}

// Continuation returns the text of a truncated response awaiting continuation.
func (s *State) Continuation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.continuation
}

func (s *State) SetContinuation(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuation = text
}

func (s *State) ClearContinuation() {
	s.SetContinuation("")
}

func (s *State) ToolsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toolsEnabled
}

func (s *State) SetToolsEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolsEnabled = enabled
}

// Todos returns the session task list.
func (s *State) Todos() *TodoList {
	return s.todos
}

// BeginTurn marks the session busy and returns a fresh cancellation handle
// derived from parent.
func (s *State) BeginTurn(parent context.Context) (*CancelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrTurnInProgress
	}
	s.busy = true
	s.turnDone = make(chan struct{})
	s.cancel = newCancelHandle(parent)
	return s.cancel, nil
}

// EndTurn clears the busy flag and releases waiters.
func (s *State) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return
	}
	s.busy = false
	close(s.turnDone)
	s.turnDone = nil
}

// Busy reports whether a turn is active.
func (s *State) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Stop signals the current handle and installs a fresh one. It reports
// whether a turn was active, and returns a channel closed when that turn
// ends (nil when idle).
func (s *State) Stop() (active bool, done <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel.Cancel()
	s.cancel = newCancelHandle(context.Background())
	if !s.busy {
		return false, nil
	}
	return true, s.turnDone
}

// Clear drops history, attachments, the continuation buffer and todos. The
// tools flag is kept.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.open = nil
	s.files = nil
	s.continuation = ""
	s.todos.Clear()
}
