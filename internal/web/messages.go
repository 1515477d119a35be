package web

import (
	"time"

	"github.com/dimslaev/ai-chat/internal/event"
)

// Inbound command types
const (
	CommandSubmitTurn  = "submit_turn"
	CommandStop        = "stop"
	CommandAttachFile  = "attach_file"
	CommandDetachFile  = "detach_file"
	CommandToggleTools = "toggle_tools"
	CommandReset       = "reset"
)

// Host message types sent in addition to engine events
const (
	MessageTypeReady        = "ready"
	MessageTypeFileAttached = "file_attached"
	MessageTypeFileDetached = "file_detached"
	MessageTypeToolsToggled = "tools_toggled"
	MessageTypeSessionReset = "session_reset"
	MessageTypeSystem       = "system"
)

// Error codes produced by the host itself
const (
	CodeInvalidCommand = "invalid_command"
	CodeFileNotFound   = "file_not_found"
	CodeSettingsError  = "settings_error"
)

// Command is a message received from a client.
type Command struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`      // submit_turn
	Content string `json:"content,omitempty"` // submit_turn
	Path    string `json:"path,omitempty"`    // attach_file, detach_file
	Name    string `json:"name,omitempty"`    // attach_file
	Enabled *bool  `json:"enabled,omitempty"` // toggle_tools; nil flips the current value
}

// WebMessage is a message sent to a client. Engine events keep their kind
// as Type.
type WebMessage struct {
	Type       string         `json:"type"`
	Text       string         `json:"text,omitempty"`
	Message    string         `json:"message,omitempty"`
	Code       string         `json:"code,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
	Iterations int            `json:"iterations,omitempty"`
	Path       string         `json:"path,omitempty"`
	Candidates []string       `json:"candidates,omitempty"`
	Enabled    *bool          `json:"enabled,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

func fromEvent(e event.Event) *WebMessage {
	return &WebMessage{
		Type:       string(e.Kind),
		Text:       e.Text,
		Message:    e.Message,
		Code:       e.Code,
		ToolName:   e.ToolName,
		ToolCallID: e.ToolCallID,
		IsError:    e.IsError,
		Iterations: e.Iterations,
		Timestamp:  time.Now(),
	}
}

func errorMessage(msg, code string) *WebMessage {
	return fromEvent(event.Err(msg, code))
}

func boolPtr(b bool) *bool {
	return &b
}
