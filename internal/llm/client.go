package llm

import (
	"context"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON as produced by the model
}

// Message is the provider-agnostic chat message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"` // set on tool results, needed by Gemini
}

// ToolDefinition declares a callable tool to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Model       string // overrides the client's default model when set
	Messages    []Message
	Tools       []ToolDefinition
	ToolChoice  ToolChoice
	Temperature float64
	MaxTokens   int
}

// CompletionResponse represents a non-streaming completion response
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
}

// FinishReason is the normalized reason a response ended.
type FinishReason string

const (
	FinishNone      FinishReason = ""
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
)

// NormalizeFinishReason maps provider-specific stop reasons onto the shared
// set. Unknown values are lower-cased and passed through; callers treat them
// like FinishStop.
func NormalizeFinishReason(raw string) FinishReason {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return FinishNone
	case "stop", "end_turn", "stop_sequence":
		return FinishStop
	case "length", "max_tokens":
		return FinishLength
	case "tool_calls", "tool_use", "function_call":
		return FinishToolCalls
	default:
		return FinishReason(strings.ToLower(raw))
	}
}

// StreamDelta is one increment of a streamed response. FinishReason is set on
// the final delta only.
type StreamDelta struct {
	Text         string
	FinishReason FinishReason
}

// Stream yields response increments. Iterate with Next/Current, then check Err.
type Stream interface {
	Next() bool
	Current() StreamDelta
	Err() error
	Close() error
}

// Client is the interface for LLM clients
type Client interface {
	// Complete sends a non-streaming request, used for tool orchestration
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// Stream opens a streaming request for the final answer
	Stream(ctx context.Context, req *CompletionRequest) (Stream, error)
	// GetModelName returns the default model name
	GetModelName() string
	// Provider returns the wire variant this client speaks
	Provider() Provider
}

func modelFor(req *CompletionRequest, fallback string) string {
	if req != nil && strings.TrimSpace(req.Model) != "" {
		return strings.TrimSpace(req.Model)
	}
	return fallback
}
