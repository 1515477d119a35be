package consts

import "time"

// Conversation limits
const (
	// DefaultHistoryLimit is the number of most recent history messages sent to the model
	DefaultHistoryLimit = 20
	// DefaultMaxToolIterations bounds the request/execute rounds of one turn
	DefaultMaxToolIterations = 10
	// DefaultMaxContinuations bounds how often a truncated response is continued
	DefaultMaxContinuations = 8
	// DefaultTemperature is the sampling temperature when none is configured
	DefaultTemperature = 0.2
	// DefaultMaxTokens is the response token cap for providers that require one
	DefaultMaxTokens = 4096
)

// File operation limits
const (
	// MaxLinesPerRead is the maximum number of lines that can be read from a file at once
	MaxLinesPerRead = 2000
	// MaxAttachedFileBytes caps the content of one attached file in the assembled context
	MaxAttachedFileBytes = 256 * 1024
	// MaxSearchResults caps matches returned by the search tools
	MaxSearchResults = 200
	// MaxNotFoundCandidates caps the candidate list reported for a missing file
	MaxNotFoundCandidates = 10
)

// Buffer sizes
const (
	BufferSize64KB = 64 * 1024
	BufferSize1MB  = 1024 * 1024
)

// Timeouts
const (
	Timeout10Seconds = 10 * time.Second
)

// WebSocket keepalive
const (
	WebSocketWriteWait  = 10 * time.Second
	WebSocketPongWait   = 60 * time.Second
	WebSocketPingPeriod = (WebSocketPongWait * 9) / 10
	// WebSocketMaxMessageSize caps one inbound command frame
	WebSocketMaxMessageSize = 1024 * 1024
)
