// Package loop runs the bounded request/execute cycle of the tool phase.
// The iteration itself (model call plus tool execution) is supplied by the
// caller; this package owns counting, termination and the final verdict.
package loop

import (
	"context"

	"github.com/dimslaev/ai-chat/internal/consts"
)

// State tracks iteration counts for one loop run.
type State interface {
	// Iteration returns the number of iterations started so far
	Iteration() int

	// Increment advances the iteration counter and returns the new count
	Increment() int

	// MaxIterations returns the maximum number of iterations allowed
	MaxIterations() int

	// HasReachedLimit returns true if the maximum iteration limit has been reached
	HasReachedLimit() bool

	// AddToolCalls records executed tool calls
	AddToolCalls(n int)

	// ToolCalls returns the number of tool calls executed so far
	ToolCalls() int
}

// IterationResult represents the outcome of a single loop iteration
type IterationResult int

const (
	// Continue indicates tools were executed and the model must be asked again
	Continue IterationResult = iota

	// Satisfied indicates the model requested no tools
	Satisfied

	// Cancelled indicates the turn was stopped during the iteration
	Cancelled

	// Error indicates the model call failed
	Error
)

// String returns a human-readable description of the iteration result
func (r IterationResult) String() string {
	switch r {
	case Continue:
		return "continue"
	case Satisfied:
		return "satisfied"
	case Cancelled:
		return "cancelled"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Iteration executes one request/execute round.
type Iteration interface {
	Execute(ctx context.Context, state State) (*IterationOutcome, error)
}

// IterationFunc adapts a function to Iteration.
type IterationFunc func(ctx context.Context, state State) (*IterationOutcome, error)

func (f IterationFunc) Execute(ctx context.Context, state State) (*IterationOutcome, error) {
	return f(ctx, state)
}

// IterationOutcome contains the results of a single iteration
type IterationOutcome struct {
	Result IterationResult

	// ToolCalls is the number of tool calls executed in the iteration
	ToolCalls int

	// Error contains the failure when Result is Error
	Error error
}

// Terminal is the state the loop ended in.
type Terminal int

const (
	TerminalSatisfied Terminal = iota
	TerminalExhausted
	TerminalCancelled
	TerminalFailed
)

func (t Terminal) String() string {
	switch t {
	case TerminalSatisfied:
		return "satisfied"
	case TerminalExhausted:
		return "exhausted"
	case TerminalCancelled:
		return "cancelled"
	case TerminalFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result represents the final outcome of the loop
type Result struct {
	Terminal Terminal

	// IterationsExecuted is the number of model requests made
	IterationsExecuted int

	// ToolCallsExecuted is the total number of tool calls run
	ToolCallsExecuted int

	// Error contains the failure when Terminal is TerminalFailed
	Error error
}

// HitIterationLimit is true if the loop stopped at the iteration bound.
func (r *Result) HitIterationLimit() bool {
	return r.Terminal == TerminalExhausted
}

// Strategy decides whether to run another iteration and how to summarize
// the run.
type Strategy interface {
	ShouldContinue(state State, outcome *IterationOutcome) bool
	GetResult(state State, lastOutcome *IterationOutcome, terminatedEarly bool) *Result
}

// Config contains configuration options for the loop
type Config struct {
	// MaxIterations bounds the number of request/execute rounds
	MaxIterations int
}

// DefaultConfig returns a Config with the default bound
func DefaultConfig() *Config {
	return &Config{MaxIterations: consts.DefaultMaxToolIterations}
}
