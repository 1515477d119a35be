package loop

import "context"

// OrchestratorLoop runs iterations under a strategy until it stops.
type OrchestratorLoop struct {
	config    *Config
	state     *DefaultState
	strategy  Strategy
	iteration Iteration
}

// NewOrchestratorLoop creates a loop. A nil strategy selects DefaultStrategy.
func NewOrchestratorLoop(config *Config, strategy Strategy, iteration Iteration) *OrchestratorLoop {
	if config == nil {
		config = DefaultConfig()
	}
	if strategy == nil {
		strategy = NewDefaultStrategy()
	}
	return &OrchestratorLoop{
		config:    config,
		state:     NewDefaultState(config),
		strategy:  strategy,
		iteration: iteration,
	}
}

// Run executes iterations until the strategy stops, the bound is reached or
// ctx is cancelled. The returned error is the failure of the last
// iteration, also available as Result.Error.
func (l *OrchestratorLoop) Run(ctx context.Context) (*Result, error) {
	l.state.Reset()

	var lastOutcome *IterationOutcome
	terminatedEarly := false

	for {
		if ctx.Err() != nil {
			terminatedEarly = true
			break
		}
		if l.state.HasReachedLimit() {
			break
		}

		l.state.Increment()
		outcome, err := l.iteration.Execute(ctx, l.state)
		if err != nil {
			outcome = &IterationOutcome{Result: Error, Error: err}
		}
		if outcome == nil {
			outcome = &IterationOutcome{Result: Satisfied}
		}
		l.state.AddToolCalls(outcome.ToolCalls)
		lastOutcome = outcome

		if !l.strategy.ShouldContinue(l.state, outcome) {
			break
		}
	}

	result := l.strategy.GetResult(l.state, lastOutcome, terminatedEarly)
	return result, result.Error
}

// GetState returns the current loop state (for inspection/testing)
func (l *OrchestratorLoop) GetState() State {
	return l.state
}
