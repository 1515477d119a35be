package loop

// DefaultStrategy continues while tools keep being requested and the
// iteration bound is not reached.
type DefaultStrategy struct{}

func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{}
}

func (s *DefaultStrategy) ShouldContinue(state State, outcome *IterationOutcome) bool {
	if outcome == nil || outcome.Result != Continue {
		return false
	}
	return !state.HasReachedLimit()
}

func (s *DefaultStrategy) GetResult(state State, lastOutcome *IterationOutcome, terminatedEarly bool) *Result {
	result := &Result{
		IterationsExecuted: state.Iteration(),
		ToolCallsExecuted:  state.ToolCalls(),
	}

	switch {
	case terminatedEarly:
		result.Terminal = TerminalCancelled
	case lastOutcome == nil:
		result.Terminal = TerminalSatisfied
	case lastOutcome.Result == Satisfied:
		result.Terminal = TerminalSatisfied
	case lastOutcome.Result == Cancelled:
		result.Terminal = TerminalCancelled
	case lastOutcome.Result == Error:
		result.Terminal = TerminalFailed
		result.Error = lastOutcome.Error
	default:
		result.Terminal = TerminalExhausted
	}
	return result
}
