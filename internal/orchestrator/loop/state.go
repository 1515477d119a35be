package loop

import "sync"

// DefaultState implements State with thread-safe counters.
type DefaultState struct {
	mu sync.RWMutex

	iteration     int
	maxIterations int
	toolCalls     int
}

// NewDefaultState creates a new DefaultState with the specified configuration
func NewDefaultState(config *Config) *DefaultState {
	if config == nil {
		config = DefaultConfig()
	}
	return &DefaultState{maxIterations: config.MaxIterations}
}

func (s *DefaultState) Iteration() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration
}

func (s *DefaultState) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}

func (s *DefaultState) MaxIterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxIterations
}

func (s *DefaultState) HasReachedLimit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration >= s.maxIterations
}

func (s *DefaultState) AddToolCalls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls += n
}

func (s *DefaultState) ToolCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toolCalls
}

// Reset zeroes the counters for a fresh run.
func (s *DefaultState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration = 0
	s.toolCalls = 0
}
