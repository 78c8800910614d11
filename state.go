package dagrunner

import "sync"

// RunState is the mapping-shaped container handed by reference to
// stateful tasks. It carries its own mutex, exposed as StateLock(); the
// core takes that lock only to record or clear Results, never around a
// task body — stateful tasks that mutate Values or Results must hold
// StateLock() for the duration of the mutation.
type RunState struct {
	mu sync.Mutex

	// Values is the caller-provided or scheduler-owned mapping tasks read
	// and write.
	Values map[string]interface{}
	// Results holds task return values, keyed by task name, populated
	// after each successful stateful task when StoreResults is enabled.
	Results map[string]interface{}
}

// NewRunState returns a RunState with empty Values and Results maps.
func NewRunState() *RunState {
	return &RunState{
		Values:  make(map[string]interface{}),
		Results: make(map[string]interface{}),
	}
}

// StateLock returns the mutex tasks must hold while mutating Values or Results.
func (s *RunState) StateLock() *sync.Mutex {
	return &s.mu
}

// clearResults empties Results under the state lock.
func (s *RunState) clearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = make(map[string]interface{})
}

// recordResult stores a task's return value under the state lock.
func (s *RunState) recordResult(name string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results[name] = value
}
