package dagrunner

import "time"

// Timer captures a wall-clock start/finish pair and a duration derived
// from Go's monotonic clock reading: started/finished are for display,
// Duration is safe against wall-clock adjustments because time.Time
// carries a monotonic reading alongside the wall clock one.
type Timer struct {
	started  time.Time
	finished time.Time
}

// Start records the current time as the timer's start.
func (t *Timer) Start() {
	t.started = time.Now()
}

// Stop records the current time as the timer's finish.
func (t *Timer) Stop() {
	t.finished = time.Now()
}

// StartedAt returns the start time, zero if Start was never called.
func (t *Timer) StartedAt() time.Time {
	return t.started
}

// FinishedAt returns the finish time, zero if Stop was never called.
func (t *Timer) FinishedAt() time.Time {
	return t.finished
}

// Duration returns the elapsed time between Start and Stop, or zero if
// either endpoint hasn't been recorded yet.
func (t *Timer) Duration() time.Duration {
	if t.started.IsZero() || t.finished.IsZero() {
		return 0
	}
	return t.finished.Sub(t.started)
}
