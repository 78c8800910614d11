package dagrunner

import "errors"

// Registration errors returned synchronously from Scheduler.Register and DAG.Add.
// They are sentinels so callers can compare with errors.Is.
var (
	// ErrAlreadyAdded is returned when a task name has already been registered.
	ErrAlreadyAdded = errors.New("dagrunner: task already added")
	// ErrUnknownDependency is returned when a task names a dependency that has not been registered.
	ErrUnknownDependency = errors.New("dagrunner: unknown dependency")
	// ErrWouldCreateCycle is returned when adding a task would introduce a cycle.
	// The DAG is left unchanged when this error is returned.
	ErrWouldCreateCycle = errors.New("dagrunner: would create a cycle")
	// ErrNotCallable is returned when Register is given a task with no run function.
	ErrNotCallable = errors.New("dagrunner: task is not callable")
)

// errInterrupted is wrapped per task name when Interrupt cancels a task
// that was still active at pool shutdown, then combined via multierr for
// a single log line (see handleInterrupt).
var errInterrupted = errors.New("dagrunner: cancelled by interrupt")

// Synthetic error_type values recorded in Result.ErrorType. These never
// surface as Go errors from Start; they are data in the summary.
const (
	errTypeCancelled = "CancelledError"
	errTypeSkipped   = "SkippedDependency"
)
