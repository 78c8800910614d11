package dagrunner

import (
	"fmt"

	"go.uber.org/zap"
)

// TaskStartFunc is invoked when a task is about to be submitted.
type TaskStartFunc func(name string)

// TaskRunFunc is invoked once a task begins executing on a worker.
type TaskRunFunc func(name string, workerID int)

// TaskDoneFunc is invoked once a task has finished, successfully or not.
type TaskDoneFunc func(name string, ok bool)

// SchedulerStartFunc is invoked once when Start begins.
type SchedulerStartFunc func(meta SchedulerStartMeta)

// SchedulerDoneFunc is invoked once when Start returns, with the final summary.
type SchedulerDoneFunc func(summary Summary)

// SchedulerStartMeta is the payload delivered to a SchedulerStartFunc.
type SchedulerStartMeta struct {
	TotalTasks int
	Workers    int
	StartedAt  int64 // unix seconds
}

// callbacks holds the single registered hook per lifecycle event. Last
// writer wins: a second On* call silently replaces the previous hook.
type callbacks struct {
	logger *zap.Logger

	onTaskStart      TaskStartFunc
	onTaskRun        TaskRunFunc
	onTaskDone       TaskDoneFunc
	onSchedulerStart SchedulerStartFunc
	onSchedulerDone  SchedulerDoneFunc
}

// invokeTaskStart calls onTaskStart if set, catching and logging any panic
// so a misbehaving callback never aborts the scheduler thread.
func (c *callbacks) invokeTaskStart(name string) {
	if c.onTaskStart == nil {
		return
	}
	c.guard("on_task_start", func() { c.onTaskStart(name) })
}

func (c *callbacks) invokeTaskRun(name string, workerID int) {
	if c.onTaskRun == nil {
		return
	}
	c.guard("on_task_run", func() { c.onTaskRun(name, workerID) })
}

func (c *callbacks) invokeTaskDone(name string, ok bool) {
	if c.onTaskDone == nil {
		return
	}
	c.guard("on_task_done", func() { c.onTaskDone(name, ok) })
}

func (c *callbacks) invokeSchedulerStart(meta SchedulerStartMeta) {
	if c.onSchedulerStart == nil {
		return
	}
	c.guard("on_scheduler_start", func() { c.onSchedulerStart(meta) })
}

func (c *callbacks) invokeSchedulerDone(summary Summary) {
	if c.onSchedulerDone == nil {
		return
	}
	c.guard("on_scheduler_done", func() { c.onSchedulerDone(summary) })
}

// guard runs fn, recovering any panic into a logged, swallowed error. A
// panicking callback never aborts the scheduler goroutine.
func (c *callbacks) guard(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("callback panicked", zap.String("hook", hook), zap.Error(panicToError(r)))
		}
	}()
	fn()
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errPanic{v: r}
}

type errPanic struct{ v interface{} }

func (e errPanic) Error() string {
	return fmt.Sprintf("panic: %v", e.v)
}
