// Package dagrunner is a dependency-aware, in-process task scheduler.
//
// Tasks are registered against a DAG of must-run-after edges; Start runs
// them to completion on a bounded worker pool, respecting dependency
// order, recording a structured run Summary, and optionally sharing a
// RunState across stateful task bodies.
//
// Features:
//   - Dependency-ordered, bounded-concurrency execution (DAG-based)
//   - Transactional cycle detection on registration
//   - Skip-on-failed-dependency policy, opt-in via WithSkipDependents
//   - Cooperative cancellation via Interrupt
//   - Lifecycle callbacks (OnTaskStart, OnTaskRun, OnTaskDone,
//     OnSchedulerStart, OnSchedulerDone)
//   - Fluent builder pattern for task construction
//   - Structured logging via zap
//
// Example usage:
//
//	sched := dagrunner.NewScheduler(dagrunner.WithWorkers(4))
//	sched.Register(dagrunner.NewTask("load", dagrunner.Nullary(func() (interface{}, error) {
//	    return fetchData()
//	})))
//	sched.Register(dagrunner.NewTask("process", dagrunner.Nullary(func() (interface{}, error) {
//	    return process()
//	})).WithAfter("load"))
//
//	summary := sched.Start()
//	fmt.Println(summary.Text())
//
// See SPEC_FULL.md / DESIGN.md in the repository root for the full design
// rationale.
package dagrunner
