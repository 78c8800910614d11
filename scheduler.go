package dagrunner

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const pollInterval = 100 * time.Millisecond

// SchedulerOption configures a Scheduler at construction time, following
// this module's fluent-builder idiom.
type SchedulerOption func(*Scheduler)

// WithWorkers sets the worker pool size. Default is min(8, cores).
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSkipDependents enables the skip-on-failed-dependency policy.
func WithSkipDependents(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.skipDependents = enabled }
}

// WithStoreResults enables recording each stateful task's return value
// into state.Results.
func WithStoreResults(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.storeResults = enabled }
}

// WithClearResultsOnStart clears state.Results at the start of every run.
func WithClearResultsOnStart(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.clearResultsOnStart = enabled }
}

// WithLogger installs a *zap.Logger. Default is zap.NewNop().
func WithLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithState adopts a caller-provided RunState instead of a freshly created one.
func WithState(state *RunState) SchedulerOption {
	return func(s *Scheduler) {
		if state != nil {
			s.state = state
		}
	}
}

func defaultWorkers() int {
	cores := runtime.NumCPU()
	if cores > 8 {
		return 8
	}
	if cores < 1 {
		return 1
	}
	return cores
}

// Scheduler owns the DAG, task table, worker pool, event queue, result
// maps, cancellation signal, and callback registrations for one
// dependency-ordered run.
type Scheduler struct {
	logger *zap.Logger

	workers             int
	skipDependents      bool
	storeResults        bool
	clearResultsOnStart bool

	graph   *DAG
	tasks   map[string]*Task
	state   *RunState
	events  *eventQueue
	cbs     *callbacks

	mu       sync.Mutex // protects futures/active bookkeeping below
	futures  map[int]string
	nextJob  int
	active   map[string]struct{}

	ran           []string
	results       map[string]Result
	failed        []string
	skipped       []string

	timer           Timer
	completed       chan struct{}
	completedClosed bool
	interrupted     bool

	pool *workerPool
}

// Result is the outcome recorded for one completed, failed, skipped, or
// cancelled task.
type Result struct {
	OK        bool
	ErrorType string
	Error     string
}

// NewScheduler constructs a Scheduler ready for Register calls.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger:  zap.NewNop(),
		workers: defaultWorkers(),
		graph:   NewDAG(),
		tasks:   make(map[string]*Task),
		state:   NewRunState(),
		events:  newEventQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	s.cbs = &callbacks{logger: s.logger}
	return s
}

// Register inserts a task into the DAG and task table. It fails if fn is
// not callable or the DAG rejects the insertion (duplicate name, unknown
// dependency, or a cycle). Registering the same name twice always fails;
// idempotence is not claimed.
func (s *Scheduler) Register(task *Task) error {
	if task == nil || !task.Fn.isCallable() {
		return ErrNotCallable
	}
	if task.Name == "" {
		task.Name = "task-" + uuid.New().String()
	}
	if err := s.graph.Add(task.Name, task.After); err != nil {
		return err
	}
	s.tasks[task.Name] = task
	return nil
}

// OnTaskStart installs the on_task_start callback. Last writer wins.
func (s *Scheduler) OnTaskStart(fn TaskStartFunc) { s.cbs.onTaskStart = fn }

// OnTaskRun installs the on_task_run callback. Last writer wins.
func (s *Scheduler) OnTaskRun(fn TaskRunFunc) { s.cbs.onTaskRun = fn }

// OnTaskDone installs the on_task_done callback. Last writer wins.
func (s *Scheduler) OnTaskDone(fn TaskDoneFunc) { s.cbs.onTaskDone = fn }

// OnSchedulerStart installs the on_scheduler_start callback. Last writer wins.
func (s *Scheduler) OnSchedulerStart(fn SchedulerStartFunc) { s.cbs.onSchedulerStart = fn }

// OnSchedulerDone installs the on_scheduler_done callback. Last writer wins.
func (s *Scheduler) OnSchedulerDone(fn SchedulerDoneFunc) { s.cbs.onSchedulerDone = fn }

// State returns the live run state mapping handed to stateful tasks.
func (s *Scheduler) State() *RunState { return s.state }

// Graph returns the scheduler's DAG, primarily for an external CLI
// collaborator to print a summary.
func (s *Scheduler) Graph() *DAG { return s.graph }

// Interrupt requests cancellation: no new tasks are submitted after this
// call, and already-running tasks run to completion. Safe to call from
// any goroutine, including a signal handler.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	s.interrupted = true
	s.mu.Unlock()
}

func (s *Scheduler) isInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// markCompleted closes the completed signal exactly once per run. Several
// call sites (handleDone, finish, handleInterrupt) can each observe the
// "nothing left to do" condition; only the first close must take effect.
func (s *Scheduler) markCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completedClosed {
		return
	}
	s.completedClosed = true
	close(s.completed)
}

// prepStart resets per-run state before a fresh Start call.
func (s *Scheduler) prepStart() {
	s.ran = nil
	s.results = make(map[string]Result)
	s.failed = nil
	s.skipped = nil
	s.active = make(map[string]struct{})
	s.futures = make(map[int]string)
	s.nextJob = 0
	s.completed = make(chan struct{})
	s.completedClosed = false
	s.interrupted = false
	s.events.reset()
	if s.clearResultsOnStart {
		s.state.clearResults()
	}
}

// Start runs the DAG to completion, or until Interrupt is called, and
// returns the run summary. It also delivers the same summary to the
// on_scheduler_done callback.
func (s *Scheduler) Start() Summary {
	s.prepStart()

	s.timer.Start()
	s.cbs.invokeSchedulerStart(SchedulerStartMeta{
		TotalTasks: len(s.tasks),
		Workers:    s.workers,
		StartedAt:  s.timer.StartedAt().Unix(),
	})
	s.logger.Info("starting worker pool", zap.Int("workers", s.workers), zap.Int("total_tasks", len(s.tasks)))

	s.pool = newWorkerPool(s.workers)

	for _, name := range s.graph.GetCandidates(s.active, s.workers, true) {
		s.submit(name)
	}

	if len(s.tasks) == 0 {
		s.finish()
	} else {
		s.loop()
	}

	s.pool.stop()
	s.timer.Stop()
	s.logger.Info("all work completed", zap.Duration("duration", s.timer.Duration()))

	summary := s.buildSummary()
	s.cbs.invokeSchedulerDone(summary)
	return summary
}

// loop is the scheduler thread's main control loop: it waits on a short
// poll for completion, draining events between waits.
func (s *Scheduler) loop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.completed:
			s.drainEvents()
			return
		case <-ticker.C:
			s.drainEvents()
			if s.isInterrupted() {
				s.handleInterrupt()
				return
			}
		}
	}
}

// drainEvents processes every event currently queued, in arrival order,
// looping until the queue is empty. Processing an event can itself push
// new ones (a skip-dependents done event from submit, a fresh start event
// from a refill) and those must be handled in the same pass rather than
// waiting for the next poll tick.
func (s *Scheduler) drainEvents() {
	for {
		batch := s.events.drain()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			switch ev.kind {
			case eventStart:
				s.cbs.invokeTaskStart(ev.name)
			case eventRun:
				s.cbs.invokeTaskRun(ev.name, ev.workerID)
			case eventDone:
				s.handleDone(ev)
			}
		}
	}
}

// handleDone performs the bookkeeping a done event requires: discard from
// active, remove from the DAG, append to ran, record the result, append
// to failed if !ok and not a skip (skips are listed in skipped only),
// store a stateful task's return value, invoke
// on_task_done, refill the pool, and signal completion if the DAG and
// active set are both empty.
func (s *Scheduler) handleDone(ev schedulerEvent) {
	s.mu.Lock()
	delete(s.active, ev.name)
	s.mu.Unlock()

	s.graph.Remove(ev.name)
	s.ran = append(s.ran, ev.name)
	s.results[ev.name] = Result{OK: ev.ok, ErrorType: ev.errorType, Error: ev.errMsg}
	if !ev.ok {
		if ev.errorType != errTypeSkipped {
			s.failed = append(s.failed, ev.name)
		}
	} else if s.storeResults {
		if task, ok := s.tasks[ev.name]; ok && task.Fn.passState {
			s.state.recordResult(ev.name, ev.value)
		}
	}

	s.cbs.invokeTaskDone(ev.name, ev.ok)

	s.refill()

	s.mu.Lock()
	empty := s.graph.IsEmpty() && len(s.active) == 0
	s.mu.Unlock()
	if empty {
		s.markCompleted()
	}
}

// refill requests up to (workers - active) new candidates and submits
// them, catching the "dependency burst" where one completion unblocks
// several successors at once.
func (s *Scheduler) refill() {
	s.mu.Lock()
	free := s.workers - len(s.active)
	interrupted := s.interrupted
	s.mu.Unlock()
	if free <= 0 || interrupted {
		return
	}
	for _, name := range s.graph.GetCandidates(s.active, free, true) {
		s.submit(name)
	}
}

// submit either skips name (under skip_dependents, if an original parent
// failed) or hands it to the worker pool, pushing a start event and
// recording it active in the same step.
func (s *Scheduler) submit(name string) {
	if s.skipDependents && s.hasFailedParent(name) {
		s.skipped = append(s.skipped, name)
		s.mu.Lock()
		s.active[name] = struct{}{}
		s.mu.Unlock()
		s.events.push(schedulerEvent{kind: eventDone, name: name, ok: false, errorType: errTypeSkipped, errMsg: fmt.Sprintf("original dependency of %s failed", name)})
		return
	}

	task := s.tasks[name]
	s.events.push(schedulerEvent{kind: eventStart, name: name})
	s.mu.Lock()
	s.active[name] = struct{}{}
	s.nextJob++
	jobID := s.nextJob
	s.futures[jobID] = name
	s.mu.Unlock()

	s.pool.submit(func(workerID int) {
		s.runTask(jobID, name, task, workerID)
	})
}

func (s *Scheduler) hasFailedParent(name string) bool {
	for _, parent := range s.graph.OriginalParentsOf(name) {
		if res, ok := s.results[parent]; ok && !res.OK {
			return true
		}
	}
	return false
}

// runTask executes a single task body on a worker goroutine, recovering
// panics and always pushing a done event regardless of path. The futures
// entry is removed here, under the lock, no matter which path the task
// body takes.
func (s *Scheduler) runTask(jobID int, name string, task *Task, workerID int) {
	defer func() {
		s.mu.Lock()
		delete(s.futures, jobID)
		s.mu.Unlock()
	}()

	s.events.push(schedulerEvent{kind: eventRun, name: name, workerID: workerID})

	var (
		value     interface{}
		ok        = true
		errorType string
		errMsg    string
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				ok = false
				errorType = "panic"
				errMsg = fmt.Sprintf("%v", r)
				task.named(s.logger).Error("task panicked", zap.String("task", name), zap.Any("recovered", r))
			}
		}()
		var err error
		value, err = task.Fn.run(s.state)
		if err != nil {
			ok = false
			errorType = fmt.Sprintf("%T", err)
			errMsg = err.Error()
			task.named(s.logger).Error("task failed", zap.String("task", name), zap.Error(err))
		}
	}()

	s.events.push(schedulerEvent{
		kind: eventDone, name: name, ok: ok, errorType: errorType, errMsg: errMsg, value: value,
	})
}

// finish handles the empty-DAG boundary case: Start returns immediately.
func (s *Scheduler) finish() {
	s.markCompleted()
}

// handleInterrupt cancels the run: no further candidates are submitted
// (refill checks the interrupted flag), and the pool is stopped first so
// already-running tasks finish and push their real done events before
// anything is synthesized. Stopping the pool before synthesizing results
// is what makes first-write-wins the observed behavior: a task whose real
// result lands during shutdown is recorded normally and is no longer in
// active by the time the cancellation branch below runs.
func (s *Scheduler) handleInterrupt() {
	s.logger.Error("interrupt received; cancelling remaining tasks")

	s.pool.stop()
	s.drainEvents()

	s.mu.Lock()
	stillActive := make([]string, 0, len(s.active))
	for name := range s.active {
		stillActive = append(stillActive, name)
	}
	s.active = make(map[string]struct{})
	s.mu.Unlock()

	var cancelErr error
	for _, name := range stillActive {
		s.graph.Remove(name)
		s.ran = append(s.ran, name)
		s.results[name] = Result{OK: false, ErrorType: errTypeCancelled, Error: "cancelled"}
		s.failed = append(s.failed, name)
		cancelErr = multierr.Append(cancelErr, fmt.Errorf("%s: %w", name, errInterrupted))
	}
	if cancelErr != nil {
		s.logger.Error("tasks cancelled by interrupt", zap.Error(cancelErr))
	}

	s.markCompleted()
}

func (s *Scheduler) buildSummary() Summary {
	passed := make([]string, 0, len(s.results))
	failureCounts := make(map[string]int)
	failures := make(map[string]Failure, len(s.failed))
	for _, name := range s.failed {
		res := s.results[name]
		failures[name] = Failure{ErrorType: res.ErrorType, Error: res.Error}
		failureCounts[res.ErrorType]++
	}
	for name, res := range s.results {
		if res.OK {
			passed = append(passed, name)
		}
	}

	summary := Summary{
		Ran:           append([]string{}, s.ran...),
		Passed:        passed,
		Failed:        append([]string{}, s.failed...),
		Failures:      failures,
		FailureCounts: failureCounts,
		Skipped:       append([]string{}, s.skipped...),
		StartedAt:     s.timer.StartedAt().Unix(),
		FinishedAt:    s.timer.FinishedAt().Unix(),
		Duration:      s.timer.Duration().Seconds(),
	}
	return summary
}
