package dagrunner

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NullaryFn is a task body that takes no arguments.
type NullaryFn func() (interface{}, error)

// StatefulFn is a task body that receives the scheduler's shared run
// state. Implementations that mutate state must hold state.StateLock()
// for the duration of the mutation; the core takes that lock only to
// record or clear Results, never around a task body.
type StatefulFn func(state *RunState) (interface{}, error)

// TaskFn is a tagged variant chosen once at registration time: a typed
// sum type instead of runtime reflection on a callable's signature.
// Exactly one of the two fields is set; which one is recorded in
// passState so the worker body branches on a single bool instead of
// inspecting the callable.
type TaskFn struct {
	nullary   NullaryFn
	stateful  StatefulFn
	passState bool
}

// Nullary wraps fn as a task body that receives no state.
func Nullary(fn NullaryFn) TaskFn {
	return TaskFn{nullary: fn}
}

// Stateful wraps fn as a task body that receives the shared run state.
func Stateful(fn StatefulFn) TaskFn {
	return TaskFn{stateful: fn, passState: true}
}

func (f TaskFn) isCallable() bool {
	return f.nullary != nil || f.stateful != nil
}

func (f TaskFn) run(state *RunState) (interface{}, error) {
	if f.passState {
		return f.stateful(state)
	}
	return f.nullary()
}

// Task is a named unit of work with declared must-run-after dependencies.
type Task struct {
	// Name uniquely identifies the task within a scheduler. If empty at
	// registration time, a UUID-based name is generated.
	Name string
	// Fn is the task body, built with Nullary or Stateful.
	Fn TaskFn
	// After lists the names this task must run after.
	After []string
	// Tag is free-form metadata, unused by the core; a collaborator may
	// filter registration by it.
	Tag string

	logger *zap.Logger
}

// NewTask creates a Task with the given name and body. If name is empty a
// UUID-based name is generated.
func NewTask(name string, fn TaskFn) *Task {
	if name == "" {
		name = "task-" + uuid.New().String()
	}
	return &Task{Name: name, Fn: fn}
}

// WithAfter appends names this task must run after.
func (t *Task) WithAfter(after ...string) *Task {
	t.After = append(t.After, after...)
	return t
}

// WithTag attaches free-form metadata to the task.
func (t *Task) WithTag(tag string) *Task {
	t.Tag = tag
	return t
}

func (t *Task) named(logger *zap.Logger) *zap.Logger {
	if t.logger == nil {
		t.logger = logger.Named(t.Name)
	}
	return t.logger
}
