package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salesetl/internal/dataset"
)

// Status is the lifecycle state of a Task. Transitions only move forward:
// Pending -> Running -> {Succeeded, Failed}, or Pending -> Skipped.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

// Terminal reports whether the status is final for the current run.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Inputs carries the settled results of a task's declared dependencies,
// keyed by dependency name. For tolerant tasks, failed or skipped
// dependencies are simply absent.
type Inputs map[string]any

// Table reads a dependency result as a *dataset.Table.
func (in Inputs) Table(name string) (*dataset.Table, bool) {
	v, ok := in[name]
	if !ok {
		return nil, false
	}
	t, ok := v.(*dataset.Table)
	return t, ok
}

// TaskFunc is a task body. It receives the shared read-only run context and
// the results of the task's declared dependencies, and must not inspect other
// tasks directly.
type TaskFunc func(ctx context.Context, rc *RunContext, inputs Inputs) (any, error)

// TaskOption configures optional task behavior at construction time.
type TaskOption func(*Task)

// WithTimeout bounds the task body's execution. On expiry the task is marked
// Failed with ErrTaskTimeout; the body is not forcibly interrupted but its
// late result is discarded.
func WithTimeout(d time.Duration) TaskOption {
	return func(t *Task) { t.timeout = d }
}

// WithToleratedFailures makes dependencies ordering-only: the task still
// waits for all of them to settle, but failed or skipped dependencies do not
// skip it. Used by aggregation tasks that work on whatever subset succeeded.
func WithToleratedFailures() TaskOption {
	return func(t *Task) { t.tolerant = true }
}

// Task is a named unit of work with declared dependencies and memoized
// completion state. A Task runs at most once per scheduler execution; Reset
// makes it reusable across independent runs.
type Task struct {
	name     string
	deps     []string
	body     TaskFunc
	timeout  time.Duration
	tolerant bool

	mu       sync.Mutex
	status   Status
	result   any
	err      error
	started  time.Time
	finished time.Time
}

func NewTask(name string, deps []string, body TaskFunc, opts ...TaskOption) *Task {
	t := &Task{
		name:   name,
		deps:   append([]string(nil), deps...),
		body:   body,
		status: StatusPending,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) Name() string { return t.name }

// Dependencies returns the declared dependency names.
func (t *Task) Dependencies() []string {
	return append([]string(nil), t.deps...)
}

// Tolerant reports whether the task runs even when dependencies failed.
func (t *Task) Tolerant() bool { return t.tolerant }

func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the stored result once the task Succeeded.
func (t *Task) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the stored error for a Failed task, or the skip reason for a
// Skipped one.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Duration returns how long the body ran. Zero until the task settles.
func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() || t.finished.IsZero() {
		return 0
	}
	return t.finished.Sub(t.started)
}

// tryStart atomically transitions Pending -> Running. Exactly one caller
// wins; everyone else observes a non-Pending status.
func (t *Task) tryStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusRunning
	t.started = time.Now()
	return true
}

// finish settles a Running task. The first caller wins; a late body result
// arriving after a timeout already failed the task is discarded.
func (t *Task) finish(result any, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return false
	}
	t.finished = time.Now()
	if err != nil {
		t.status = StatusFailed
		t.err = err
		return true
	}
	t.status = StatusSucceeded
	t.result = result
	return true
}

// skip transitions Pending -> Skipped, recording why.
func (t *Task) skip(reason error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusSkipped
	t.err = reason
	return true
}

// Run executes the task body at most once, moving the task to Running and
// then to a terminal state before returning. If the task is no longer
// Pending, the stored result/error is returned unchanged.
func (t *Task) Run(ctx context.Context, rc *RunContext, inputs Inputs) (any, error) {
	if !t.tryStart() {
		return t.Result(), t.Err()
	}

	done := make(chan struct{})
	var result any
	var err error
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", t.name, r)
			}
		}()
		result, err = t.body(ctx, rc, inputs)
	}()

	if t.timeout > 0 {
		timer := time.NewTimer(t.timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			terr := fmt.Errorf("%w after %s", ErrTaskTimeout, t.timeout)
			t.finish(nil, terr)
			return nil, terr
		}
	} else {
		<-done
	}

	t.finish(result, err)
	return t.Result(), t.Err()
}

// Reset restores Pending and clears result/error so the same Task object can
// be reused across independent runs. Never call it mid-run.
func (t *Task) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusPending
	t.result = nil
	t.err = nil
	t.started = time.Time{}
	t.finished = time.Time{}
}
