package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Outcome is the final state of one task after an execution.
type Outcome struct {
	Task     string
	Status   Status
	Result   any
	Err      error
	Duration time.Duration

	// Executed reports whether the task body was invoked by this execution,
	// as opposed to a memoized or skipped task.
	Executed bool
}

// Results maps task names to final outcomes for one Execute call.
type Results struct {
	Outcomes map[string]Outcome

	// ExecutionOrder lists the tasks whose bodies actually ran, in body
	// start order. Diagnostics only.
	ExecutionOrder []string
}

// Succeeded reports whether the named task succeeded in this execution.
func (r *Results) Succeeded(name string) bool {
	if r == nil {
		return false
	}
	o, ok := r.Outcomes[name]
	return ok && o.Status == StatusSucceeded
}

// Scheduler executes a TaskGraph with bounded concurrency. Tasks already
// settled from a prior resolution within the same Scheduler instance are not
// re-executed; their stored result or error is reused, so multiple target
// sets sharing upstream dependencies avoid duplicate work within one run.
type Scheduler struct {
	workers int

	// flight dedupes task bodies across concurrent Execute calls on the
	// same instance: settled-state check first, single flight second.
	flight singleflight.Group
}

// NewScheduler returns a scheduler running at most workers task bodies
// concurrently. workers == 1 gives deterministic sequential runs.
func NewScheduler(workers int) (*Scheduler, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be >= 1, got %d", workers)
	}
	return &Scheduler{workers: workers}, nil
}

// Execute validates the graph, resolves the closure of the requested targets
// (all tasks when none are given), and runs it to completion.
//
// Failure semantics: a task body's error never aborts the run; the task is
// marked Failed and its non-tolerant dependents Skipped. Execute itself only
// fails on graph construction problems or nil arguments. On context
// cancellation, running tasks are allowed to finish; not-yet-started tasks
// are marked Skipped and excluded from the returned results, and the context
// error is returned alongside the partial results.
func (s *Scheduler) Execute(ctx context.Context, g *TaskGraph, rc *RunContext, targets ...string) (*Results, error) {
	if s == nil {
		return nil, errors.New("scheduler is nil")
	}
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if g == nil {
		return nil, errors.New("task graph is nil")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	nodes, err := g.resolve(targets)
	if err != nil {
		return nil, err
	}

	readyCh := make(chan int, len(nodes))
	doneCh := make(chan int, len(nodes))

	var orderMu sync.Mutex
	var executionOrder []string

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range readyCh {
				s.runNode(ctx, nodes, idx, rc, &orderMu, &executionOrder)
				doneCh <- idx
			}
		}()
	}

	dispatch := func(i int) {
		nodes[i].queued = true
		readyCh <- i
	}

	// Seed. Every node starts waiting on all of its dependencies; tasks that
	// are already settled (memoized from a prior resolution) complete
	// immediately and unblock dependents through the normal path.
	settledQueue := make([]int, 0, len(nodes))
	for i, n := range nodes {
		n.waiting = len(n.deps)
		if n.task.Status().Terminal() {
			settledQueue = append(settledQueue, i)
		} else if n.waiting == 0 {
			dispatch(i)
		}
	}

	completed := 0
	canceled := false
	for completed < len(nodes) {
		var idx int
		switch {
		case len(settledQueue) > 0:
			idx = settledQueue[len(settledQueue)-1]
			settledQueue = settledQueue[:len(settledQueue)-1]
		case canceled:
			idx = <-doneCh
		default:
			select {
			case idx = <-doneCh:
			case <-ctx.Done():
				canceled = true
				// Skip everything that has not started. Tasks already queued
				// flow back through the workers' cancellation check; the rest
				// are settled here.
				for i, n := range nodes {
					if n.task.skip(fmt.Errorf("run canceled: %w", context.Cause(ctx))) {
						n.excluded = true
						if !n.queued {
							settledQueue = append(settledQueue, i)
						}
					}
				}
				continue
			}
		}

		n := nodes[idx]
		if n.completed {
			continue
		}
		n.completed = true
		completed++

		for _, di := range n.dependents {
			dep := nodes[di]
			dep.waiting--
			if dep.waiting > 0 || dep.completed {
				continue
			}
			if dep.task.Status().Terminal() {
				// Memoized from a prior resolution; settle without running.
				settledQueue = append(settledQueue, di)
				continue
			}
			// All dependencies settled: dispatch, or propagate the skip.
			if reason := blockedReason(nodes, dep); reason != nil && !dep.task.tolerant {
				if dep.task.skip(reason) {
					settledQueue = append(settledQueue, di)
					continue
				}
			}
			dispatch(di)
		}
	}

	close(readyCh)
	wg.Wait()

	res := &Results{Outcomes: make(map[string]Outcome, len(nodes)), ExecutionOrder: executionOrder}
	for _, n := range nodes {
		if n.excluded {
			continue
		}
		res.Outcomes[n.task.Name()] = Outcome{
			Task:     n.task.Name(),
			Status:   n.task.Status(),
			Result:   n.task.Result(),
			Err:      n.task.Err(),
			Duration: n.task.Duration(),
			Executed: n.executed,
		}
	}
	if canceled {
		return res, context.Cause(ctx)
	}
	return res, nil
}

// blockedReason returns why a task must be skipped: the first dependency that
// failed or was skipped. nil when all dependencies succeeded.
func blockedReason(nodes []*execNode, n *execNode) error {
	for _, d := range n.deps {
		dep := nodes[d].task
		switch dep.Status() {
		case StatusFailed:
			return fmt.Errorf("dependency %q failed: %w", dep.Name(), dep.Err())
		case StatusSkipped:
			return fmt.Errorf("dependency %q was skipped", dep.Name())
		}
	}
	return nil
}

// runNode runs one dispatched task. The settled-state check plus the single
// flight guarantee at-most-once execution even when concurrent Execute calls
// share upstream tasks.
func (s *Scheduler) runNode(ctx context.Context, nodes []*execNode, idx int, rc *RunContext, orderMu *sync.Mutex, order *[]string) {
	n := nodes[idx]
	t := n.task

	if t.Status().Terminal() {
		return
	}
	if ctx.Err() != nil {
		if t.skip(fmt.Errorf("run canceled: %w", context.Cause(ctx))) {
			n.excluded = true
		}
		return
	}

	// A task body observes only dependency results that are fully settled.
	inputs := make(Inputs, len(n.deps))
	for _, d := range n.deps {
		dep := nodes[d].task
		if dep.Status() == StatusSucceeded {
			inputs[dep.Name()] = dep.Result()
		}
	}

	_, _, _ = s.flight.Do(t.Name(), func() (any, error) {
		if t.Status().Terminal() {
			return t.Result(), t.Err()
		}
		n.executed = true
		orderMu.Lock()
		*order = append(*order, t.Name())
		orderMu.Unlock()
		return t.Run(ctx, rc, inputs)
	})
}
