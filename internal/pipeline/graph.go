package pipeline

import (
	"fmt"
)

// TaskGraph owns the set of registered tasks for one run. Dependency names
// must resolve within the same graph, and the dependency relation must be
// acyclic; both are checked before any task executes.
type TaskGraph struct {
	tasks map[string]*Task
	order []string // insertion order, for deterministic traversal
}

func NewTaskGraph() *TaskGraph {
	return &TaskGraph{tasks: make(map[string]*Task)}
}

// Add registers a task. Names are unique within a graph.
func (g *TaskGraph) Add(t *Task) error {
	if g == nil || g.tasks == nil {
		return fmt.Errorf("task graph is not initialized (use NewTaskGraph)")
	}
	if t == nil {
		return fmt.Errorf("task must not be nil")
	}
	if t.name == "" {
		return fmt.Errorf("task name is required")
	}
	if _, exists := g.tasks[t.name]; exists {
		return fmt.Errorf("duplicate task name: %q", t.name)
	}
	g.tasks[t.name] = t
	g.order = append(g.order, t.name)
	return nil
}

// Task returns a registered task by name.
func (g *TaskGraph) Task(name string) (*Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

func (g *TaskGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.tasks)
}

// Names returns all task names in insertion order.
func (g *TaskGraph) Names() []string {
	return append([]string(nil), g.order...)
}

// Reset restores every task to Pending. Use only between independent runs.
func (g *TaskGraph) Reset() {
	for _, name := range g.order {
		g.tasks[name].Reset()
	}
}

// Validate confirms every dependency name resolves within the graph and that
// the dependency relation is acyclic. It fails fast with a descriptive error
// identifying the offending tasks, before any task body runs.
func (g *TaskGraph) Validate() error {
	if g == nil {
		return fmt.Errorf("task graph is nil")
	}

	for _, name := range g.order {
		for _, dep := range g.tasks[name].deps {
			if _, ok := g.tasks[dep]; !ok {
				return &MissingDependencyError{Task: name, Dependency: dep}
			}
		}
	}

	// Depth-first traversal tracking an in-progress marker set; meeting an
	// in-progress node again signals a cycle.
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(g.tasks))

	var cyclePath []string
	var visit func(name string, stack []string) bool
	visit = func(name string, stack []string) bool {
		state[name] = inProgress
		stack = append(stack, name)
		for _, dep := range g.tasks[name].deps {
			switch state[dep] {
			case inProgress:
				// Trim the stack to the start of the cycle and close it.
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				cyclePath = append(append([]string(nil), stack[start:]...), dep)
				return true
			case unvisited:
				if visit(dep, stack) {
					return true
				}
			}
		}
		state[name] = done
		return false
	}

	for _, name := range g.order {
		if state[name] == unvisited {
			if visit(name, nil) {
				return &CycleError{Path: cyclePath}
			}
		}
	}
	return nil
}

// execNode is a task resolved into direct structural links: dependency names
// are mapped to node indices exactly once at resolution time, so execution
// never repeats name lookups.
type execNode struct {
	task       *Task
	deps       []int
	dependents []int

	waiting   int  // unsettled dependencies
	queued    bool // handed to a worker
	completed bool // settled and processed by the dispatcher
	executed  bool // body invoked by this execution
	excluded  bool // skipped due to cancellation; left out of results
}

// resolve computes the closure of the requested targets and their transitive
// dependencies and links it by index. The graph must already be validated.
func (g *TaskGraph) resolve(targets []string) ([]*execNode, error) {
	if len(targets) == 0 {
		targets = g.order
	}

	index := make(map[string]int)
	var nodes []*execNode

	var add func(name string) (int, error)
	add = func(name string) (int, error) {
		if i, ok := index[name]; ok {
			return i, nil
		}
		t, ok := g.tasks[name]
		if !ok {
			return 0, fmt.Errorf("unknown target task %q", name)
		}
		i := len(nodes)
		index[name] = i
		n := &execNode{task: t}
		nodes = append(nodes, n)
		for _, dep := range t.deps {
			di, err := add(dep)
			if err != nil {
				return 0, err
			}
			n.deps = append(n.deps, di)
		}
		return i, nil
	}

	for _, target := range targets {
		if _, err := add(target); err != nil {
			return nil, err
		}
	}

	for i, n := range nodes {
		for _, d := range n.deps {
			nodes[d].dependents = append(nodes[d].dependents, i)
		}
	}
	return nodes, nil
}
