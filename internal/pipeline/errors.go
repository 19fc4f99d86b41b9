package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTaskTimeout marks a task failure caused by its per-task timeout.
// Dependents are skipped exactly as for any other task failure.
var ErrTaskTimeout = errors.New("task timed out")

// MissingDependencyError reports a task that names a dependency not present
// in the same graph. Detected during validation, before any task runs.
type MissingDependencyError struct {
	Task       string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.Task, e.Dependency)
}

// CycleError reports a dependency cycle. Path lists the tasks along the
// cycle, ending with the task that closes it.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// IsGraphError reports whether err is a graph construction error (missing
// dependency or cycle). These are fatal for the whole run.
func IsGraphError(err error) bool {
	var missing *MissingDependencyError
	var cycle *CycleError
	return errors.As(err, &missing) || errors.As(err, &cycle)
}

// StageError wraps a task body failure with the source and stage it belongs
// to, so run summaries can enumerate (source, stage, error) triples.
type StageError struct {
	Source string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Source, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
