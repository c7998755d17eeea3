package taskgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for matching with errors.Is. The structured error types
// below unwrap to these, so callers can match a kind without caring about
// the offending key or path.
var (
	// ErrMissingDependency is returned when resolution or culling references
	// a key with no node in the graph.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrNullTask is returned when a structural placeholder task is executed.
	ErrNullTask = errors.New("attempted to execute a null task")

	// ErrCyclicDependency is returned when inserting a task would close a
	// dependency cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrTaskExists is returned when inserting a task under a key that is
	// already present.
	ErrTaskExists = errors.New("task already exists")
)

// MissingDependencyError names the key that has no node in the graph.
type MissingDependencyError struct {
	Key string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("key %q is not a key in the graph", e.Key)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// CyclicDependencyError carries the dependency path from the inserted root
// to the repeated key.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency chain: %s", strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

// TaskExistsError names the key whose insertion was refused.
type TaskExistsError struct {
	Key string
}

func (e *TaskExistsError) Error() string {
	return fmt.Sprintf("a task with the key %q already exists", e.Key)
}

func (e *TaskExistsError) Unwrap() error { return ErrTaskExists }
