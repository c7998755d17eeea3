package taskgraph

// Task is a unit of work that produces a single value of type O.
// Execute receives the results of this task's dependencies, keyed by
// dependency name. Dependencies lists the task keys whose results must be
// resolved before Execute runs; their values are present in the results map.
type Task[O any] interface {
	Execute(results map[string]O) (O, error)
	Dependencies() []string
}

// Func adapts a plain function into a Task with no dependencies.
// The function always succeeds.
type Func[O any] func(results map[string]O) O

// Execute invokes the wrapped function.
func (f Func[O]) Execute(results map[string]O) (O, error) {
	return f(results), nil
}

// Dependencies returns nil; wrap the function in a FuncTask to declare deps.
func (f Func[O]) Dependencies() []string { return nil }

// FuncTask is a fallible function with an explicit dependency list.
type FuncTask[O any] struct {
	Fn   func(results map[string]O) (O, error)
	Deps []string
}

// NewFuncTask builds a FuncTask from a function and its dependency keys.
func NewFuncTask[O any](fn func(results map[string]O) (O, error), deps ...string) *FuncTask[O] {
	return &FuncTask[O]{Fn: fn, Deps: deps}
}

// Execute invokes the wrapped function with the dependency results.
func (t *FuncTask[O]) Execute(results map[string]O) (O, error) {
	return t.Fn(results)
}

// Dependencies returns the declared dependency keys.
func (t *FuncTask[O]) Dependencies() []string { return t.Deps }

// NullTask is a structural placeholder that must never run.
// It fills the task slot of pre-populated cache nodes.
type NullTask[O any] struct{}

// Execute always fails with ErrNullTask.
func (NullTask[O]) Execute(results map[string]O) (O, error) {
	var zero O
	return zero, ErrNullTask
}

// Dependencies returns nil.
func (NullTask[O]) Dependencies() []string { return nil }

// Fixed is a Task that returns a constant value.
type Fixed[O any] struct {
	Value O
}

// Execute returns the fixed value.
func (t Fixed[O]) Execute(results map[string]O) (O, error) {
	return t.Value, nil
}

// Dependencies returns nil.
func (t Fixed[O]) Dependencies() []string { return nil }
