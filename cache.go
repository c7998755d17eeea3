package taskgraph

import "sync"

// Cache wraps one task and memoizes its result: the first successful Get
// stores the value and the task is never invoked again for this node.
// A failed computation stores nothing, so the node stays eligible for retry.
//
// The mutex exists only for the concurrent Runner; synchronous callers pay a
// single uncontended lock per call.
type Cache[O any] struct {
	mu     sync.Mutex
	result *O
	task   Task[O]
}

// NewCache creates an uncomputed node wrapping the given task.
func NewCache[O any](task Task[O]) *Cache[O] {
	return &Cache[O]{task: task}
}

// FromResult creates a node that already holds a result. The task slot is
// filled with a NullTask, which is unreachable because the stored result
// always short-circuits Get and Consume.
func FromResult[O any](result O) *Cache[O] {
	return &Cache[O]{result: &result, task: NullTask[O]{}}
}

// FromFunc creates an uncomputed node from a plain function.
func FromFunc[O any](fn func(results map[string]O) O) *Cache[O] {
	return &Cache[O]{task: Func[O](fn)}
}

// Get returns the stored result, computing and storing it first if needed.
// On failure the node remains uncomputed.
func (c *Cache[O]) Get(results map[string]O) (O, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil {
		return *c.result, nil
	}

	v, err := c.task.Execute(results)
	if err != nil {
		var zero O
		return zero, err
	}
	c.result = &v
	return v, nil
}

// Consume returns the result by value without storing it: an already
// computed node yields its stored value, an uncomputed one runs the task
// once and discards nothing into the node.
func (c *Cache[O]) Consume(results map[string]O) (O, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil {
		return *c.result, nil
	}
	return c.task.Execute(results)
}

// Dependencies forwards to the owned task.
func (c *Cache[O]) Dependencies() []string {
	return c.task.Dependencies()
}

// Computed reports whether a result is stored.
func (c *Cache[O]) Computed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result != nil
}

// Value returns the stored result, if any, without invoking the task.
func (c *Cache[O]) Value() (O, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		var zero O
		return zero, false
	}
	return *c.result, true
}
