package taskgraph

import (
	"sort"
	"sync"
)

// Graph is a directed acyclic graph of memoizing task nodes, keyed by name.
// Edges are implicit: an edge from A to B exists iff A's task declares B as
// a dependency. Dependencies may name keys that are not (yet) in the graph;
// they surface as MissingDependencyError only when resolution or culling
// touches them. Acyclicity is enforced at insertion time.
type Graph[O any] struct {
	mu    sync.RWMutex
	nodes map[string]*Cache[O]
}

// Pair couples a key with its task, for FromTasks.
type Pair[O any] struct {
	Key  string
	Task Task[O]
}

// New creates an empty graph.
func New[O any]() *Graph[O] {
	return &Graph[O]{
		nodes: make(map[string]*Cache[O]),
	}
}

// FromTasks builds a graph by inserting each pair in order. The first
// failed insertion aborts and returns its error.
func FromTasks[O any](pairs []Pair[O]) (*Graph[O], error) {
	g := New[O]()
	for _, p := range pairs {
		if err := g.AddTask(p.Key, p.Task); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddTask inserts a new memoizing node wrapping task under key. Returns
// TaskExistsError if the key is taken. The insertion is cycle-checked
// rooted at key; if it would close a cycle the node is removed again and
// CyclicDependencyError is returned, leaving the graph as it was before
// the call.
func (g *Graph[O]) AddTask(key string, task Task[O]) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[key]; exists {
		return &TaskExistsError{Key: key}
	}

	g.nodes[key] = NewCache(task)

	if err := g.checkCycles(key); err != nil {
		delete(g.nodes, key)
		return err
	}
	return nil
}

// AddResult inserts a node that already holds a result, so resolution never
// invokes a task for it. Returns TaskExistsError if the key is taken.
// A literal result has no dependencies, so no cycle check is needed.
func (g *Graph[O]) AddResult(key string, result O) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[key]; exists {
		return &TaskExistsError{Key: key}
	}

	g.nodes[key] = FromResult(result)
	return nil
}

// Cull removes every node not transitively required to resolve keys.
// Required keys are found by a depth-first walk of declared dependencies,
// visiting each key at most once. Any key encountered without a node,
// including entries of keys itself, fails with MissingDependencyError and
// leaves the graph unchanged. On success the receiver is returned with only
// the required nodes retained; discarded nodes lose their cached results.
func (g *Graph[O]) Cull(keys ...string) (*Graph[O], error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	required := make(map[string]struct{})

	var walk func(key string) error
	walk = func(key string) error {
		if _, ok := required[key]; ok {
			return nil
		}
		node, ok := g.nodes[key]
		if !ok {
			return &MissingDependencyError{Key: key}
		}
		required[key] = struct{}{}
		for _, dep := range node.Dependencies() {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, key := range keys {
		if err := walk(key); err != nil {
			return nil, err
		}
	}

	for key := range g.nodes {
		if _, ok := required[key]; !ok {
			delete(g.nodes, key)
		}
	}
	return g, nil
}

// Dependents returns the keys of every node whose declared dependencies
// include leaf, sorted. Direct dependents only, not transitive.
func (g *Graph[O]) Dependents(leaf string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for key, node := range g.nodes {
		for _, dep := range node.Dependencies() {
			if dep == leaf {
				dependents = append(dependents, key)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// KeysIn returns the graph's own keys that appear in the union of the given
// external tasks' declared dependencies, sorted.
func (g *Graph[O]) KeysIn(tasks ...Task[O]) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[string]struct{})
	for _, task := range tasks {
		for _, dep := range task.Dependencies() {
			wanted[dep] = struct{}{}
		}
	}

	var keys []string
	for key := range g.nodes {
		if _, ok := wanted[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// CheckCycles verifies that no dependency cycle is reachable from root.
// On failure the returned CyclicDependencyError carries the path from root
// to the repeated key.
func (g *Graph[O]) CheckCycles(root string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checkCycles(root)
}

// checkCycles walks declared dependencies depth-first from root with an
// explicit path stack. onPath detects a key revisited along the current
// chain; visited persists across sibling branches so shared subtrees are
// walked once. A dependency key with no node ends that branch: dangling
// dependencies are a resolution-time concern, not a cycle.
// Caller must hold at least a read lock.
func (g *Graph[O]) checkCycles(root string) error {
	visited := make(map[string]struct{})
	onPath := make(map[string]struct{})
	stack := make([]string, 0, len(g.nodes)/2)

	var visit func(key string) error
	visit = func(key string) error {
		if _, ok := onPath[key]; ok {
			path := make([]string, len(stack), len(stack)+1)
			copy(path, stack)
			return &CyclicDependencyError{Path: append(path, key)}
		}
		if _, ok := visited[key]; ok {
			return nil
		}

		node, ok := g.nodes[key]
		if !ok {
			return nil
		}

		visited[key] = struct{}{}
		onPath[key] = struct{}{}
		stack = append(stack, key)

		for _, dep := range node.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}

		delete(onPath, key)
		stack = stack[:len(stack)-1]
		return nil
	}

	return visit(root)
}

// Keys returns all node keys, sorted.
func (g *Graph[O]) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of nodes.
func (g *Graph[O]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Contains reports whether key has a node in the graph.
func (g *Graph[O]) Contains(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[key]
	return ok
}

// node returns the cache for key under the caller's lock discipline.
func (g *Graph[O]) node(key string) (*Cache[O], bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// lookup is node with its own read lock, for callers outside a resolution.
func (g *Graph[O]) lookup(key string) (*Cache[O], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[key]
	return n, ok
}

// reachable returns the set of keys transitively required to resolve keys,
// failing with MissingDependencyError on any key without a node.
func (g *Graph[O]) reachable(keys ...string) (map[string]struct{}, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	required := make(map[string]struct{})

	var walk func(key string) error
	walk = func(key string) error {
		if _, ok := required[key]; ok {
			return nil
		}
		node, ok := g.nodes[key]
		if !ok {
			return &MissingDependencyError{Key: key}
		}
		required[key] = struct{}{}
		for _, dep := range node.Dependencies() {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, key := range keys {
		if err := walk(key); err != nil {
			return nil, err
		}
	}
	return required, nil
}
