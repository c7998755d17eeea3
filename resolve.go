package taskgraph

// Get resolves the named task, depth-first: every declared dependency is
// resolved before the task itself executes, and each dependency's value is
// written into results under its key before the dependent's Execute runs.
// Results already present in the map are not resolved again, so a caller
// may pre-seed values. Memoized nodes are not re-invoked. Fails with
// MissingDependencyError if key or any transitively required key has no
// node.
func (g *Graph[O]) Get(key string, results map[string]O) (O, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolve(key, results)
}

// Resolve is Get with a fresh results snapshot.
func (g *Graph[O]) Resolve(key string) (O, error) {
	return g.Get(key, make(map[string]O))
}

// resolve is the recursive worker behind Get. Caller holds the write lock.
func (g *Graph[O]) resolve(key string, results map[string]O) (O, error) {
	node, ok := g.node(key)
	if !ok {
		var zero O
		return zero, &MissingDependencyError{Key: key}
	}

	for _, dep := range node.Dependencies() {
		if _, done := results[dep]; done {
			continue
		}
		if _, err := g.resolve(dep, results); err != nil {
			var zero O
			return zero, err
		}
	}

	v, err := node.Get(results)
	if err != nil {
		var zero O
		return zero, err
	}
	results[key] = v
	return v, nil
}
