package taskgraph

import (
	"errors"

	"github.com/gammazero/toposort"
)

// Validate verifies that every declared dependency has a node and that the
// whole graph is acyclic, and returns a topological order of the keys:
// every key appears after all of its dependencies.
//
// AddTask already rejects cycles among existing nodes, but a graph can
// still hold dangling dependencies; Validate is the whole-graph check to
// run before handing the graph to the Runner.
func (g *Graph[O]) Validate() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, node := range g.nodes {
		for _, dep := range node.Dependencies() {
			if _, exists := g.nodes[dep]; !exists {
				return nil, &MissingDependencyError{Key: dep}
			}
		}
	}

	var edges []toposort.Edge
	for key, node := range g.nodes {
		deps := node.Dependencies()
		if len(deps) == 0 {
			// Edge from nil keeps isolated tasks in the sort output.
			edges = append(edges, toposort.Edge{nil, key})
			continue
		}
		for _, dep := range deps {
			// Edge (dep, key): dep must come before key.
			edges = append(edges, toposort.Edge{dep, key})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, &CyclicDependencyError{Path: g.anyCyclePath()}
	}

	order := make([]string, 0, len(g.nodes))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// Order is an alias for Validate.
func (g *Graph[O]) Order() ([]string, error) {
	return g.Validate()
}

// anyCyclePath recovers a concrete cycle path for error reporting after
// toposort has already proven one exists. Caller holds at least a read
// lock.
func (g *Graph[O]) anyCyclePath() []string {
	for key := range g.nodes {
		var cyclic *CyclicDependencyError
		if err := g.checkCycles(key); errors.As(err, &cyclic) {
			return cyclic.Path
		}
	}
	return nil
}
