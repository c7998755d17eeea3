// Package taskgraph is a task execution and dependency management library,
// reminiscent of dask. Callers register named tasks, each declaring the
// keys of the tasks it depends on; resolving a key computes its transitive
// dependencies first, memoizing every result so no task runs twice. Cycles
// are rejected at insertion time.
//
// Resolution is synchronous by default (Graph.Get / Graph.Resolve); the
// Runner resolves independent subtrees concurrently with the same
// exactly-once guarantees.
package taskgraph
