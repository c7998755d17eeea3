package taskgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/taskgraph/events"
)

// DefaultConcurrencyLimit bounds a Runner's wave size when no limit is set.
const DefaultConcurrencyLimit = 4

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	limit  int
	bus    *events.Bus
	logger *slog.Logger
}

// WithLimit sets the maximum number of tasks computed concurrently.
func WithLimit(n int) RunnerOption {
	return func(o *runnerOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithBus attaches an event bus; the Runner publishes task and run
// lifecycle events to it.
func WithBus(bus *events.Bus) RunnerOption {
	return func(o *runnerOptions) { o.bus = bus }
}

// WithLogger attaches a structured logger. Without one the Runner is
// silent.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) { o.logger = logger }
}

// Runner resolves graph targets concurrently: independent subtrees run in
// parallel waves with bounded concurrency. Memoization semantics are
// unchanged from synchronous resolution, each node computes at most once;
// the per-node lock in Cache keeps that true across goroutines.
type Runner[O any] struct {
	graph  *Graph[O]
	limit  int
	bus    *events.Bus
	logger *slog.Logger
}

// NewRunner creates a Runner over the given graph.
func NewRunner[O any](graph *Graph[O], opts ...RunnerOption) *Runner[O] {
	o := runnerOptions{
		limit:  DefaultConcurrencyLimit,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner[O]{
		graph:  graph,
		limit:  o.limit,
		bus:    o.bus,
		logger: o.logger,
	}
}

// Run resolves every target, computing the transitive closure of their
// dependencies in dependency order, and returns the results of all keys it
// resolved. A missing target or transitive dependency fails with
// MissingDependencyError before anything runs. The first task failure
// aborts the run; already stored results are kept by their nodes, failed
// nodes stay uncomputed and retryable.
func (r *Runner[O]) Run(ctx context.Context, targets ...string) (map[string]O, error) {
	required, err := r.graph.reachable(targets...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.publishRunStarted(targets)
	r.logger.Debug("run started", "targets", targets, "required", len(required))

	var (
		mu      sync.Mutex
		results = make(map[string]O, len(required))
		runErr  error
	)
	for {
		if err := ctx.Err(); err != nil {
			r.publishRunCompleted(targets, results, err)
			return results, err
		}

		// A task is eligible when it has no result yet and every declared
		// dependency does.
		var eligible []string
		mu.Lock()
		for key := range required {
			if _, ok := results[key]; ok {
				continue
			}
			node, ok := r.graph.lookup(key)
			if !ok {
				continue
			}
			ready := true
			for _, dep := range node.Dependencies() {
				if _, ok := results[dep]; !ok {
					ready = false
					break
				}
			}
			if ready {
				eligible = append(eligible, key)
			}
		}
		finished := len(results) == len(required)
		mu.Unlock()

		if finished {
			break
		}
		if len(eligible) == 0 {
			// Unreachable when insertion-time cycle checks held; guard
			// against a wedged loop anyway.
			runErr = fmt.Errorf("no runnable tasks among %d unresolved keys", len(required)-len(results))
			break
		}
		sort.Strings(eligible)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.limit)

		for _, key := range eligible {
			key := key
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				v, err := r.computeOne(key, &mu, results)
				if err != nil {
					return err
				}
				mu.Lock()
				results[key] = v
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			runErr = err
			break
		}
	}

	r.publishRunCompleted(targets, results, runErr)
	r.logger.Debug("run finished", "resolved", len(results), "elapsed", time.Since(start), "err", runErr)

	if runErr != nil {
		return results, runErr
	}
	return results, nil
}

// computeOne produces the value for one eligible key, publishing lifecycle
// events around the computation.
func (r *Runner[O]) computeOne(key string, mu *sync.Mutex, results map[string]O) (O, error) {
	node, ok := r.graph.lookup(key)
	if !ok {
		var zero O
		return zero, &MissingDependencyError{Key: key}
	}

	if v, ok := node.Value(); ok {
		r.publish(events.TopicTask, events.TaskCachedEvent{Key: key, Timestamp: time.Now()})
		r.logger.Debug("task cached", "key", key)
		return v, nil
	}

	// Snapshot of this task's direct dependency results only.
	snapshot := make(map[string]O, len(node.Dependencies()))
	mu.Lock()
	for _, dep := range node.Dependencies() {
		snapshot[dep] = results[dep]
	}
	mu.Unlock()

	r.publish(events.TopicTask, events.TaskStartedEvent{Key: key, Timestamp: time.Now()})
	r.logger.Debug("task started", "key", key)

	start := time.Now()
	v, err := node.Get(snapshot)
	elapsed := time.Since(start)

	if err != nil {
		r.publish(events.TopicTask, events.TaskFailedEvent{Key: key, Err: err, Duration: elapsed, Timestamp: time.Now()})
		r.logger.Error("task failed", "key", key, "elapsed", elapsed, "err", err)
		var zero O
		return zero, fmt.Errorf("task %q: %w", key, err)
	}

	r.publish(events.TopicTask, events.TaskCompletedEvent{Key: key, Duration: elapsed, Timestamp: time.Now()})
	r.logger.Debug("task completed", "key", key, "elapsed", elapsed)
	return v, nil
}

func (r *Runner[O]) publish(topic string, ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(topic, ev)
	}
}

func (r *Runner[O]) publishRunStarted(targets []string) {
	fp, err := r.graph.Fingerprint()
	if err != nil {
		r.logger.Warn("fingerprint failed", "err", err)
	}
	r.publish(events.TopicRun, events.RunStartedEvent{
		Targets:     append([]string(nil), targets...),
		Fingerprint: fp,
		Timestamp:   time.Now(),
	})
}

func (r *Runner[O]) publishRunCompleted(targets []string, results map[string]O, runErr error) {
	failed := 0
	if runErr != nil {
		failed = 1
	}
	r.publish(events.TopicRun, events.RunCompletedEvent{
		Targets:   append([]string(nil), targets...),
		Completed: len(results),
		Failed:    failed,
		Err:       runErr,
		Timestamp: time.Now(),
	})
}
