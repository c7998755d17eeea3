// Package resilient provides Task decorators that add retry and circuit
// breaker behavior to a task's computation without touching its dependency
// declaration.
package resilient

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/aristath/taskgraph"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	InitialInterval     time.Duration // Initial retry interval (default 100ms)
	MaxInterval         time.Duration // Maximum retry interval (default 10s)
	MaxElapsedTime      time.Duration // Maximum total retry time (default 2min)
	Multiplier          float64       // Backoff multiplier (default 2.0)
	RandomizationFactor float64       // Jitter factor (default 0.5)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// retryTask wraps a task with exponential backoff on Execute.
type retryTask[O any] struct {
	task taskgraph.Task[O]
	cfg  RetryConfig
}

// Retry wraps task so that a failed Execute is retried with exponential
// backoff until it succeeds or the policy gives up. Structural graph errors
// are permanent: a NullTask or a missing key will not become valid by
// waiting.
func Retry[O any](task taskgraph.Task[O], cfg RetryConfig) taskgraph.Task[O] {
	return &retryTask[O]{task: task, cfg: cfg}
}

func (t *retryTask[O]) Execute(results map[string]O) (O, error) {
	var value O

	operation := func() error {
		v, err := t.task.Execute(results)
		if err != nil {
			if isStructural(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		value = v
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.cfg.InitialInterval
	policy.MaxInterval = t.cfg.MaxInterval
	policy.MaxElapsedTime = t.cfg.MaxElapsedTime
	policy.Multiplier = t.cfg.Multiplier
	policy.RandomizationFactor = t.cfg.RandomizationFactor

	if err := backoff.Retry(operation, policy); err != nil {
		var zero O
		return zero, err
	}
	return value, nil
}

func (t *retryTask[O]) Dependencies() []string {
	return t.task.Dependencies()
}

// isStructural reports whether err belongs to the graph's closed error
// taxonomy, none of which is transient.
func isStructural(err error) bool {
	return errors.Is(err, taskgraph.ErrNullTask) ||
		errors.Is(err, taskgraph.ErrMissingDependency) ||
		errors.Is(err, taskgraph.ErrCyclicDependency) ||
		errors.Is(err, taskgraph.ErrTaskExists)
}

// breakerTask wraps a task behind a circuit breaker.
type breakerTask[O any] struct {
	task taskgraph.Task[O]
	cb   *gobreaker.CircuitBreaker
}

// Breaker wraps task so that Execute runs through the given circuit
// breaker. While the circuit is open, Execute fails fast with
// gobreaker.ErrOpenState; the node stays uncomputed and can be retried
// once the breaker half-opens.
func Breaker[O any](task taskgraph.Task[O], cb *gobreaker.CircuitBreaker) taskgraph.Task[O] {
	return &breakerTask[O]{task: task, cb: cb}
}

func (t *breakerTask[O]) Execute(results map[string]O) (O, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		return t.task.Execute(results)
	})
	if err != nil {
		var zero O
		return zero, err
	}
	return result.(O), nil
}

func (t *breakerTask[O]) Dependencies() []string {
	return t.task.Dependencies()
}

// NewBreaker returns a circuit breaker suitable for guarding a flaky task:
// trips after 5 consecutive failures, stays open for 30s, then allows 3
// test executions in half-open state. Structural graph errors do not count
// as failures; they indicate a miswired graph, not an unhealthy
// computation.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return isStructural(err)
		},
	})
}
