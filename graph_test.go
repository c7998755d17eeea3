package taskgraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// depTask is a minimal task with a fixed value and dependency list.
func depTask(value int, deps ...string) Task[int] {
	return NewFuncTask(func(results map[string]int) (int, error) {
		return value, nil
	}, deps...)
}

// TestAddTaskUniqueness verifies duplicate keys are refused and the
// existing node is left untouched.
func TestAddTaskUniqueness(t *testing.T) {
	g := New[int]()

	if err := g.AddTask("x", depTask(1)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := g.AddTask("x", depTask(2))
	if !errors.Is(err, ErrTaskExists) {
		t.Fatalf("expected ErrTaskExists, got %v", err)
	}
	var exists *TaskExistsError
	if !errors.As(err, &exists) || exists.Key != "x" {
		t.Errorf("expected TaskExistsError for key x, got %v", err)
	}

	// The original node still resolves to its own value.
	v, err := g.Resolve("x")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if v != 1 {
		t.Errorf("existing node was replaced: expected 1, got %d", v)
	}
}

// TestCycleDetection covers cycle-closing and cycle-free insertion orders.
func TestCycleDetection(t *testing.T) {
	tests := []struct {
		name      string
		inserts   []Pair[int] // inserted in order
		wantErrAt string      // key whose insertion must fail; "" = all succeed
	}{
		{
			name: "chain closed into a cycle",
			inserts: []Pair[int]{
				{Key: "X", Task: depTask(0, "Y")},
				{Key: "Y", Task: depTask(0, "Z")},
				{Key: "Z", Task: depTask(0, "B")},
				{Key: "B", Task: depTask(0, "X")},
			},
			wantErrAt: "B",
		},
		{
			name: "diamond is not a cycle",
			inserts: []Pair[int]{
				{Key: "Z", Task: depTask(0)},
				{Key: "U", Task: depTask(0)},
				{Key: "X", Task: depTask(0, "Y")},
				{Key: "Y", Task: depTask(0, "Z", "U")},
				{Key: "A", Task: depTask(0, "U")},
				{Key: "B", Task: depTask(0, "Y", "X")},
			},
		},
		{
			name: "self-dependency",
			inserts: []Pair[int]{
				{Key: "A", Task: depTask(0, "A")},
			},
			wantErrAt: "A",
		},
		{
			name: "two-node cycle",
			inserts: []Pair[int]{
				{Key: "A", Task: depTask(0, "B")},
				{Key: "B", Task: depTask(0, "A")},
			},
			wantErrAt: "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[int]()
			for _, p := range tt.inserts {
				err := g.AddTask(p.Key, p.Task)
				if p.Key == tt.wantErrAt {
					if !errors.Is(err, ErrCyclicDependency) {
						t.Fatalf("inserting %q: expected ErrCyclicDependency, got %v", p.Key, err)
					}
					return
				}
				if err != nil {
					t.Fatalf("inserting %q: unexpected error: %v", p.Key, err)
				}
			}
			if tt.wantErrAt != "" {
				t.Fatalf("expected insertion of %q to fail", tt.wantErrAt)
			}
		})
	}
}

// TestCycleRollback verifies a refused insertion leaves the graph exactly
// as it was: the cyclic node is not left behind.
func TestCycleRollback(t *testing.T) {
	g := New[int]()
	mustAdd(t, g, "X", depTask(0, "Y"))
	mustAdd(t, g, "Y", depTask(0, "Z"))
	mustAdd(t, g, "Z", depTask(0, "B"))

	err := g.AddTask("B", depTask(0, "X"))
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	if g.Contains("B") {
		t.Error("cyclic node must be rolled back, but B is still present")
	}
	if diff := cmp.Diff([]string{"X", "Y", "Z"}, g.Keys()); diff != "" {
		t.Errorf("keys mismatch after rollback (-want +got):\n%s", diff)
	}

	// A corrected re-insertion succeeds.
	mustAdd(t, g, "B", depTask(0))
	if _, err := g.Resolve("X"); err != nil {
		t.Errorf("resolve after corrected insert failed: %v", err)
	}
}

// TestCyclePath verifies the error carries the offending path.
func TestCyclePath(t *testing.T) {
	g := New[int]()
	mustAdd(t, g, "X", depTask(0, "Y"))
	mustAdd(t, g, "Y", depTask(0, "Z"))
	mustAdd(t, g, "Z", depTask(0, "B"))

	err := g.AddTask("B", depTask(0, "X"))
	var cyclic *CyclicDependencyError
	if !errors.As(err, &cyclic) {
		t.Fatalf("expected CyclicDependencyError, got %v", err)
	}
	if diff := cmp.Diff([]string{"B", "X", "Y", "Z", "B"}, cyclic.Path); diff != "" {
		t.Errorf("cycle path mismatch (-want +got):\n%s", diff)
	}
}

// TestDanglingDependencyIsNotACycle verifies insertion succeeds when a
// dependency has no node yet; the gap surfaces only at resolution.
func TestDanglingDependencyIsNotACycle(t *testing.T) {
	g := New[int]()
	mustAdd(t, g, "X", depTask(0, "Y")) // Y does not exist

	_, err := g.Resolve("X")
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
	var missing *MissingDependencyError
	if !errors.As(err, &missing) || missing.Key != "Y" {
		t.Errorf("expected missing key Y, got %v", err)
	}

	// Supplying the node afterwards repairs resolution.
	mustAdd(t, g, "Y", depTask(3))
	if _, err := g.Resolve("X"); err != nil {
		t.Errorf("resolve after supplying Y failed: %v", err)
	}
}

// TestCull covers transitive-closure pruning plus error cases.
func TestCull(t *testing.T) {
	build := func() *Graph[int] {
		g := New[int]()
		mustAdd(t, g, "U", depTask(0))
		mustAdd(t, g, "Y", depTask(0, "U"))
		mustAdd(t, g, "X", depTask(0, "Y"))
		mustAdd(t, g, "A", depTask(0, "U"))
		mustAdd(t, g, "Z", depTask(0, "A"))
		return g
	}

	t.Run("retains transitive closure", func(t *testing.T) {
		g := build()
		culled, err := g.Cull("X", "U")
		if err != nil {
			t.Fatalf("cull failed: %v", err)
		}
		if diff := cmp.Diff([]string{"U", "X", "Y"}, culled.Keys()); diff != "" {
			t.Errorf("culled keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("leaves only requested leaves", func(t *testing.T) {
		g := build()
		culled, err := g.Cull("U")
		if err != nil {
			t.Fatalf("cull failed: %v", err)
		}
		if diff := cmp.Diff([]string{"U"}, culled.Keys()); diff != "" {
			t.Errorf("culled keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing root", func(t *testing.T) {
		g := build()
		_, err := g.Cull("nope")
		if !errors.Is(err, ErrMissingDependency) {
			t.Fatalf("expected ErrMissingDependency, got %v", err)
		}
		// Failed cull leaves the graph unchanged.
		if g.Len() != 5 {
			t.Errorf("failed cull mutated the graph: %d keys remain", g.Len())
		}
	})

	t.Run("missing transitive dependency", func(t *testing.T) {
		g := New[int]()
		mustAdd(t, g, "X", depTask(0, "ghost"))
		_, err := g.Cull("X")
		var missing *MissingDependencyError
		if !errors.As(err, &missing) || missing.Key != "ghost" {
			t.Fatalf("expected missing key ghost, got %v", err)
		}
	})
}

// TestDependents verifies direct-dependent lookup.
func TestDependents(t *testing.T) {
	g := New[int]()
	mustAdd(t, g, "U", depTask(0))
	mustAdd(t, g, "Y", depTask(0, "U"))
	mustAdd(t, g, "A", depTask(0, "U"))
	mustAdd(t, g, "X", depTask(0, "Y"))

	if diff := cmp.Diff([]string{"A", "Y"}, g.Dependents("U")); diff != "" {
		t.Errorf("dependents of U mismatch (-want +got):\n%s", diff)
	}
	if got := g.Dependents("X"); len(got) != 0 {
		t.Errorf("expected no dependents for X, got %v", got)
	}
	// X depends on U only transitively; Dependents is direct-only.
	for _, dep := range g.Dependents("U") {
		if dep == "X" {
			t.Error("Dependents must not include transitive dependents")
		}
	}
}

// TestKeysIn verifies the external-task dependency intersection.
func TestKeysIn(t *testing.T) {
	g := New[int]()
	mustAdd(t, g, "a", depTask(0))
	mustAdd(t, g, "b", depTask(0))
	mustAdd(t, g, "c", depTask(0))

	external1 := depTask(0, "a", "missing")
	external2 := depTask(0, "c", "b")

	got := g.KeysIn(external1, external2)
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("KeysIn mismatch (-want +got):\n%s", diff)
	}

	if got := g.KeysIn(depTask(0, "missing")); len(got) != 0 {
		t.Errorf("expected no keys, got %v", got)
	}
}

// TestValidate verifies topological ordering and whole-graph checks.
func TestValidate(t *testing.T) {
	t.Run("order respects dependencies", func(t *testing.T) {
		g := New[int]()
		mustAdd(t, g, "c", depTask(0, "b"))
		mustAdd(t, g, "b", depTask(0, "a"))
		mustAdd(t, g, "a", depTask(0))
		mustAdd(t, g, "lone", depTask(0))

		order, err := g.Validate()
		if err != nil {
			t.Fatalf("validate failed: %v", err)
		}
		if len(order) != 4 {
			t.Fatalf("expected 4 keys in order, got %v", order)
		}
		pos := make(map[string]int, len(order))
		for i, key := range order {
			pos[key] = i
		}
		if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
			t.Errorf("order violates dependencies: %v", order)
		}
	})

	t.Run("dangling dependency", func(t *testing.T) {
		g := New[int]()
		mustAdd(t, g, "x", depTask(0, "ghost"))

		_, err := g.Validate()
		var missing *MissingDependencyError
		if !errors.As(err, &missing) || missing.Key != "ghost" {
			t.Fatalf("expected missing key ghost, got %v", err)
		}
	})
}

// TestFromTasks verifies the bulk constructor.
func TestFromTasks(t *testing.T) {
	g, err := FromTasks([]Pair[int]{
		{Key: "a", Task: depTask(1)},
		{Key: "b", Task: depTask(2, "a")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, g.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	_, err = FromTasks([]Pair[int]{
		{Key: "a", Task: depTask(1)},
		{Key: "a", Task: depTask(2)},
	})
	if !errors.Is(err, ErrTaskExists) {
		t.Fatalf("expected ErrTaskExists, got %v", err)
	}
}

// TestAddResult verifies pre-populated nodes resolve without a task.
func TestAddResult(t *testing.T) {
	g := New[int]()
	if err := g.AddResult("seed", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddResult("seed", 1); !errors.Is(err, ErrTaskExists) {
		t.Fatalf("expected ErrTaskExists, got %v", err)
	}

	v, err := g.Resolve("seed")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if v != 99 {
		t.Errorf("expected 99, got %d", v)
	}
}

func mustAdd(t *testing.T, g *Graph[int], key string, task Task[int]) {
	t.Helper()
	if err := g.AddTask(key, task); err != nil {
		t.Fatalf("inserting %q: %v", key, err)
	}
}
