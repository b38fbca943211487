// Package scheduler implements component I: it consumes a client's
// catalog (already validated as a DAG by depgraph) and applies
// resources in dependency order, continuing past isolated failures by
// skipping their transitive dependents.
package scheduler

import (
	"sort"

	"pullconf/internal/applier"
	"pullconf/internal/depgraph"
	"pullconf/internal/resource"
)

// State is a resource's position in the scheduler's state machine:
// Pending -> Ready -> Applying -> {Applied, NoChange, Failed, Skipped}.
type State int

const (
	Pending State = iota
	Ready
	Applying
	Applied
	NoChange
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Applying:
		return "applying"
	case Applied:
		return "applied"
	case NoChange:
		return "no_change"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is one resource's final disposition from a convergence run.
type Result struct {
	Resource *resource.Resource
	State    State
	Err      error
}

// Run drives graph to completion against app, in kind-priority order
// with lexicographic tie-break among resources that are simultaneously
// ready (spec.md §4.I), and returns one Result per resource in the
// order it was processed.
func Run(graph *depgraph.Graph, app applier.Applier) []Result {
	n := len(graph.Nodes)
	remaining := make([]int, n)
	state := make([]State, n)
	for i := range graph.Nodes {
		remaining[i] = len(graph.Dependencies(i))
	}

	results := make([]Result, 0, n)

	for {
		i, ok := nextReady(graph, state, remaining)
		if !ok {
			break
		}

		state[i] = Applying
		r := graph.Nodes[i]
		out := app.Apply(r)

		switch {
		case out.Err != nil || out.Outcome == applier.Failed:
			state[i] = Failed
			results = append(results, Result{Resource: r, State: Failed, Err: out.Err})
			skipDependents(graph, i, state, &results)
		case out.Outcome == applier.NoChange:
			state[i] = NoChange
			results = append(results, Result{Resource: r, State: NoChange})
			release(graph, i, state, remaining)
		default:
			state[i] = Applied
			results = append(results, Result{Resource: r, State: Applied})
			release(graph, i, state, remaining)
		}
	}

	return results
}

// nextReady picks the unresolved node with no outstanding dependencies,
// breaking ties by kind priority then identity key, matching the
// scheduler's deterministic pop order.
func nextReady(graph *depgraph.Graph, state []State, remaining []int) (int, bool) {
	var candidates []int
	for i := range graph.Nodes {
		if state[i] == Pending && remaining[i] == 0 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	sort.Slice(candidates, func(a, b int) bool {
		ra, rb := graph.Nodes[candidates[a]], graph.Nodes[candidates[b]]
		pa, pb := ra.ID.Kind.Priority(), rb.ID.Kind.Priority()
		if pa != pb {
			return pa < pb
		}
		return ra.ID.Key < rb.ID.Key
	})
	return candidates[0], true
}

// release decrements the outstanding-dependency count of every node
// that depended on i, now that i has reached a terminal, non-failing
// state.
func release(graph *depgraph.Graph, i int, state []State, remaining []int) {
	for _, dep := range graph.Dependents(i) {
		if state[dep] == Pending {
			remaining[dep]--
		}
	}
}

// skipDependents marks every transitive dependent of a failed resource
// as Skipped, so a single failure never blocks the whole run and never
// lets a dependent apply on top of an unmet dependency.
func skipDependents(graph *depgraph.Graph, i int, state []State, results *[]Result) {
	for _, dep := range graph.Dependents(i) {
		if state[dep] != Pending {
			continue
		}
		state[dep] = Skipped
		*results = append(*results, Result{Resource: graph.Nodes[dep], State: Skipped})
		skipDependents(graph, dep, state, results)
	}
}
