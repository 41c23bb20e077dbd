// Package graph tracks which output artifacts derive from which inputs and
// computes minimal re-render sets for incremental builds.
//
// Node identities are namespaced strings ("content:...", "template:...",
// "page:...", "asset:..."). Edges point from an artifact to the inputs whose
// change must invalidate it. The graph is acyclic; an insertion that would
// close a cycle fails and aborts the build.
package graph

import (
	"sort"
	"sync"

	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
)

// Graph is a dependency graph over namespaced node identities. Edge insertion
// is safe for concurrent use; render workers discover shared partial
// dependencies at the same time.
type Graph struct {
	mu sync.RWMutex
	// deps[artifact] is the set of inputs the artifact derives from.
	deps map[string]map[string]struct{}
	// dependents[input] is the reverse index used for invalidation.
	dependents map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		deps:       make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
	}
}

// RecordDependency adds the edge artifact -> input. Inserting an edge that
// would make the graph cyclic fails with CyclicDependency; this guards
// against template self-inclusion.
func (g *Graph) RecordDependency(artifact, input string) error {
	if artifact == input {
		return builderr.CyclicDependency(artifact, input)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// The new edge closes a cycle iff artifact is already reachable from
	// input along existing edges.
	if g.reachableLocked(input, artifact) {
		return builderr.CyclicDependency(artifact, input)
	}

	if g.deps[artifact] == nil {
		g.deps[artifact] = make(map[string]struct{})
	}
	g.deps[artifact][input] = struct{}{}

	if g.dependents[input] == nil {
		g.dependents[input] = make(map[string]struct{})
	}
	g.dependents[input][artifact] = struct{}{}
	return nil
}

// reachableLocked reports whether target is reachable from start following
// artifact -> input edges. Caller holds the lock.
func (g *Graph) reachableLocked(start, target string) bool {
	seen := map[string]struct{}{start: {}}
	stack := []string{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == target {
			return true
		}
		for dep := range g.deps[node] {
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// ClearArtifact removes all outgoing edges of an artifact. Called before an
// artifact is re-rendered so stale dependencies do not linger.
func (g *Graph) ClearArtifact(artifact string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for input := range g.deps[artifact] {
		delete(g.dependents[input], artifact)
		if len(g.dependents[input]) == 0 {
			delete(g.dependents, input)
		}
	}
	delete(g.deps, artifact)
}

// Invalidate returns the set of artifacts requiring re-render given the
// changed inputs: the transitive closure over incoming edges. A changed node
// that is itself an artifact is included.
func (g *Graph) Invalidate(changed []string) map[string]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]struct{})
	queue := append([]string(nil), changed...)
	seen := make(map[string]struct{}, len(changed))
	for _, c := range changed {
		seen[c] = struct{}{}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if _, isArtifact := g.deps[node]; isArtifact {
			out[node] = struct{}{}
		}
		for dep := range g.dependents[node] {
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
	return out
}

// Dependencies returns the sorted inputs of an artifact.
func (g *Graph) Dependencies(artifact string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.deps[artifact]))
	for input := range g.deps[artifact] {
		out = append(out, input)
	}
	sort.Strings(out)
	return out
}

// Edge is one artifact -> input dependency, used for persistence.
type Edge struct {
	Artifact string `json:"artifact"`
	Input    string `json:"input"`
}

// Snapshot returns all edges in deterministic order.
func (g *Graph) Snapshot() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []Edge
	for artifact, inputs := range g.deps {
		for input := range inputs {
			edges = append(edges, Edge{Artifact: artifact, Input: input})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Artifact != edges[j].Artifact {
			return edges[i].Artifact < edges[j].Artifact
		}
		return edges[i].Input < edges[j].Input
	})
	return edges
}

// Restore rebuilds a graph from persisted edges. Edges that would introduce a
// cycle fail, as on live insertion.
func Restore(edges []Edge) (*Graph, error) {
	g := New()
	for _, e := range edges {
		if err := g.RecordDependency(e.Artifact, e.Input); err != nil {
			return nil, err
		}
	}
	return g, nil
}
