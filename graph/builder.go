// Package graph implements the builder (spec §4.5) and executor (spec
// §4.6) halves of the directed graph a DSL driver assembles, grounded on
// PromptKit's runtime/pipeline/stage.PipelineBuilder: stage/edge
// bookkeeping plus a DFS cycle detector, generalized to the engine's
// three-callback DSL contract and its required-port/prune/type-match
// validation passes instead of PromptKit's single duplicate-name check.
package graph

import (
	"fmt"

	"github.com/speechflow/engine/errs"
	"github.com/speechflow/engine/node"
)

// Edge is a directed connection between two registered nodes.
type Edge struct {
	From string
	To   string
}

// Builder consumes the three DSL callbacks spec §4.5 names
// (ResolveVariable/RegisterNode/ConnectNode) and, once the DSL driver has
// finished emitting, runs the three validation passes in order.
type Builder struct {
	nodes map[string]node.Node
	order []string // insertion order, for deterministic Open fan-out
	edges []Edge

	variables map[string]any
}

// NewBuilder creates an empty builder. variables seeds the dotted-path
// lookup table ResolveVariable serves (argv/env/user variables, spec §4.5).
func NewBuilder(variables map[string]any) *Builder {
	return &Builder{
		nodes:     make(map[string]node.Node),
		variables: variables,
	}
}

// ResolveVariable looks up a dotted path in the builder's variable table
// (spec §4.5: "looks up argv/env/user variables by dotted path").
func (b *Builder) ResolveVariable(path string) (any, bool) {
	v, ok := b.variables[path]
	return v, ok
}

// RegisterNode records an already-constructed node (spec §4.5's
// create_node: "constructs node by kind, runs §4.2, registers it" — the
// kind-to-constructor dispatch and parameter binding happen in the DSL
// driver/engine layer, which then hands the finished node here).
func (b *Builder) RegisterNode(n node.Node) error {
	if _, exists := b.nodes[n.ID()]; exists {
		return &errs.ConfigErrorKind{Reason: fmt.Sprintf("duplicate node id %q", n.ID())}
	}
	b.nodes[n.ID()] = n
	b.order = append(b.order, n.ID())
	return nil
}

// ConnectNode adds edge a -> b (spec §4.5).
func (b *Builder) ConnectNode(a, bID string) error {
	if _, ok := b.nodes[a]; !ok {
		return &errs.ConfigErrorKind{Reason: fmt.Sprintf("connect: unknown node %q", a)}
	}
	if _, ok := b.nodes[bID]; !ok {
		return &errs.ConfigErrorKind{Reason: fmt.Sprintf("connect: unknown node %q", bID)}
	}
	b.edges = append(b.edges, Edge{From: a, To: bID})
	return nil
}

// Graph is the validated, immutable result of Build.
type Graph struct {
	Nodes map[string]node.Node
	Order []string
	Edges []Edge
}

// Build runs the three validation passes spec §4.5 specifies, in order,
// and returns the resulting graph.
func (b *Builder) Build() (*Graph, error) {
	adjacency := make(map[string][]string, len(b.nodes))
	reverse := make(map[string][]string, len(b.nodes))
	for _, e := range b.edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
		reverse[e.To] = append(reverse[e.To], e.From)
	}

	if err := b.requiredPortPass(adjacency, reverse); err != nil {
		return nil, err
	}

	edges := b.prunePass(b.edges)

	if err := b.typePass(edges); err != nil {
		return nil, err
	}

	if err := b.detectCycles(edges); err != nil {
		return nil, err
	}

	return &Graph{Nodes: b.nodes, Order: append([]string(nil), b.order...), Edges: edges}, nil
}

// requiredPortPass aborts if a node declares input != none but has no
// incoming edges, or output != none but has no outgoing edges (spec §4.5
// pass 1).
func (b *Builder) requiredPortPass(adjacency, reverse map[string][]string) error {
	for _, id := range b.order {
		n := b.nodes[id]
		if n.Input() != node.PortNone && len(reverse[id]) == 0 {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("node %q requires an input but has no incoming edge", id)}
		}
		if n.Output() != node.PortNone && len(adjacency[id]) == 0 {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("node %q requires an output but has no outgoing edge", id)}
		}
	}
	return nil
}

// prunePass drops incoming edges for input=none nodes and outgoing edges
// for output=none nodes (spec §4.5 pass 2); subsequent passes use the
// pruned edge list.
func (b *Builder) prunePass(edges []Edge) []Edge {
	pruned := make([]Edge, 0, len(edges))
	for _, e := range edges {
		from := b.nodes[e.From]
		to := b.nodes[e.To]
		if from.Output() == node.PortNone {
			continue
		}
		if to.Input() == node.PortNone {
			continue
		}
		pruned = append(pruned, e)
	}
	return pruned
}

// typePass requires a.output == b.input for every surviving edge (spec
// §4.5 pass 3).
func (b *Builder) typePass(edges []Edge) error {
	for _, e := range edges {
		from := b.nodes[e.From]
		to := b.nodes[e.To]
		if from.Output() != to.Input() {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf(
				"edge %s -> %s: port type mismatch (%s != %s)", e.From, e.To, from.Output(), to.Input())}
		}
	}
	return nil
}

// cycleDetector implements DFS-based cycle detection, grounded on
// PromptKit's PipelineBuilder.detectCycles/cycleDetector.
type cycleDetector struct {
	graph    map[string][]string
	visited  map[string]bool
	recStack map[string]bool
}

func (b *Builder) detectCycles(edges []Edge) error {
	adjacency := make(map[string][]string, len(b.nodes))
	for _, e := range edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	d := &cycleDetector{
		graph:    adjacency,
		visited:  make(map[string]bool),
		recStack: make(map[string]bool),
	}
	for _, id := range b.order {
		if !d.visited[id] && d.dfs(id) {
			return &errs.ConfigErrorKind{Reason: "graph contains a cycle"}
		}
	}
	return nil
}

func (d *cycleDetector) dfs(n string) bool {
	d.visited[n] = true
	d.recStack[n] = true

	for _, neighbor := range d.graph[n] {
		if d.recStack[neighbor] {
			return true
		}
		if !d.visited[neighbor] && d.dfs(neighbor) {
			return true
		}
	}

	d.recStack[n] = false
	return false
}
