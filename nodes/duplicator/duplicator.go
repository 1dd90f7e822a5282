// Package duplicator implements the explicit fan-out node spec §9's third
// Open Question calls for: the core models 1:1 edges, so sending one
// chunk to N consumers requires a node with one incoming edge and N
// outgoing edges that simply echoes its input to every outgoing edge (the
// executor's sendAll already fans a node's single Process result out to
// every outgoing edge, so this node's only job is to exist as that single
// producer).
package duplicator

import (
	"context"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/node"
)

// Node passes every incoming chunk through unchanged; its value is
// structural, not transformational — the engine's Build/Executor wiring
// model (spec §4.5, §4.6) fans a single producer's output out to every
// edge registered from it, so a duplicator is exactly a passthrough node
// placed at the point the graph needs 1:N fan-out.
type Node struct {
	node.BaseNode
}

// New constructs a duplicator node for the given port type.
func New(id string, h node.EngineHandle, portType node.PortType) *Node {
	n := &Node{}
	n.BaseNode = node.NewBaseNode(id, portType, portType, h)
	return n
}

func (n *Node) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (n *Node) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }

// Process echoes in unchanged.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if in == nil {
		return nil, nil
	}
	return []*chunk.Chunk{in}, nil
}
