// Package iosink wraps streamutil.SinkWrap as a sink node: every received
// chunk's payload is written to an io.Writer, stripping the chunk envelope
// (spec §4.4), used for scenario S1.
package iosink

import (
	"context"
	"io"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/streamutil"
)

// Node is a text or audio sink node with no outgoing edges.
type Node struct {
	node.BaseNode

	wrap *streamutil.SinkWrap
}

// New constructs a sink node writing every received chunk's payload to w.
// portType is whichever of node.PortAudio/node.PortText this sink accepts.
func New(id string, h node.EngineHandle, w io.Writer, portType node.PortType) *Node {
	n := &Node{wrap: streamutil.NewSinkWrap(w)}
	n.BaseNode = node.NewBaseNode(id, portType, node.PortNone, h)
	return n
}

func (n *Node) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (n *Node) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }

// Process writes in's payload and emits nothing downstream.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if in == nil {
		return nil, nil
	}
	if err := n.wrap.Write(in); err != nil {
		return nil, err
	}
	return nil, nil
}
