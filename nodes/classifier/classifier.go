// Package classifier wraps dsp/classifier as an audio -> audio node (spec
// §4.10b): every chunk passes through unchanged, tagged with a scalar
// label in its meta.
package classifier

import (
	"context"

	"github.com/speechflow/engine/chunk"
	dsp "github.com/speechflow/engine/dsp/classifier"
	"github.com/speechflow/engine/node"
)

// Node drives a dsp/classifier.Queue from the executor's per-chunk Process
// calls.
type Node struct {
	node.BaseNode

	core *dsp.Queue
}

// New constructs a classifier node scoring each window with fn (e.g. a
// bound inference call wired in by the embedding application).
func New(id string, h node.EngineHandle, cfg dsp.Config, fn dsp.Classifier) *Node {
	n := &Node{core: dsp.New(cfg, fn)}
	n.BaseNode = node.NewBaseNode(id, node.PortAudio, node.PortAudio, h)
	return n
}

func (n *Node) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (n *Node) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }

// Process feeds in into the classifier core and returns whatever frames
// became tagged as a result.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if in == nil {
		n.core.WriteEOF()
		return n.core.Read(), nil
	}
	n.core.Write(in)
	return n.core.Read(), nil
}
