// Package splitter wraps dsp/splitter as a text -> text node (spec §4.10a,
// scenarios S2/S3).
package splitter

import (
	"context"
	"time"

	"github.com/speechflow/engine/chunk"
	dsp "github.com/speechflow/engine/dsp/splitter"
	"github.com/speechflow/engine/node"
)

// retryInterval is the 100ms retry cadence spec §4.10a names; the executor
// drives Node.Tick on this interval via node.Ticker.
const retryInterval = 100 * time.Millisecond

// Node drives a dsp/splitter.Splitter from the executor's per-chunk Process
// calls and, via node.Ticker, a periodic retry even when no input arrives.
type Node struct {
	node.BaseNode

	core *dsp.Splitter
}

var _ node.Ticker = (*Node)(nil)

// New constructs a sentence-splitter node using cfg (dsp.DefaultConfig()
// resolves spec §9's merge-preservation open question).
func New(id string, h node.EngineHandle, cfg dsp.Config) *Node {
	n := &Node{core: dsp.New(cfg)}
	n.BaseNode = node.NewBaseNode(id, node.PortText, node.PortText, h)
	return n
}

func (n *Node) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (n *Node) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }

// Process feeds in into the splitter core and returns whatever sentences
// (final or interim) became ready as a result.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if in == nil {
		n.core.WriteEOF()
		return n.core.Read(), nil
	}
	n.core.Write(in)
	return n.core.Read(), nil
}

// TickInterval reports the 100ms retry cadence spec §4.10a names.
func (n *Node) TickInterval() time.Duration { return retryInterval }

// Tick re-runs the splitter core with no new input, the path by which a
// sent preview with nothing further arriving gets promoted to final and
// emitted (dsp/splitter.Splitter.Poll).
func (n *Node) Tick(ctx context.Context) ([]*chunk.Chunk, error) {
	return n.core.Poll(), nil
}
