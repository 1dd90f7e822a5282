// Package streamutil implements the canonical backpressured edge and the
// auxiliary queue primitives spec §3/§4.4 name, grounded on PromptKit's
// runtime/pipeline/stage channel wiring (stage.go/pipeline.go): channels of
// chunk.Chunk carrying the object-mode stream, generalized here into
// reusable generic primitives since the teacher's StreamElement is a single
// concrete payload type rather than a type parameter.
package streamutil

import (
	"context"
	"fmt"

	"github.com/speechflow/engine/chunk"
)

// Pipe is the canonical edge: an object-mode back-pressured channel with
// high_water_mark = 1 (spec §4.4). The producer suspends after Send until
// the consumer Recvs, bounding memory independent of throughput.
type Pipe struct {
	ch     chan *chunk.Chunk
	closed chan struct{}
}

// NewPipe creates an edge with capacity exactly 1.
func NewPipe() *Pipe {
	return &Pipe{
		ch:     make(chan *chunk.Chunk, 1),
		closed: make(chan struct{}),
	}
}

// Send delivers c to the consumer, blocking until accepted, ctx is done, or
// the pipe has been closed.
func (p *Pipe) Send(ctx context.Context, c *chunk.Chunk) error {
	select {
	case <-p.closed:
		return fmt.Errorf("streamutil: send on closed pipe")
	default:
	}
	select {
	case p.ch <- c:
		return nil
	case <-p.closed:
		return fmt.Errorf("streamutil: send on closed pipe")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks for the next chunk, returning ok=false once the pipe is
// closed and drained.
func (p *Pipe) Recv(ctx context.Context) (c *chunk.Chunk, ok bool, err error) {
	select {
	case c, open := <-p.ch:
		return c, open, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Chan exposes the underlying channel so a caller can select on it
// alongside other events (e.g. the executor interleaving a node.Ticker
// alongside incoming chunks). Close closes it; an item still buffered at
// that point remains receivable before the channel reports closed.
func (p *Pipe) Chan() <-chan *chunk.Chunk {
	return p.ch
}

// Close marks the producing side finished; no further Send succeeds, and a
// Recv in flight drains whatever remains buffered before reporting closed.
// Idempotent. Must be called by the producer after its last Send returns,
// never concurrently with one, matching the single-writer-closes convention
// for Go channels.
func (p *Pipe) Close() {
	select {
	case <-p.closed:
		return
	default:
		close(p.closed)
		close(p.ch)
	}
}
