// Package iosource wraps streamutil.SourceWrap as a source node (no
// incoming edges): an io.Reader framed into chunks (spec §4.4), used for
// scenario S1 (file -> passthrough -> file).
package iosource

import (
	"context"
	"io"
	"time"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/streamutil"
)

// Node reads from r and emits one chunk per call to Process until r is
// exhausted, at which point Process returns (nil, nil) to signal
// end-of-stream to the executor's source loop.
type Node struct {
	node.BaseNode

	r        io.Reader
	wrap     *streamutil.SourceWrap
	openedAt time.Time
}

// NewAudio constructs a source node framing r into audio chunks of chunkMS
// duration, using the handle's configured sample rate/bit depth.
func NewAudio(id string, h node.EngineHandle, r io.Reader, chunkMS int) *Node {
	n := &Node{r: r}
	n.BaseNode = node.NewBaseNode(id, node.PortNone, node.PortAudio, h)
	cfg := h.Config()
	n.wrap = streamutil.NewAudioSourceWrap(r, cfg.AudioSampleRate, cfg.BytesPerSample(), chunkMS, n.sinceZero)
	return n
}

// NewText constructs a source node framing r into text chunks of frameSize
// bytes.
func NewText(id string, h node.EngineHandle, r io.Reader, frameSize int) *Node {
	n := &Node{r: r}
	n.BaseNode = node.NewBaseNode(id, node.PortNone, node.PortText, h)
	n.wrap = streamutil.NewTextSourceWrap(r, frameSize, n.sinceZero)
	return n
}

func (n *Node) sinceZero() time.Duration {
	if n.openedAt.IsZero() {
		return 0
	}
	d := time.Since(n.openedAt)
	if off, ok := n.Handle().TimeZeroOffset(); ok {
		d -= time.Duration(off)
	}
	return d
}

// Open records the node's own time_open (spec §4.1). Emitted chunks are
// stamped relative to the graph's time-zero once the handle reports it, and
// relative to this instant before that.
func (n *Node) Open(ctx context.Context) (node.Result, error) {
	n.openedAt = time.Now()
	return node.Result{}, nil
}

// Close is a no-op: the underlying io.Reader's lifetime is owned by
// whoever constructed it, not by this node.
func (n *Node) Close(ctx context.Context) (node.Result, error) {
	return node.Result{}, nil
}

// Process ignores in (a source never receives input) and returns the next
// framed chunk, or (nil, nil) once the reader is exhausted.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	c, err := n.wrap.Next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []*chunk.Chunk{c}, nil
}
