package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/sidechain"
)

// fixedSource emits a fixed number of text chunks then stops, used to drive
// the engine end-to-end without any real I/O (a two-node source -> sink
// graph).
type fixedSource struct {
	node.BaseNode
	remaining int
}

func newFixedSource(h node.EngineHandle, n int) *fixedSource {
	s := &fixedSource{remaining: n}
	s.BaseNode = node.NewBaseNode("source", node.PortNone, node.PortText, h)
	return s
}

func (s *fixedSource) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (s *fixedSource) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }
func (s *fixedSource) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if s.remaining <= 0 {
		return nil, nil
	}
	s.remaining--
	return []*chunk.Chunk{chunk.NewText(0, time.Millisecond, "hi")}, nil
}

// collector records every chunk it receives (the S1 sink role). Guarded by
// a mutex since tests may poll Received concurrently with the executor's
// node goroutine still delivering chunks via Process.
type collector struct {
	node.BaseNode

	mu       sync.Mutex
	received []*chunk.Chunk
}

func newCollector(h node.EngineHandle) *collector {
	c := &collector{}
	c.BaseNode = node.NewBaseNode("sink", node.PortText, node.PortNone, h)
	return c
}

func (c *collector) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (c *collector) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }
func (c *collector) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	c.mu.Lock()
	c.received = append(c.received, in)
	c.mu.Unlock()
	return nil, nil
}

// Received returns a snapshot copy of every chunk seen so far.
func (c *collector) Received() []*chunk.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*chunk.Chunk, len(c.received))
	copy(out, c.received)
	return out
}

func TestEngineRunsSourceToSinkGraph(t *testing.T) {
	e := New(map[string]any{"env.FOO": "bar"})

	src := newFixedSource(e.NewHandle("source"), 3)
	sink := newCollector(e.NewHandle("sink"))

	require.NoError(t, e.Builder().RegisterNode(src))
	require.NoError(t, e.Builder().RegisterNode(sink))
	require.NoError(t, e.Builder().ConnectNode("source", "sink"))
	require.NoError(t, e.Build())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, e.Run(ctx))

	select {
	case <-e.Finished():
	default:
		t.Fatal("expected Finished channel to be closed after Run returns")
	}

	assert.Len(t, sink.received, 3)
	zero, ok := e.executor.TimeZero()
	assert.True(t, ok)
	assert.False(t, zero.IsZero())
}

func TestEngineHandleExposesScopedServices(t *testing.T) {
	e := New(nil)
	h := e.NewHandle("n1")

	assert.NotNil(t, h.Logger())
	assert.NotNil(t, h.Metrics())
	assert.NotNil(t, h.Tracer())
	assert.NotNil(t, h.Config())

	_, ready := h.TimeZeroOffset()
	assert.False(t, ready)

	h.Bus("sidechain-test").Publish(sidechain.Event{Name: "test"})
}
