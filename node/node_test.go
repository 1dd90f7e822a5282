package node

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/config"
	"github.com/speechflow/engine/metrics"
	"github.com/speechflow/engine/sidechain"
)

type fakeHandle struct {
	reg *sidechain.Registry
	cfg *config.EngineConfig
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{reg: sidechain.NewRegistry(), cfg: config.Default()}
}

func (h *fakeHandle) Bus(name string) *sidechain.Bus { return h.reg.Access(name) }
func (h *fakeHandle) Logger() *slog.Logger           { return slog.Default() }
func (h *fakeHandle) Metrics() *metrics.NodeRecorder { return metrics.NewNodeRecorder("test") }
func (h *fakeHandle) Tracer() trace.Tracer           { return otel.Tracer("test") }
func (h *fakeHandle) Config() *config.EngineConfig   { return h.cfg }
func (h *fakeHandle) TimeZeroOffset() (int64, bool)  { return 0, false }

var _ EngineHandle = (*fakeHandle)(nil)

type passthroughNode struct {
	BaseNode
}

func newPassthroughNode(id string, handle EngineHandle) *passthroughNode {
	return &passthroughNode{BaseNode: NewBaseNode(id, PortText, PortText, handle)}
}

func (n *passthroughNode) Open(ctx context.Context) (Result, error)  { return Result{}, nil }
func (n *passthroughNode) Close(ctx context.Context) (Result, error) { return Result{}, nil }

func (n *passthroughNode) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	return []*chunk.Chunk{in}, nil
}

var _ Node = (*passthroughNode)(nil)

func TestBaseNodeIdentity(t *testing.T) {
	handle := newFakeHandle()
	n := newPassthroughNode("pass1", handle)

	assert.Equal(t, "pass1", n.ID())
	assert.Equal(t, PortText, n.Input())
	assert.Equal(t, PortText, n.Output())
}

func TestSendResponsePublishesOnNotifyBus(t *testing.T) {
	handle := newFakeHandle()
	n := newPassthroughNode("notifier", handle)

	received := make(chan sidechain.Event, 1)
	handle.Bus("notify:notifier").Subscribe(func(e sidechain.Event) {
		received <- e
	})

	n.SendResponse([]any{"mute", true})

	select {
	case e := <-received:
		require.Equal(t, "notifier", e.Node)
		assert.Equal(t, []any{"mute", true}, e.Data)
	default:
		t.Fatal("expected notification to be delivered synchronously")
	}
}

func TestPortTypeValues(t *testing.T) {
	assert.Equal(t, PortType("audio"), PortAudio)
	assert.Equal(t, PortType("text"), PortText)
	assert.Equal(t, PortType("none"), PortNone)
}

func TestProcessPassesChunkThrough(t *testing.T) {
	handle := newFakeHandle()
	n := newPassthroughNode("pass2", handle)

	in := chunk.NewText(0, 0, "hello")
	out, err := n.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in, out[0])
}
