package iosink

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/config"
	"github.com/speechflow/engine/metrics"
	"github.com/speechflow/engine/node"
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

var _ node.EngineHandle = (*fakeHandle)(nil)

func TestSinkWritesPayloadBytes(t *testing.T) {
	var buf bytes.Buffer
	n := New("sink", newFakeHandle(), &buf, node.PortText)

	_, err := n.Open(context.Background())
	require.NoError(t, err)

	out, err := n.Process(context.Background(), chunk.NewText(0, time.Millisecond, "hi there"))
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, "hi there", buf.String())
}
