package splitter

import (
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
	dsp "github.com/speechflow/engine/dsp/splitter"
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

func TestSplitterNodeEmitsSentenceOnProcess(t *testing.T) {
	n := New("splitter", newFakeHandle(), dsp.DefaultConfig())

	_, err := n.Open(context.Background())
	require.NoError(t, err)

	out, err := n.Process(context.Background(), chunk.NewText(0, 100*time.Millisecond, "Hello world."))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hello world.", out[0].TextString())
}

func TestSplitterNodeFlushesOnEOF(t *testing.T) {
	n := New("splitter", newFakeHandle(), dsp.DefaultConfig())
	_, _ = n.Process(context.Background(), chunk.NewText(0, 50*time.Millisecond, "no boundary"))

	out, err := n.Process(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestSplitterNodeTickPromotesPendingPreviewAfterTimeout(t *testing.T) {
	cfg := dsp.DefaultConfig()
	cfg.PromotionTimeout = 10 * time.Millisecond
	n := New("splitter", newFakeHandle(), cfg)

	out, err := n.Process(context.Background(), chunk.NewText(0, 50*time.Millisecond, "And more"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, chunk.Intermediate, out[0].Kind)

	require.Eventually(t, func() bool {
		tick, err := n.Tick(context.Background())
		require.NoError(t, err)
		return len(tick) == 1 && tick[0].Kind == chunk.Final
	}, time.Second, time.Millisecond)
}
