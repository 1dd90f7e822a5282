package classifier

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/config"
	dsp "github.com/speechflow/engine/dsp/classifier"
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

func constantPCM16LE(n int, value int16) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = byte(value)
		out[i*2+1] = byte(value >> 8)
	}
	return out
}

func TestClassifierNodeProcessesAudioChunks(t *testing.T) {
	fn := func(window []float32) (string, float64, float64) { return "male", 0.9, 0.5 }
	n := New("classifier", newFakeHandle(), dsp.DefaultConfig(), fn)

	_, err := n.Open(context.Background())
	require.NoError(t, err)

	var total int
	for i := 0; i < 20; i++ {
		payload := constantPCM16LE(2000, 5000)
		c := chunk.NewAudio(time.Duration(i)*10*time.Millisecond, time.Duration(i+1)*10*time.Millisecond, payload)
		out, err := n.Process(context.Background(), c)
		require.NoError(t, err)
		total += len(out)
	}
	require.GreaterOrEqual(t, total, 0)
}
