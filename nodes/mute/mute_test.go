package mute

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
	"github.com/speechflow/engine/errs"
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

func TestMutePassesThroughUntilSilenced(t *testing.T) {
	n := New("mute1", newFakeHandle(), node.PortText)

	in := chunk.NewText(0, time.Millisecond, "hello")
	out, err := n.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in, out[0])
}

func TestMuteSilencesAfterReceiveRequest(t *testing.T) {
	n := New("mute1", newFakeHandle(), node.PortText)

	_, err := n.ReceiveRequest(context.Background(), []any{"mode", "silenced"})
	require.NoError(t, err)

	in := chunk.NewText(0, time.Millisecond, "hello")
	out, err := n.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEqual(t, in.Payload, out[0].Payload)
	muted, ok := out[0].Meta.Get("muted")
	require.True(t, ok)
	assert.Equal(t, true, muted)
}

func TestMuteRejectsMalformedRequest(t *testing.T) {
	n := New("mute1", newFakeHandle(), node.PortText)

	_, err := n.ReceiveRequest(context.Background(), []any{"bogus"})
	var extErr *errs.ExternalRequestErrorKind
	require.ErrorAs(t, err, &extErr)
}
