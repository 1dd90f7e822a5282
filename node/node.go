// Package node defines the Node contract every concrete processing unit in
// a graph implements (spec §4.3), grounded on PromptKit's
// runtime/pipeline/stage.Stage: a narrow interface plus a BaseNode an
// implementation embeds for the boilerplate (id, port tags, status map).
package node

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/config"
	"github.com/speechflow/engine/metrics"
	"github.com/speechflow/engine/sidechain"
)

// PortType names the two chunk flavors a node's ports may carry (spec §3).
type PortType string

const (
	PortNone  PortType = "none"
	PortAudio PortType = "audio"
	PortText  PortType = "text"
)

// Status is the flat, one-shot introspection mapping a node may return.
type Status map[string]any

// Result carries the outcome of a lifecycle transition; a zero Result with a
// non-nil error indicates failure, matching spec §4.3's "propagates the
// error" language for Open/Close.
type Result struct {
	Status Status
}

// EngineHandle is the scoped handle a node receives at construction instead
// of the owning Engine value (Design Notes: "nodes receive a handle, not a
// global"). It exposes exactly the ambient services a node needs.
type EngineHandle interface {
	// Bus returns the named sidechain bus (spec §4.7), created on first access.
	Bus(name string) *sidechain.Bus
	// Logger returns a logger scoped to this node's id.
	Logger() *slog.Logger
	// Metrics returns the Prometheus recorder scoped to this node's id.
	Metrics() *metrics.NodeRecorder
	// Tracer returns the OTel tracer this node should use for spans.
	Tracer() trace.Tracer
	// Config returns the engine-wide audio/text configuration (spec §6).
	Config() *config.EngineConfig
	// TimeZeroOffset returns time_zero - time_open for this node, valid only
	// after time-zero capture completes (spec §4.1). Zero until then.
	TimeZeroOffset() (_ int64, ready bool)
}

// Node is the contract every concrete processing unit implements (spec
// §4.3). Configure is called from the constructor, not through this
// interface; Open/Close/Status/ReceiveRequest/SendResponse/ReceiveDashboard/
// Log correspond one-to-one with spec §4.3's verbs.
type Node interface {
	// ID returns this node's unique identifier within the graph.
	ID() string
	// Input returns the port type this node accepts, or PortNone.
	Input() PortType
	// Output returns the port type this node produces, or PortNone.
	Output() PortType

	// Open allocates stream and external resources. Must be idempotent
	// against a prior Close; on failure the node is left closed and the
	// error is propagated (spec §4.3). May block.
	Open(ctx context.Context) (Result, error)
	// Close performs cooperative shutdown, releasing every resource Open
	// acquired. Duplicate Close is a no-op (spec §4.3).
	Close(ctx context.Context) (Result, error)

	// Process reads a single chunk from in (nil for a source node) and
	// returns the chunk(s) to emit, or nil to emit nothing this call. This
	// is the engine's hook into the node's per-chunk transform; the
	// executor owns pipe Send/Recv, not the node.
	Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error)
}

// StatusReporter is an optional capability: one-shot introspection.
type StatusReporter interface {
	Status(ctx context.Context) (Status, error)
}

// RequestReceiver is an optional capability: external control (spec §4.8).
type RequestReceiver interface {
	ReceiveRequest(ctx context.Context, args []any) (Result, error)
}

// ResponseSender is an optional capability: notification events the control
// surface broadcasts labelled with this node's id (spec §4.3).
type ResponseSender interface {
	SendResponse(args []any)
}

// DashboardReceiver is an optional capability: ambient scalar updates used
// by sidechain-mode nodes (spec §4.3, §4.7).
type DashboardReceiver interface {
	ReceiveDashboard(kind string, id string, valueKind string, value any)
}

// Ticker is an optional capability for a node whose pending state can time
// out with no further input (spec §4.10a's 100ms retry timer): the executor
// drives Tick on TickInterval alongside normal Process calls, in the same
// per-node goroutine, so a node never sees Tick and Process run
// concurrently.
type Ticker interface {
	TickInterval() time.Duration
	Tick(ctx context.Context) ([]*chunk.Chunk, error)
}

// BaseNode provides the id/port bookkeeping and handle access every
// concrete node embeds, mirroring stage.BaseStage's role for stage.Stage
// implementations.
type BaseNode struct {
	id     string
	input  PortType
	output PortType
	handle EngineHandle
}

// NewBaseNode constructs the embeddable base; a concrete node calls this
// from its own constructor once Configure (spec §4.2's Bind) has succeeded.
func NewBaseNode(id string, input, output PortType, handle EngineHandle) BaseNode {
	return BaseNode{id: id, input: input, output: output, handle: handle}
}

func (b *BaseNode) ID() string          { return b.id }
func (b *BaseNode) Input() PortType     { return b.input }
func (b *BaseNode) Output() PortType    { return b.output }
func (b *BaseNode) Handle() EngineHandle { return b.handle }

// Log emits a structured log event scoped to this node (spec §4.3's log verb).
func (b *BaseNode) Log(level slog.Level, msg string, args ...any) {
	if b.handle == nil {
		return
	}
	b.handle.Logger().Log(context.Background(), level, msg, args...)
}

// SendResponse emits a notification event labelled with this node's id over
// its "notify" sidechain bus; control.Server subscribes to these buses to
// fan out WebSocket notifications (spec §4.3, §4.8).
func (b *BaseNode) SendResponse(args []any) {
	if b.handle == nil {
		return
	}
	b.handle.Bus("notify:" + b.id).Publish(sidechain.Event{
		Name: "notify",
		Node: b.id,
		Data: args,
	})
}
