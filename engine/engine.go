// Package engine ties the pieces every other package defines into the
// single value spec §9's design note describes: "a single Engine value
// owns the bus registry and the node map; nodes receive a handle, not a
// global." Grounded on PromptKit's runtime.Runtime, which plays the same
// role (owns the event bus and stage registry, hands each stage a narrow
// facade rather than itself).
package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/speechflow/engine/config"
	"github.com/speechflow/engine/graph"
	"github.com/speechflow/engine/logger"
	"github.com/speechflow/engine/metrics"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/shutdown"
	"github.com/speechflow/engine/sidechain"
	"github.com/speechflow/engine/telemetry"
)

// Engine owns the resources every node shares and hands each node a
// scoped handle instead of itself (node.EngineHandle).
type Engine struct {
	cfg *config.EngineConfig
	bus *sidechain.Registry
	tp  *trace.TracerProvider

	builder  *graph.Builder
	g        *graph.Graph
	executor *graph.Executor
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConfig overrides the default engine-wide audio/text configuration.
func WithConfig(cfg *config.EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithTracerProvider attaches a tracer provider (e.g. one built via
// telemetry.NewTracerProvider with a span processor wired to an exporter).
func WithTracerProvider(tp *trace.TracerProvider) Option {
	return func(e *Engine) { e.tp = tp }
}

// New constructs an Engine with an empty bus registry and node builder.
func New(variables map[string]any, opts ...Option) *Engine {
	e := &Engine{
		cfg: config.Default(),
		bus: sidechain.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builder = graph.NewBuilder(variables)
	return e
}

// Builder exposes the graph builder so a DSL driver can call
// ResolveVariable/RegisterNode/ConnectNode (spec §4.5) before Build.
func (e *Engine) Builder() *graph.Builder {
	return e.builder
}

// NewHandle returns the node.EngineHandle a concrete node's constructor
// binds to, scoped to id. Call this before constructing a node, then pass
// the result to the node's own New function.
func (e *Engine) NewHandle(id string) node.EngineHandle {
	return &handle{engine: e, nodeID: id, recorder: metrics.NewNodeRecorder(id)}
}

// Build finalizes the graph (spec §4.5's three validation passes) and
// prepares an Executor for Run.
func (e *Engine) Build() error {
	g, err := e.builder.Build()
	if err != nil {
		return err
	}
	e.g = g
	e.executor = graph.NewExecutor(g)
	return nil
}

// Run executes the built graph to completion (spec §4.6's four steps).
func (e *Engine) Run(ctx context.Context) error {
	return e.executor.Run(ctx)
}

// Finished returns a channel closed once every node's stream has ended.
func (e *Engine) Finished() <-chan struct{} {
	return e.executor.Finished()
}

// Nodes returns every registered node, for wiring a control.Server or a
// shutdown.Orchestrator.
func (e *Engine) Nodes() []node.Node {
	if e.g == nil {
		return nil
	}
	nodes := make([]node.Node, 0, len(e.g.Order))
	for _, id := range e.g.Order {
		nodes = append(nodes, e.g.Nodes[id])
	}
	return nodes
}

// Pipes returns every wired edge pipe as a shutdown.PipeCloser, for the
// orchestrator's unpipe step (spec §4.9 step 2).
func (e *Engine) Pipes() []shutdown.PipeCloser {
	if e.g == nil {
		return nil
	}
	closers := make([]shutdown.PipeCloser, 0, len(e.g.Edges))
	for _, edge := range e.g.Edges {
		if p := e.executor.Pipe(edge.From, edge.To); p != nil {
			closers = append(closers, p)
		}
	}
	return closers
}

// Bus returns the named sidechain bus, for callers outside a node (e.g.
// nodes/statesink's Redis mirror, or a test harness).
func (e *Engine) Bus(name string) *sidechain.Bus {
	return e.bus.Access(name)
}

// Registry returns the engine's bus registry, for wiring a control.Server
// (which subscribes to each registered node's "notify:" bus itself).
func (e *Engine) Registry() *sidechain.Registry {
	return e.bus
}

// handle is the concrete node.EngineHandle every node receives.
type handle struct {
	engine   *Engine
	nodeID   string
	recorder *metrics.NodeRecorder
}

func (h *handle) Bus(name string) *sidechain.Bus {
	return h.engine.bus.Access(name)
}

func (h *handle) Logger() *slog.Logger {
	return logger.ForNode(h.nodeID)
}

func (h *handle) Metrics() *metrics.NodeRecorder {
	return h.recorder
}

func (h *handle) Tracer() oteltrace.Tracer {
	if h.engine.tp != nil {
		return telemetry.Tracer(h.engine.tp)
	}
	return telemetry.Tracer(nil)
}

func (h *handle) Config() *config.EngineConfig {
	return h.engine.cfg
}

func (h *handle) TimeZeroOffset() (int64, bool) {
	if h.engine.executor == nil {
		return 0, false
	}
	d, ok := h.engine.executor.TimeZeroOffset(h.nodeID)
	if !ok {
		return 0, false
	}
	return int64(d), true
}
