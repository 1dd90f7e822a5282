// Package shutdown implements the idempotent shutdown orchestrator spec
// §4.9 describes, grounded on PromptKit's runtime/a2a.Server.Shutdown (stop
// serving, then drain/close owned resources, first-error-wins) generalized
// to the engine's five-step sequence and triggered from either the graph
// executor's finish watcher or an OS signal.
package shutdown

import (
	"context"
	"sync"

	"github.com/speechflow/engine/errs"
	"github.com/speechflow/engine/logger"
	"github.com/speechflow/engine/node"
)

// ControlSurface is the subset of control.Server the orchestrator needs:
// stopping external requests (spec §4.9 step 1).
type ControlSurface interface {
	Shutdown(ctx context.Context) error
}

// PipeCloser is the subset of streamutil.Pipe (or a collection of them)
// needed to unpipe all edges (spec §4.9 step 2).
type PipeCloser interface {
	Close()
}

// ExitCode is the process exit code Orchestrator settles on: 0 for the
// "finished" path, non-zero for a signal-triggered shutdown (spec §4.9
// step 5).
type ExitCode int

const (
	ExitFinished ExitCode = 0
	ExitSignal   ExitCode = 1
)

// Orchestrator performs the five-step shutdown sequence exactly once,
// regardless of how many times Shutdown is called or from how many
// goroutines (spec §4.9: "Idempotent").
type Orchestrator struct {
	control ControlSurface
	nodes   []node.Node // in the order they should be closed (spec §4.9 step 3: "serial")
	pipes   []PipeCloser

	once     sync.Once
	exitCode ExitCode
}

// New creates an orchestrator over the given control surface, the nodes to
// close (in close order) and the pipes to unpipe.
func New(control ControlSurface, nodes []node.Node, pipes []PipeCloser) *Orchestrator {
	return &Orchestrator{control: control, nodes: nodes, pipes: pipes}
}

// Shutdown runs the five-step sequence exactly once. Subsequent calls are
// no-ops that return the exit code from the first call.
func (o *Orchestrator) Shutdown(ctx context.Context, code ExitCode) ExitCode {
	o.once.Do(func() {
		o.exitCode = code
		o.run(ctx)
	})
	return o.exitCode
}

func (o *Orchestrator) run(ctx context.Context) {
	// Step 1: stop the control surface, refusing new external requests.
	if o.control != nil {
		if err := o.control.Shutdown(ctx); err != nil {
			logger.Error("shutdown: control surface stop failed", "error", err)
		}
	}

	// Step 2: unpipe all edges.
	for _, p := range o.pipes {
		p.Close()
	}

	// Step 3: close nodes serially, each call shielded (recover + log,
	// never propagated).
	for _, n := range o.nodes {
		o.closeShielded(ctx, n)
	}

	// Step 4: clear connection sets — the caller-owned pipe/node slices are
	// this orchestrator's only connection-set state, and they are discarded
	// once this function returns since a new Orchestrator is constructed
	// per graph run.
}

func (o *Orchestrator) closeShielded(ctx context.Context, n node.Node) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("shutdown: node close panicked", "node", n.ID(), "panic", r)
		}
	}()

	if _, err := n.Close(ctx); err != nil {
		logger.Error("shutdown: node close failed", "node", n.ID(), "error", &errs.ShutdownErrorKind{Node: n.ID(), Err: err})
	}
}
