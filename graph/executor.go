package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/errs"
	"github.com/speechflow/engine/logger"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/streamutil"
)

// Executor runs the fixed four-step pipeline spec §4.6 specifies: open all
// nodes, capture time-zero, wire pipes across edges, then watch for every
// stream finishing. Grounded on PromptKit's StreamPipeline execution loop,
// with the fan-out open performed via golang.org/x/sync/errgroup for
// first-error semantics instead of the teacher's sync.WaitGroup + error
// channel; the rollback close after a failed open runs serially.
type Executor struct {
	g *Graph

	mu         sync.Mutex
	timeZero   time.Time
	timeZeroOK bool
	openedAt   map[string]time.Time

	pipes map[Edge]*streamutil.Pipe

	finished chan struct{}
	once     sync.Once
}

// NewExecutor wraps a validated Graph for execution.
func NewExecutor(g *Graph) *Executor {
	return &Executor{
		g:        g,
		openedAt: make(map[string]time.Time),
		pipes:    make(map[Edge]*streamutil.Pipe),
		finished: make(chan struct{}),
	}
}

// Run performs the four-step pipeline and blocks until every node's stream
// has reached end-of-stream, or ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.openAll(ctx); err != nil {
		return err
	}

	e.captureTimeZero()

	e.wirePipes()

	return e.watchFinish(ctx)
}

// openAll opens every node (spec §4.6 step 1). An open failure aborts;
// nodes already opened are closed in reverse order.
func (e *Executor) openAll(ctx context.Context) error {
	opened := make([]string, 0, len(e.g.Order))
	var openedMu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	for _, id := range e.g.Order {
		id := id
		n := e.g.Nodes[id]
		group.Go(func() error {
			if _, err := n.Open(gctx); err != nil {
				return &errs.ResourceErrorKind{Node: id, Err: err}
			}
			openedMu.Lock()
			opened = append(opened, id)
			e.openedAt[id] = time.Now()
			openedMu.Unlock()
			logger.Info("node opened", "node", id)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		e.closeInReverse(context.Background(), opened)
		return err
	}
	return nil
}

func (e *Executor) closeInReverse(ctx context.Context, ids []string) {
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		if _, err := e.g.Nodes[id].Close(ctx); err != nil {
			logger.Error("node close failed during rollback", "node", id, "error", err)
		}
	}
}

// captureTimeZero records the wall-clock instant after all opens complete
// (spec §4.6 step 2, spec §4.1).
func (e *Executor) captureTimeZero() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeZero = time.Now()
	e.timeZeroOK = true
}

// TimeZero returns the captured time-zero instant, valid only after Run has
// progressed past step 2.
func (e *Executor) TimeZero() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeZero, e.timeZeroOK
}

// TimeZeroOffset returns time_zero - time_open for the given node id (spec
// §4.1), used by node.EngineHandle implementations.
func (e *Executor) TimeZeroOffset(id string) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	openedAt, ok := e.openedAt[id]
	if !ok || !e.timeZeroOK {
		return 0, false
	}
	return e.timeZero.Sub(openedAt), true
}

// wirePipes creates one Pipe per edge (spec §4.6 step 3: "pipe each
// producer's stream into each consumer's stream, one-to-one with current
// edges").
func (e *Executor) wirePipes() {
	for _, edge := range e.g.Edges {
		e.pipes[edge] = streamutil.NewPipe()
	}
}

// Pipe returns the edge's wired pipe, or nil if no such edge exists.
func (e *Executor) Pipe(from, to string) *streamutil.Pipe {
	return e.pipes[Edge{From: from, To: to}]
}

// watchFinish installs the per-stream finish watcher (spec §4.6 step 4):
// each edge's producer runs the node's Process loop until its input
// (or, for a source, an internal EOF) is exhausted, then closes its
// outgoing pipes; once every watcher has fired the executor declares the
// graph finished.
func (e *Executor) watchFinish(ctx context.Context) error {
	var wg sync.WaitGroup
	nodeErrs := make(chan error, len(e.g.Order))

	outgoing := make(map[string][]Edge)
	incoming := make(map[string][]Edge)
	for _, edge := range e.g.Edges {
		outgoing[edge.From] = append(outgoing[edge.From], edge)
		incoming[edge.To] = append(incoming[edge.To], edge)
	}

	for _, id := range e.g.Order {
		id := id
		n := e.g.Nodes[id]
		outs := outgoing[id]
		ins := incoming[id]

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.runNodeLoop(ctx, n, ins, outs); err != nil {
				nodeErrs <- fmt.Errorf("node %q: %w", id, err)
			}
		}()
	}

	wg.Wait()
	close(nodeErrs)
	e.once.Do(func() { close(e.finished) })

	for err := range nodeErrs {
		return err
	}
	return nil
}

// runNodeLoop drives a single node's Process calls against its wired
// pipes until every incoming pipe is exhausted (or, for a source node with
// no incoming pipes, until a Process call returns no chunks). If n implements
// node.Ticker, Tick is interleaved on TickInterval in the same goroutine as
// Process, so a buffering node's pending state (e.g. nodes/splitter's
// promoted preview) can be driven to output even with no new input. Once
// every incoming pipe has closed, it delivers one Process(ctx, nil) EOF
// call so buffering nodes (nodes/splitter, nodes/classifier) can flush
// whatever they're still holding, then closes every outgoing pipe.
func (e *Executor) runNodeLoop(ctx context.Context, n node.Node, ins, outs []Edge) error {
	defer func() {
		for _, edge := range outs {
			if p := e.pipes[edge]; p != nil {
				p.Close()
			}
		}
	}()

	if len(ins) == 0 {
		return e.runSourceLoop(ctx, n, outs)
	}

	var ticker *time.Ticker
	if t, ok := n.(node.Ticker); ok {
		ticker = time.NewTicker(t.TickInterval())
		defer ticker.Stop()
	}

	for _, edge := range ins {
		in := e.pipes[edge]
	drain:
		for {
			var tickC <-chan time.Time
			if ticker != nil {
				tickC = ticker.C
			}
			select {
			case c, open := <-in.Chan():
				if !open {
					break drain
				}
				results, err := n.Process(ctx, c)
				if err != nil {
					return &errs.StreamErrorKind{Node: n.ID(), Err: err}
				}
				if err := e.sendAll(ctx, outs, results); err != nil {
					return err
				}
			case <-tickC:
				if err := e.tick(ctx, n, outs); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	results, err := n.Process(ctx, nil)
	if err != nil {
		return &errs.StreamErrorKind{Node: n.ID(), Err: err}
	}
	return e.sendAll(ctx, outs, results)
}

// tick delivers one node.Ticker.Tick call and forwards its results, a no-op
// for nodes that don't implement the capability.
func (e *Executor) tick(ctx context.Context, n node.Node, outs []Edge) error {
	t, ok := n.(node.Ticker)
	if !ok {
		return nil
	}
	results, err := t.Tick(ctx)
	if err != nil {
		return &errs.StreamErrorKind{Node: n.ID(), Err: err}
	}
	return e.sendAll(ctx, outs, results)
}

func (e *Executor) runSourceLoop(ctx context.Context, n node.Node, outs []Edge) error {
	for {
		results, err := n.Process(ctx, nil)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		if err := e.sendAll(ctx, outs, results); err != nil {
			return err
		}
	}
}

func (e *Executor) sendAll(ctx context.Context, outs []Edge, results []*chunk.Chunk) error {
	for _, c := range results {
		for _, edge := range outs {
			p := e.pipes[edge]
			if p == nil {
				continue
			}
			if err := p.Send(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finished returns a channel closed once every node's stream has reached
// end-of-stream (spec §4.6 step 4).
func (e *Executor) Finished() <-chan struct{} {
	return e.finished
}
