package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/node"
)

type closeTrackingNode struct {
	id       string
	closeErr error
	panics   bool
	closed   int32
}

func (n *closeTrackingNode) ID() string                            { return n.id }
func (n *closeTrackingNode) Input() node.PortType                  { return node.PortText }
func (n *closeTrackingNode) Output() node.PortType                 { return node.PortText }
func (n *closeTrackingNode) Open(ctx context.Context) (node.Result, error) { return node.Result{}, nil }
func (n *closeTrackingNode) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	return nil, nil
}

func (n *closeTrackingNode) Close(ctx context.Context) (node.Result, error) {
	atomic.AddInt32(&n.closed, 1)
	if n.panics {
		panic("boom")
	}
	return node.Result{}, n.closeErr
}

type fakeControl struct {
	shutdownCalled bool
	err            error
}

func (f *fakeControl) Shutdown(ctx context.Context) error {
	f.shutdownCalled = true
	return f.err
}

type fakePipe struct {
	closed int32
}

func (p *fakePipe) Close() { atomic.AddInt32(&p.closed, 1) }

func TestShutdownClosesControlPipesAndNodes(t *testing.T) {
	ctrl := &fakeControl{}
	n1 := &closeTrackingNode{id: "n1"}
	n2 := &closeTrackingNode{id: "n2"}
	p1 := &fakePipe{}

	o := New(ctrl, []node.Node{n1, n2}, []PipeCloser{p1})
	code := o.Shutdown(context.Background(), ExitFinished)

	assert.Equal(t, ExitFinished, code)
	assert.True(t, ctrl.shutdownCalled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p1.closed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&n1.closed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&n2.closed))
}

func TestShutdownIsIdempotent(t *testing.T) {
	ctrl := &fakeControl{}
	n1 := &closeTrackingNode{id: "n1"}

	o := New(ctrl, []node.Node{n1}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Shutdown(context.Background(), ExitSignal)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&n1.closed))
}

func TestShutdownShieldsPanickingClose(t *testing.T) {
	ctrl := &fakeControl{}
	n1 := &closeTrackingNode{id: "n1", panics: true}
	n2 := &closeTrackingNode{id: "n2"}

	o := New(ctrl, []node.Node{n1, n2}, nil)

	assert.NotPanics(t, func() {
		o.Shutdown(context.Background(), ExitFinished)
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&n2.closed), "later nodes must still be closed")
}

func TestShutdownLogsCloseErrorButContinues(t *testing.T) {
	ctrl := &fakeControl{}
	n1 := &closeTrackingNode{id: "n1", closeErr: errors.New("disk full")}
	n2 := &closeTrackingNode{id: "n2"}

	o := New(ctrl, []node.Node{n1, n2}, nil)
	o.Shutdown(context.Background(), ExitFinished)

	assert.Equal(t, int32(1), atomic.LoadInt32(&n1.closed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&n2.closed))
}

func TestShutdownReturnsFirstExitCode(t *testing.T) {
	o := New(&fakeControl{}, nil, nil)

	code1 := o.Shutdown(context.Background(), ExitSignal)
	code2 := o.Shutdown(context.Background(), ExitFinished)

	require.Equal(t, code1, code2)
	assert.Equal(t, ExitSignal, code2)
}
