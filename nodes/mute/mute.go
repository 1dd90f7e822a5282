// Package mute implements the external-command node for scenario S5:
// replaces its payload with zero bytes of the same length once muted, toggled by
// receive_request (spec §4.8).
package mute

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/errs"
	"github.com/speechflow/engine/node"
)

// Node passes audio or text through unchanged until muted, at which point
// every outgoing chunk has a zero-filled payload of the same length and
// meta["muted"]=true.
type Node struct {
	node.BaseNode

	portType node.PortType
	muted    atomic.Bool
	mu       sync.Mutex
}

// New constructs a mute node for the given port type (audio or text pass
// through as the same type, spec §4.3).
func New(id string, h node.EngineHandle, portType node.PortType) *Node {
	n := &Node{portType: portType}
	n.BaseNode = node.NewBaseNode(id, portType, portType, h)
	return n
}

func (n *Node) Open(ctx context.Context) (node.Result, error)  { return node.Result{}, nil }
func (n *Node) Close(ctx context.Context) (node.Result, error) { return node.Result{}, nil }

// Process passes in through, zeroing the payload and tagging meta once
// muted.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if in == nil {
		return nil, nil
	}
	if !n.muted.Load() {
		return []*chunk.Chunk{in}, nil
	}

	out := in.Clone()
	out.Payload = make([]byte, len(out.Payload))
	out.Meta.Set("muted", true)
	return []*chunk.Chunk{out}, nil
}

// ReceiveRequest implements node.RequestReceiver (spec §4.8): expects
// args == {"mode", "silenced"} to mute, {"mode", "live"} to unmute; any
// other args is rejected with an ExternalRequestErrorKind (mapped to HTTP
// 417 by control.Server).
func (n *Node) ReceiveRequest(ctx context.Context, args []any) (node.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(args) != 2 {
		return node.Result{}, &errs.ExternalRequestErrorKind{Reason: "node " + n.ID() + ": expected {mode, value}"}
	}
	mode, ok := args[0].(string)
	if !ok || mode != "mode" {
		return node.Result{}, &errs.ExternalRequestErrorKind{Reason: "node " + n.ID() + `: expected first argument "mode"`}
	}
	value, ok := args[1].(string)
	if !ok {
		return node.Result{}, &errs.ExternalRequestErrorKind{Reason: "node " + n.ID() + ": expected string value"}
	}

	switch value {
	case "silenced":
		n.muted.Store(true)
	case "live":
		n.muted.Store(false)
	default:
		return node.Result{}, &errs.ExternalRequestErrorKind{Reason: "node " + n.ID() + ": unknown mode value " + value}
	}
	return node.Result{Status: node.Status{"muted": n.muted.Load()}}, nil
}
