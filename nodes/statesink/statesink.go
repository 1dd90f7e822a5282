// Package statesink mirrors a sidechain bus's scalar events into Redis
// (spec §2 domain table: a durable/multi-process projection, not engine
// state restoration — spec §1's Non-goals exclude persistent state across
// runs). Grounded on PromptKit's runtime/statestore.RedisStore: a thin
// client wrapper using Set/Publish, JSON-serialized values, key prefixing.
package statesink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/sidechain"
)

// Node subscribes to a named sidechain bus at Open and mirrors every event
// onto a Redis key (latest value, with TTL) and a pub/sub channel (for
// other processes watching in real time). It has no chunk ports of its own
// (spec §4.3's optional-everything shape: a node may be pure sidechain).
type Node struct {
	node.BaseNode

	client  *redis.Client
	busName string
	prefix  string
	ttl     time.Duration

	unsubscribe func()
}

// Option configures a Node.
type Option func(*Node)

// WithPrefix sets the Redis key prefix (default "speechflow").
func WithPrefix(prefix string) Option {
	return func(n *Node) { n.prefix = prefix }
}

// WithTTL sets the TTL applied to mirrored keys (default 1 hour, 0 disables
// expiry).
func WithTTL(ttl time.Duration) Option {
	return func(n *Node) { n.ttl = ttl }
}

// New constructs a statesink node mirroring busName onto client.
func New(id string, h node.EngineHandle, client *redis.Client, busName string, opts ...Option) *Node {
	n := &Node{client: client, busName: busName, prefix: "speechflow", ttl: time.Hour}
	n.BaseNode = node.NewBaseNode(id, node.PortNone, node.PortNone, h)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Open subscribes to the sidechain bus and starts mirroring its events.
func (n *Node) Open(ctx context.Context) (node.Result, error) {
	bus := n.Handle().Bus(n.busName)
	n.unsubscribe = bus.Subscribe(func(e sidechain.Event) {
		n.mirror(context.Background(), e)
	})
	return node.Result{}, nil
}

// Close unsubscribes from the bus; the Redis client's lifetime is owned by
// the caller that constructed it.
func (n *Node) Close(ctx context.Context) (node.Result, error) {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
	return node.Result{}, nil
}

// Process is a no-op: this node has no chunk ports, only the sidechain
// subscription installed at Open.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	return nil, nil
}

func (n *Node) mirror(ctx context.Context, e sidechain.Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		n.Log(slog.LevelWarn, "statesink: marshal failed", "error", err)
		return
	}

	key := n.key(e)
	pipe := n.client.Pipeline()
	pipe.Set(ctx, key, data, n.ttl)
	pipe.Publish(ctx, n.channel(), data)
	if _, err := pipe.Exec(ctx); err != nil {
		n.Log(slog.LevelWarn, "statesink: redis pipeline failed", "error", err)
	}
}

func (n *Node) key(e sidechain.Event) string {
	return fmt.Sprintf("%s:sidechain:%s:%s", n.prefix, n.busName, e.Node)
}

func (n *Node) channel() string {
	return fmt.Sprintf("%s:sidechain:%s", n.prefix, n.busName)
}
