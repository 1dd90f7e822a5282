// Package metrics provides Prometheus metrics for node and pipeline
// execution, grounded on PromptKit's runtime/metrics/prometheus package:
// namespaced vectors registered once at package init, a NodeRecorder facade
// handed to each node through its EngineHandle instead of raw prometheus
// calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "speechflow"

var (
	chunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Total number of chunks processed by a node",
		},
		[]string{"node", "direction", "status"}, // direction: in, out; status: ok, error
	)

	chunkLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_latency_seconds",
			Help:      "Time a node spends processing a single chunk",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Depth of a node's internal multi-cursor queue or buffer",
		},
		[]string{"node", "queue"},
	)

	nodesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_open",
			Help:      "Number of nodes currently in the opened/streaming state",
		},
	)
)

func init() {
	prometheus.MustRegister(chunksTotal, chunkLatency, queueDepth, nodesOpen)
}

// NodeRecorder is the narrow metrics facade a node receives through its
// EngineHandle (spec §9 design note: scoped handle, not a global).
type NodeRecorder struct {
	node string
}

// NewNodeRecorder returns a recorder scoped to the given node id.
func NewNodeRecorder(nodeID string) *NodeRecorder {
	return &NodeRecorder{node: nodeID}
}

// ChunkIn records an inbound chunk.
func (r *NodeRecorder) ChunkIn(ok bool) {
	chunksTotal.WithLabelValues(r.node, "in", status(ok)).Inc()
}

// ChunkOut records an outbound chunk.
func (r *NodeRecorder) ChunkOut(ok bool) {
	chunksTotal.WithLabelValues(r.node, "out", status(ok)).Inc()
}

// ObserveLatency records how long processing a single chunk took.
func (r *NodeRecorder) ObserveLatency(d time.Duration) {
	chunkLatency.WithLabelValues(r.node).Observe(d.Seconds())
}

// SetQueueDepth records the current depth of a named internal queue.
func (r *NodeRecorder) SetQueueDepth(queue string, depth int) {
	queueDepth.WithLabelValues(r.node, queue).Set(float64(depth))
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// NodeOpened increments the open-node gauge; call from the executor when a
// node completes Open.
func NodeOpened() { nodesOpen.Inc() }

// NodeClosed decrements the open-node gauge; call from the executor/
// shutdown orchestrator when a node completes Close.
func NodeClosed() { nodesOpen.Dec() }
