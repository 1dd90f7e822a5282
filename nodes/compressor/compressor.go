// Package compressor wraps dsp/compressor as an audio -> audio node, in
// two modes (spec §8 scenario S6): "measure" runs the compressor and
// publishes its reduction meter on a named sidechain bus; "adjust" applies
// an externally supplied reduction value (received over that same bus)
// instead of computing its own envelope, coupling two otherwise
// independent audio paths.
package compressor

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/speechflow/engine/chunk"
	dsp "github.com/speechflow/engine/dsp/compressor"
	"github.com/speechflow/engine/node"
	"github.com/speechflow/engine/sidechain"
)

// Mode selects whether this node drives or follows the sidechain bus.
type Mode int

const (
	// Measure runs the compressor's own envelope and publishes its
	// reduction meter.
	Measure Mode = iota
	// Adjust applies the most recently received reduction value instead of
	// computing its own envelope.
	Adjust
)

// Node is the audio->audio compressor/expander node.
type Node struct {
	node.BaseNode

	mode     Mode
	busName  string
	core     *dsp.Processor
	channels int

	lastReduction float64
	unsubscribe   func()
}

// New constructs a compressor node. busName names the sidechain bus the
// measure side publishes on and the adjust side subscribes to.
func New(id string, h node.EngineHandle, cfg dsp.Config, channels int, mode Mode, busName string) *Node {
	n := &Node{
		mode:     mode,
		busName:  busName,
		core:     dsp.New(cfg, channels),
		channels: channels,
	}
	n.BaseNode = node.NewBaseNode(id, node.PortAudio, node.PortAudio, h)
	return n
}

func (n *Node) Open(ctx context.Context) (node.Result, error) {
	if n.mode == Adjust {
		bus := n.Handle().Bus(n.busName)
		n.unsubscribe = bus.Subscribe(func(e sidechain.Event) {
			if v, ok := e.Data.(float64); ok {
				n.lastReduction = v
			}
		})
	}
	return node.Result{}, nil
}

func (n *Node) Close(ctx context.Context) (node.Result, error) {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
	return node.Result{}, nil
}

// Process runs the compressor core in Measure mode (publishing its
// reduction meter afterward), or applies the last received reduction
// value directly to the payload in Adjust mode.
func (n *Node) Process(ctx context.Context, in *chunk.Chunk) ([]*chunk.Chunk, error) {
	if in == nil {
		return nil, nil
	}

	out := in.Clone()
	samples := decodePCM16LE(out.Payload)

	switch n.mode {
	case Measure:
		n.core.Process(samples, n.channels)
		encodePCM16LE(out.Payload, samples)
		n.Handle().Bus(n.busName).Publish(sidechain.Event{
			Name: "sidechain-decibel",
			Node: n.ID(),
			Data: n.core.ReductionMeter,
		})
	case Adjust:
		linear := math.Pow(10, n.lastReduction/20)
		for i, s := range samples {
			samples[i] = float32(float64(s) * linear)
		}
		encodePCM16LE(out.Payload, samples)
	}

	return []*chunk.Chunk{out}, nil
}

func decodePCM16LE(payload []byte) []float32 {
	n := len(payload) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(payload[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

func encodePCM16LE(dst []byte, samples []float32) {
	for i, s := range samples {
		v := int16(math.Max(-32768, math.Min(32767, float64(s)*32768.0)))
		binary.LittleEndian.PutUint16(dst[i*2:i*2+2], uint16(v))
	}
}
