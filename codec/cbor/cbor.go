// Package cbor implements the deterministic chunk envelope spec §4.4 names
// for cross-process transport (MQTT/WebSocket nodes): fields always encode
// in the same byte order so two processes observing the same chunk produce
// identical bytes, using fxamacker/cbor/v2's canonical (RFC 8949 core
// deterministic) encoding mode.
package cbor

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/speechflow/engine/chunk"
)

// envelope is the wire shape of a chunk: start_ms, end_ms, kind, type,
// payload, plus the ordered meta keys/values so a remote peer can
// reconstruct chunk.Meta without losing insertion order.
type envelope struct {
	StartMS    int64          `cbor:"start_ms"`
	EndMS      int64          `cbor:"end_ms"`
	Kind       int            `cbor:"kind"`
	Type       int            `cbor:"type"`
	Payload    []byte         `cbor:"payload"`
	MetaKeys   []string       `cbor:"meta_keys"`
	MetaValues map[string]any `cbor:"meta_values"`
}

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: building canonical encode mode: %v", err))
	}
	return mode
}()

// EncodeChunk serializes c into its deterministic CBOR envelope.
func EncodeChunk(c *chunk.Chunk) ([]byte, error) {
	env := envelope{
		StartMS: c.TimestampStart.Milliseconds(),
		EndMS:   c.TimestampEnd.Milliseconds(),
		Kind:    int(c.Kind),
		Type:    int(c.Type),
		Payload: c.Payload,
	}
	if c.Meta != nil {
		env.MetaKeys = c.Meta.Keys()
		env.MetaValues = make(map[string]any, len(env.MetaKeys))
		for _, k := range env.MetaKeys {
			v, _ := c.Meta.Get(k)
			env.MetaValues[k] = v
		}
	}

	out, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("cbor: encode chunk: %w", err)
	}
	return out, nil
}

// DecodeChunk reconstructs a chunk.Chunk from its CBOR envelope.
func DecodeChunk(data []byte) (*chunk.Chunk, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("cbor: decode chunk: %w", err)
	}

	meta := chunk.NewMeta()
	for _, k := range env.MetaKeys {
		meta.Set(k, env.MetaValues[k])
	}

	return &chunk.Chunk{
		TimestampStart: time.Duration(env.StartMS) * time.Millisecond,
		TimestampEnd:   time.Duration(env.EndMS) * time.Millisecond,
		Kind:           chunk.Kind(env.Kind),
		Type:           chunk.Type(env.Type),
		Payload:        env.Payload,
		Meta:           meta,
	}, nil
}
