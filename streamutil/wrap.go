package streamutil

import (
	"io"
	"time"

	"github.com/speechflow/engine/chunk"
)

// SourceWrap converts a raw byte-stream reader into a chunk stream by
// framing bytes into fixed-size pieces (spec §4.4): audio frames are sized
// by `sample_rate * bytes_per_sample / (1000 / chunk_ms)`, text frames by a
// caller-supplied byte size. Each chunk is stamped `start = now - timeZero`,
// `end = start + duration(payload)`, `kind = final`.
type SourceWrap struct {
	r         io.Reader
	chunkType chunk.Type
	frameSize int
	sinceZero func() time.Duration // elapsed time since time-zero, injected for testability
	frameDur  func(n int) time.Duration
}

// NewAudioSourceWrap frames an audio byte reader into chunks of chunkMS
// duration given the engine's sample rate and bytes-per-sample.
func NewAudioSourceWrap(r io.Reader, sampleRate, bytesPerSample, chunkMS int, sinceZero func() time.Duration) *SourceWrap {
	frameSize := sampleRate * bytesPerSample * chunkMS / 1000
	if frameSize <= 0 {
		frameSize = 1
	}
	return &SourceWrap{
		r:         r,
		chunkType: chunk.Audio,
		frameSize: frameSize,
		sinceZero: sinceZero,
		frameDur: func(n int) time.Duration {
			bytesPerMS := sampleRate * bytesPerSample / 1000
			if bytesPerMS <= 0 {
				return 0
			}
			return time.Duration(n/bytesPerMS) * time.Millisecond
		},
	}
}

// NewTextSourceWrap frames a text byte reader into chunks of frameSize
// bytes.
func NewTextSourceWrap(r io.Reader, frameSize int, sinceZero func() time.Duration) *SourceWrap {
	if frameSize <= 0 {
		frameSize = 4096
	}
	return &SourceWrap{
		r:         r,
		chunkType: chunk.Text,
		frameSize: frameSize,
		sinceZero: sinceZero,
		frameDur:  func(n int) time.Duration { return 0 },
	}
}

// Next reads the next frame, returning io.EOF once the underlying reader is
// exhausted.
func (s *SourceWrap) Next() (*chunk.Chunk, error) {
	buf := make([]byte, s.frameSize)
	n, err := io.ReadFull(s.r, buf)
	if n == 0 {
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		buf = buf[:n]
		err = nil
	}
	if err != nil {
		return nil, err
	}

	start := s.sinceZero()
	end := start + s.frameDur(n)

	return &chunk.Chunk{
		TimestampStart: start,
		TimestampEnd:   end,
		Kind:           chunk.Final,
		Type:           s.chunkType,
		Payload:        buf,
		Meta:           chunk.NewMeta(),
	}, nil
}

// SinkWrap strips the chunk envelope down to raw payload bytes, writing
// them to w (spec §4.4 "strips the chunk envelope to raw payload bytes").
type SinkWrap struct {
	w io.Writer
}

// NewSinkWrap wraps an io.Writer as a chunk sink.
func NewSinkWrap(w io.Writer) *SinkWrap {
	return &SinkWrap{w: w}
}

// Write emits c's raw payload.
func (s *SinkWrap) Write(c *chunk.Chunk) error {
	_, err := s.w.Write(c.Payload)
	return err
}
