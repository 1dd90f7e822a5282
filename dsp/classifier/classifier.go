// Package classifier implements the sliding-window classifier queue (spec
// §4.10b): an audio -> audio node that tags chunks with a scalar label
// (e.g. gender) using a fixed-duration window with hysteresis, built on
// streamutil.MultiCursorQueue's recv/ac/send cursor triple.
package classifier

import (
	"math"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/streamutil"
)

const (
	windowSamples  = 8000 // 500ms at 16kHz
	fillThreshold  = 0.75
	assignFraction = 0.25
)

// frame is the classifier's queue element.
type frame struct {
	chunk  *chunk.Chunk
	data   []float32 // resampled F32@16kHz samples
	tagged bool
	eof    bool
}

// Classifier func computes a scalar label (and confidence) from a window of
// samples; Classifier implementations are provided by callers (e.g. a gender
// classifier model).
type Classifier func(window []float32) (label string, score float64, margin float64)

// Config controls hysteresis and silence gating.
type Config struct {
	// ScoreThreshold is the minimum score a transition must clear.
	ScoreThreshold float64
	// Margin is the minimum lead over any other label a transition must clear.
	Margin float64
	// SilenceFloorDBFS: below this input RMS, retain the previous label.
	SilenceFloorDBFS float64
}

// DefaultConfig matches common voice-classification defaults.
func DefaultConfig() Config {
	return Config{ScoreThreshold: 0.6, Margin: 0.15, SilenceFloorDBFS: -50}
}

// Queue is the stateful DSP core; nodes/classifier wraps this as a
// node.Node.
type Queue struct {
	cfg       Config
	classify  Classifier
	q         *streamutil.MultiCursorQueue[*frame]
	prevLabel string
	haveLabel bool
}

// New constructs a classifier queue using fn to score each window.
func New(cfg Config, fn Classifier) *Queue {
	return &Queue{
		cfg:      cfg,
		classify: fn,
		q:        streamutil.NewMultiCursorQueue[*frame]("recv", "ac", "send"),
	}
}

// Write ingests a PCM-S16LE@48kHz chunk, resampling it to F32@16kHz before
// appending (spec §4.10b ingest side).
func (q *Queue) Write(c *chunk.Chunk) {
	samples := DecodePCM16LE(c.Payload)
	resampled := CubicResample(samples, 48000, 16000)
	q.q.Append(&frame{chunk: c, data: resampled})
	q.process()
}

// WriteEOF ingests the audio-eof sentinel.
func (q *Queue) WriteEOF() {
	q.q.Append(&frame{eof: true})
	q.process()
}

// process runs the classify-side loop. It runs only from Write and
// WriteEOF; no timer re-runs it between writes.
func (q *Queue) process() {
	for {
		acquired, windowLen := q.accumulateWindow()
		if !acquired {
			return
		}

		window := make([]float32, 0, windowLen)
		frames := make([]*frame, 0)
		n := 0
		for n < windowLen {
			f, ok := q.q.Peek("ac", len(frames))
			if !ok {
				break
			}
			frames = append(frames, f)
			window = append(window, f.data...)
			n += len(f.data)
		}

		label := q.prevLabel
		if rms(window) >= dbfsToLinear(q.cfg.SilenceFloorDBFS) {
			candidate, score, margin := q.classify(window)
			if !q.haveLabel || (score >= q.cfg.ScoreThreshold && margin >= q.cfg.Margin) {
				label = candidate
				q.haveLabel = true
			}
		}
		q.prevLabel = label

		assignCount := int(float64(len(frames)) * assignFraction)
		if assignCount == 0 && len(frames) > 0 {
			assignCount = 1
		}
		for i := 0; i < assignCount; i++ {
			frames[i].chunk.Meta.Set("gender", label)
			frames[i].tagged = true
			q.q.Walk("ac", 1)
		}
	}
}

// accumulateWindow reports whether enough frames are buffered ahead of
// "ac" to exceed fillThreshold of windowSamples, or the window is complete.
// Once the eof sentinel is buffered, whatever frames remain ahead of it
// form the (possibly short) final window.
func (q *Queue) accumulateWindow() (ok bool, samples int) {
	total := 0
	i := 0
	for {
		f, peek := q.q.Peek("ac", i)
		if !peek {
			break
		}
		if f.eof {
			if total > 0 {
				return true, total
			}
			break
		}
		total += len(f.data)
		i++
		if total >= windowSamples {
			return true, total
		}
	}
	if float64(total) >= fillThreshold*windowSamples {
		return true, total
	}
	return false, 0
}

// Read emits every frame tagged since the last Read call, in order.
func (q *Queue) Read() []*chunk.Chunk {
	var out []*chunk.Chunk
	for {
		f, ok := q.q.Peek("send", 0)
		if !ok {
			break
		}
		if f.eof {
			q.q.Read("send")
			break
		}
		if !f.tagged {
			break
		}
		q.q.Read("send")
		out = append(out, f.chunk)
	}
	q.q.Trim()
	return out
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func dbfsToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
