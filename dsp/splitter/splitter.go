// Package splitter implements the multi-cursor sentence splitter (spec
// §4.10a): a text -> text node with optional interim preview, built on
// streamutil.MultiCursorQueue's recv/split/send cursor triple.
package splitter

import (
	"regexp"
	"strings"
	"time"

	"github.com/speechflow/engine/chunk"
	"github.com/speechflow/engine/streamutil"
)

// sentenceBoundary matches a sentence-terminated prefix with an optional
// trailing remainder (spec §4.10a).
var sentenceBoundary = regexp.MustCompile(`^(.+?[.;?!])(?:\s+(.*))?$`)

// frame is the splitter's queue element: a chunk plus its completion and
// preview state. Every field is read and written exclusively from the
// single goroutine that calls process()/Read()/Poll() in sequence (the
// executor's per-node loop serializes Process and Tick), so frame needs no
// lock of its own.
type frame struct {
	chunk    *chunk.Chunk
	complete bool
	preview  previewState // "" | pending | sent
	eof      bool

	// previewSentAt records when preview was set to previewSent, so a later
	// process() call can promote it to complete once PromotionTimeout has
	// elapsed, with no background timer involved.
	previewSentAt time.Time
}

type previewState int

const (
	previewNone previewState = iota
	previewPending
	previewSent
)

// Config controls the splitter's behavior.
type Config struct {
	// PreserveInterimOnMerge keeps an in-flight interim preview's content
	// visible across a merge instead of dropping it (resolves spec §9's
	// first Open Question; default false matches the historical "sometimes
	// loses the intermediate" behavior).
	PreserveInterimOnMerge bool
	// InterimEnabled turns on intermediate-preview emission on the read side.
	InterimEnabled bool
	// PromotionTimeout is how long a sent preview waits before being
	// promoted to final if still incomplete.
	PromotionTimeout time.Duration
}

// DefaultConfig matches the spec's defaults.
func DefaultConfig() Config {
	return Config{
		PreserveInterimOnMerge: false,
		InterimEnabled:         true,
		PromotionTimeout:       500 * time.Millisecond,
	}
}

// Splitter is the stateful DSP core; nodes/splitter wraps this as a
// node.Node.
type Splitter struct {
	cfg Config
	q   *streamutil.MultiCursorQueue[*frame]
}

// New constructs a splitter with the given configuration.
func New(cfg Config) *Splitter {
	return &Splitter{
		cfg: cfg,
		q:   streamutil.NewMultiCursorQueue[*frame]("recv", "split", "send"),
	}
}

// Write ingests a final chunk on the recv side.
func (s *Splitter) Write(c *chunk.Chunk) {
	s.q.Append(&frame{chunk: c})
	s.process()
}

// WriteEOF ingests the end-of-stream sentinel.
func (s *Splitter) WriteEOF() {
	s.q.Append(&frame{eof: true})
	s.process()
}

// process runs the processing loop once (spec §4.10a: "runs whenever the
// queue is written and on a 100ms retry timer"). The retry cadence is
// driven by nodes/splitter's node.Ticker implementation, which calls Poll
// (and so this method) on that interval via the executor's per-node loop;
// each pass also promotes any previewSent frame whose PromotionTimeout has
// elapsed, which is how a sent preview with no further input eventually
// becomes final.
func (s *Splitter) process() {
	for {
		f, ok := s.q.Peek("split", 0)
		if !ok {
			return
		}
		if f.preview == previewSent && !f.complete && time.Since(f.previewSentAt) >= s.cfg.PromotionTimeout {
			f.complete = true
		}
		if f.complete {
			s.q.Walk("split", 1)
			continue
		}
		if f.eof {
			s.q.Walk("split", 1)
			return
		}
		if !s.processOne(f) {
			return
		}
	}
}

// Poll re-runs the processing loop with no new input and drains whatever
// became ready, the core's half of nodes/splitter's periodic Tick.
func (s *Splitter) Poll() []*chunk.Chunk {
	s.process()
	return s.Read()
}

// processOne attempts to advance the split cursor past f. Returns false if
// no progress can currently be made (waiting for more input).
func (s *Splitter) processOne(f *frame) bool {
	payload := f.chunk.TextString()
	m := sentenceBoundary.FindStringSubmatch(payload)

	if m == nil {
		return s.mergeIntoNext(f)
	}

	sentence := m[1]
	remainder := ""
	if len(m) > 2 {
		remainder = m[2]
	}

	if remainder == "" {
		f.complete = true
		s.q.Walk("split", 1)
		return true
	}

	s.splitFrame(f, sentence, remainder)
	return true
}

// splitFrame divides f into a complete sentence chunk and a remainder
// chunk, proportionally reassigning (start,end) by payload length ratio
// (spec §4.10a).
func (s *Splitter) splitFrame(f *frame, sentence, remainder string) {
	total := len(sentence) + len(remainder)
	if total == 0 {
		total = 1
	}
	span := f.chunk.Duration()
	sentenceDur := span * time.Duration(len(sentence)) / time.Duration(total)

	first := &chunk.Chunk{
		TimestampStart: f.chunk.TimestampStart,
		TimestampEnd:   f.chunk.TimestampStart + sentenceDur,
		Kind:           chunk.Final,
		Type:           chunk.Text,
		Payload:        []byte(sentence),
		Meta:           f.chunk.Meta.Clone(),
	}
	rest := &chunk.Chunk{
		TimestampStart: first.TimestampEnd,
		TimestampEnd:   f.chunk.TimestampEnd,
		Kind:           chunk.Final,
		Type:           chunk.Text,
		Payload:        []byte(remainder),
		Meta:           chunk.NewMeta(),
	}

	pos := s.q.Position("split")
	f.chunk = first
	f.complete = true
	s.q.Touch()
	s.q.Insert(pos+1, &frame{chunk: rest})
	s.q.Walk("split", 1)
}

// mergeIntoNext concatenates f's payload with the next frame's, inheriting
// the earliest start and clearing preview state on the merged target. If
// the next frame is the end-of-stream sentinel, nothing will ever arrive to
// merge with, so f is completed as-is instead of waiting (spec §4.10a's
// flush-on-EOF). If there is no next frame at all yet, f is marked
// preview=pending and processing stops until more input or a promotion
// timeout (node.Ticker-driven, see process) resolves it.
func (s *Splitter) mergeIntoNext(f *frame) bool {
	pos := s.q.Position("split")
	next, ok := s.q.Peek("split", 1)
	if ok && next.eof {
		f.complete = true
		return true
	}
	if !ok {
		if f.preview != previewPending {
			f.preview = previewPending
			s.q.Touch()
		}
		return false
	}

	merged := separatingJoin(f.chunk.TextString(), next.chunk.TextString())
	next.chunk = &chunk.Chunk{
		TimestampStart: f.chunk.TimestampStart,
		TimestampEnd:   next.chunk.TimestampEnd,
		Kind:           chunk.Final,
		Type:           chunk.Text,
		Payload:        []byte(merged),
		Meta:           f.chunk.Meta.Clone(),
	}
	if !s.cfg.PreserveInterimOnMerge {
		next.preview = previewNone
	}

	s.q.Delete(pos, pos+1)
	return true
}

func separatingJoin(a, b string) string {
	if a == "" {
		return b
	}
	if strings.HasSuffix(a, " ") || strings.HasPrefix(b, " ") || b == "" {
		return a + b
	}
	return a + " " + b
}

// Read drains every consecutive complete chunk from the send cursor, plus
// (if interim mode is enabled) one intermediate preview of the next
// not-yet-complete frame.
func (s *Splitter) Read() []*chunk.Chunk {
	var out []*chunk.Chunk
	for {
		f, ok := s.q.Peek("send", 0)
		if !ok || f.eof || !f.complete {
			break
		}
		s.q.Read("send")
		out = append(out, f.chunk)
	}

	if s.cfg.InterimEnabled {
		if f, ok := s.q.Peek("send", 0); ok && !f.eof && !f.complete && f.preview == previewPending {
			preview := f.chunk.Clone()
			preview.Kind = chunk.Intermediate
			out = append(out, preview)
			f.preview = previewSent
			f.previewSentAt = time.Now()
		}
	}

	s.q.Trim()
	return out
}
