package splitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speechflow/engine/chunk"
)

func TestSplitterEmitsCompleteSentenceImmediately(t *testing.T) {
	s := New(DefaultConfig())
	s.Write(chunk.NewText(0, 100*time.Millisecond, "Hello world."))

	out := s.Read()
	require.Len(t, out, 1)
	assert.Equal(t, "Hello world.", out[0].TextString())
	assert.Equal(t, chunk.Final, out[0].Kind)
}

func TestSplitterSplitsSentenceFromRemainder(t *testing.T) {
	s := New(DefaultConfig())
	s.Write(chunk.NewText(0, 100*time.Millisecond, "Hello world. How are you"))

	// Interim mode is on by default, so the pending remainder follows the
	// sentence as an intermediate preview.
	out := s.Read()
	require.Len(t, out, 2)
	assert.Equal(t, "Hello world.", out[0].TextString())
	assert.Equal(t, chunk.Intermediate, out[1].Kind)
}

func TestSplitterMergesWhenNoBoundaryAndNextFrameAvailable(t *testing.T) {
	s := New(DefaultConfig())
	s.Write(chunk.NewText(0, 50*time.Millisecond, "Hello"))
	s.Write(chunk.NewText(50*time.Millisecond, 100*time.Millisecond, " world."))

	out := s.Read()
	require.Len(t, out, 1)
	assert.Equal(t, "Hello world.", out[0].TextString())
}

func TestSplitterEmitsPreviewWhenPendingAndInterimEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PromotionTimeout = 10 * time.Millisecond
	s := New(cfg)
	s.Write(chunk.NewText(0, 50*time.Millisecond, "no boundary here"))

	out := s.Read()
	require.Len(t, out, 1)
	assert.Equal(t, chunk.Intermediate, out[0].Kind)
}

func TestSplitterPollPromotesPreviewAfterTimeoutWithNoFurtherInput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PromotionTimeout = 5 * time.Millisecond
	s := New(cfg)
	s.Write(chunk.NewText(0, 50*time.Millisecond, "no boundary here"))

	out := s.Read()
	require.Len(t, out, 1)
	assert.Equal(t, chunk.Intermediate, out[0].Kind)

	require.Eventually(t, func() bool {
		polled := s.Poll()
		return len(polled) == 1 && polled[0].Kind == chunk.Final
	}, time.Second, time.Millisecond)
}

func TestSplitterPreservesConcatenationInvariant(t *testing.T) {
	s := New(DefaultConfig())
	inputs := []string{"First sentence. ", "Second one. ", "Third."}
	var sent string
	for _, in := range inputs {
		sent += in
		s.Write(chunk.NewText(0, 10*time.Millisecond, in))
	}
	s.WriteEOF()

	var got string
	for _, c := range s.Read() {
		got += c.TextString()
	}

	// Whitespace is normalized at sentence boundaries: emitted sentences do
	// not carry the space that followed their terminator in the input.
	normalize := func(s string) string {
		out := ""
		prevSpace := false
		prevBoundary := false
		for _, r := range s {
			isSpace := r == ' '
			if isSpace && (prevSpace || prevBoundary) {
				continue
			}
			out += string(r)
			prevSpace = isSpace
			prevBoundary = r == '.' || r == ';' || r == '?' || r == '!'
		}
		return out
	}
	assert.Equal(t, normalize(sent), normalize(got))
}
