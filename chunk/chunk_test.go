package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Duration
		end     time.Duration
		wantErr bool
	}{
		{"equal span is valid", 100 * time.Millisecond, 100 * time.Millisecond, false},
		{"ordered span is valid", 0, 200 * time.Millisecond, false},
		{"inverted span is invalid", 200 * time.Millisecond, 100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewText(tt.start, tt.end, "x")
			err := c.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvertedSpan)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClone(t *testing.T) {
	original := NewAudio(0, time.Second, []byte{1, 2, 3})
	original.Meta.Set("gender", "female")

	clone := original.Clone()
	clone.Payload[0] = 9
	clone.Meta.Set("gender", "male")

	assert.Equal(t, byte(1), original.Payload[0], "clone must not alias the original payload")
	genderOrig, _ := original.Meta.Get("gender")
	assert.Equal(t, "female", genderOrig, "clone must not alias the original meta")

	assert.Equal(t, original.TimestampStart, clone.TimestampStart)
	assert.Equal(t, original.TimestampEnd, clone.TimestampEnd)
}

func TestDuration(t *testing.T) {
	c := NewAudio(time.Second, 3*time.Second, nil)
	assert.Equal(t, 2*time.Second, c.Duration())
}

func TestMetaMergeLastWriterWins(t *testing.T) {
	a := NewMeta()
	a.Set("gender", "female")
	a.Set("confidence", 0.5)

	b := NewMeta()
	b.Set("gender", "male")
	b.Set("words", []string{"hi"})

	a.Merge(b)

	gender, _ := a.Get("gender")
	assert.Equal(t, "male", gender)
	words, ok := a.Get("words")
	require.True(t, ok)
	assert.Equal(t, []string{"hi"}, words)

	// Original insertion order of "gender" and "confidence" is preserved;
	// "words" is appended.
	assert.Equal(t, []string{"gender", "confidence", "words"}, a.Keys())
}

func TestMetaDelete(t *testing.T) {
	m := NewMeta()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Delete("a")

	assert.Equal(t, []string{"b"}, m.Keys())
	_, ok := m.Get("a")
	assert.False(t, ok)
}

// TestNonDecreasingFinalOrder exercises spec §8 invariant 1: for any two
// Final chunks c1 delivered before c2 on the same edge,
// c1.TimestampStart <= c2.TimestampStart.
func TestNonDecreasingFinalOrder(t *testing.T) {
	c1 := NewText(0, 100*time.Millisecond, "a")
	c2 := NewText(100*time.Millisecond, 200*time.Millisecond, "b")

	require.Equal(t, Final, c1.Kind)
	require.Equal(t, Final, c2.Kind)
	assert.LessOrEqual(t, c1.TimestampStart, c2.TimestampStart)
}
