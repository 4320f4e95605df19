package typewriter

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramesShortText(t *testing.T) {
	assert.Equal(t, []string{"a", "a b", "a bb"}, slices.Collect(Frames("a bb")))
}

func TestFramesNormalizesWhitespace(t *testing.T) {
	assert.Equal(t,
		[]string{"h", "hi", "hi t", "hi th", "hi the", "hi ther", "hi there"},
		slices.Collect(Frames("  hi \n\tthere ")))
}

func TestFramesEmpty(t *testing.T) {
	assert.Empty(t, slices.Collect(Frames("")))
	assert.Empty(t, slices.Collect(Frames("   ")))
}

func TestFramesMultibyte(t *testing.T) {
	assert.Equal(t, []string{"é", "ét", "été"}, slices.Collect(Frames("été")))
	assert.Equal(t, []string{"ж", "жу", "жу к"}, slices.Collect(Frames("жу к")))
}

func TestFramesRestartable(t *testing.T) {
	seq := Frames("ab")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "ab"}, first)
}

func TestFramesStopEarly(t *testing.T) {
	var got []string
	for frame := range Frames("one two three") {
		got = append(got, frame)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"o", "on"}, got)
}

func TestCursorFinishedStaysFinished(t *testing.T) {
	c := New("ok")
	require.False(t, c.Done())

	frame, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "o", frame)

	frame, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "ok", frame)
	assert.True(t, c.Done())

	for i := 0; i < 3; i++ {
		frame, ok = c.Next()
		assert.False(t, ok)
		assert.Empty(t, frame)
	}
}

func TestCursorProgressIsMonotonic(t *testing.T) {
	c := New("the quick brown fox")
	lastWord, lastChar := 0, 0
	for {
		_, ok := c.Next()
		if !ok {
			break
		}
		w, ch, count := c.Progress()
		assert.Equal(t, 4, count)
		if w == lastWord {
			assert.Greater(t, ch, lastChar)
		} else {
			assert.Greater(t, w, lastWord)
		}
		lastWord, lastChar = w, ch
	}
	w, _, count := c.Progress()
	assert.Equal(t, count, w)
}
