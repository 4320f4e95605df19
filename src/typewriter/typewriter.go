// Package typewriter produces the incremental frames of a word-by-word,
// character-by-character text reveal.
package typewriter

import (
	"iter"
	"strings"
	"time"
)

// DefaultInterval is the delay between two frames in the notification.
const DefaultInterval = 20 * time.Millisecond

// Cursor walks the reveal of one text. Its position only moves forward.
type Cursor struct {
	words     [][]rune
	wordIndex int
	charIndex int
	done      []string
}

// New returns a cursor positioned before the first character of full.
// Words are separated by runs of whitespace and rejoined with single spaces.
func New(full string) *Cursor {
	fields := strings.Fields(full)
	words := make([][]rune, len(fields))
	for i, f := range fields {
		words[i] = []rune(f)
	}
	return &Cursor{words: words}
}

// Next returns the next frame. It returns false once the last character of the
// last word has been revealed, and keeps returning false afterwards.
func (c *Cursor) Next() (string, bool) {
	for c.wordIndex < len(c.words) && c.charIndex >= len(c.words[c.wordIndex]) {
		c.done = append(c.done, string(c.words[c.wordIndex]))
		c.wordIndex++
		c.charIndex = 0
	}
	if c.wordIndex >= len(c.words) {
		return "", false
	}

	c.charIndex++
	partial := string(c.words[c.wordIndex][:c.charIndex])
	if len(c.done) == 0 {
		return partial, true
	}
	return strings.Join(c.done, " ") + " " + partial, true
}

// Done reports whether every character has been revealed.
func (c *Cursor) Done() bool {
	if c.wordIndex >= len(c.words) {
		return true
	}
	return c.wordIndex == len(c.words)-1 && c.charIndex >= len(c.words[c.wordIndex])
}

// Progress returns the current word and character position.
func (c *Cursor) Progress() (wordIndex, charIndex, wordCount int) {
	return c.wordIndex, c.charIndex, len(c.words)
}

// Frames returns a lazy sequence over every frame of full. Each iteration
// starts from the beginning.
func Frames(full string) iter.Seq[string] {
	return func(yield func(string) bool) {
		c := New(full)
		for {
			frame, ok := c.Next()
			if !ok || !yield(frame) {
				return
			}
		}
	}
}
