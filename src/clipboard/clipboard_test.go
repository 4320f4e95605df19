package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteRejectsEmptyText(t *testing.T) {
	assert.ErrorContains(t, Write("  "), "nothing to copy")
}

func TestWrite(t *testing.T) {
	if err := Init(); err != nil {
		t.Skipf("clipboard unavailable: %v", err)
	}
	assert.NoError(t, Write("test text"))
}
