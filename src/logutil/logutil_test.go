package logutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedactKey(t *testing.T) {
	assert.Equal(t, "********", RedactKey(""))
	assert.Equal(t, "********", RedactKey("sk-12345"))
	assert.Equal(t, "sk-a...wxyz", RedactKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestSetupWritesFileLog(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	file := filepath.Join(t.TempDir(), "nested", "glass.log")
	log, flush := Setup(Options{EnableFile: true, File: file})
	log.Debugw("Debug line", "session", "abc")
	log.Infow("Notification shown", "chars", 11)
	flush()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Notification shown"`)
	assert.Contains(t, string(data), `"chars":11`)
	assert.Contains(t, string(data), `"session":"abc"`)
}

func TestSetupWithoutFile(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	dir := t.TempDir()
	log, flush := Setup(Options{File: filepath.Join(dir, "unused.log")})
	log.Infow("not written anywhere")
	flush()

	_, err := os.Stat(filepath.Join(dir, "unused.log"))
	assert.True(t, os.IsNotExist(err))
}
