package runtimeinit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"glass-notify/src/config"
	"glass-notify/src/credential"
	"glass-notify/src/llm"
)

func setup(t *testing.T) string {
	t.Helper()
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	dir := t.TempDir()
	t.Setenv(config.EnvFileEnvVar, "")
	t.Setenv(config.APIKeyEnvVar, "")
	t.Setenv(config.APIKeyPathEnvVar, filepath.Join(dir, "missing_key"))
	t.Setenv("CREDENTIAL_FILE", filepath.Join(dir, "credentials.yaml"))
	t.Setenv("ENABLE_FILE_LOGGING", "false")
	return dir
}

func TestBootstrapUsesStoredCredential(t *testing.T) {
	dir := setup(t)
	require.NoError(t, credential.NewFileStore(filepath.Join(dir, "credentials.yaml")).Set("sk-stored"))

	rt, err := Bootstrap(Options{})
	require.NoError(t, err)
	defer rt.Flush()

	assert.Equal(t, "sk-stored", rt.Credential.Get())
	assert.Equal(t, filepath.Join(dir, "credentials.yaml"), rt.Store.Path())
	assert.IsType(t, &llm.Cached{}, rt.Fetcher)
}

func TestBootstrapEnvironmentKeyWins(t *testing.T) {
	dir := setup(t)
	require.NoError(t, credential.NewFileStore(filepath.Join(dir, "credentials.yaml")).Set("sk-stored"))
	t.Setenv(config.APIKeyEnvVar, "sk-env")
	t.Setenv("CACHE_TTL", "0")

	rt, err := Bootstrap(Options{})
	require.NoError(t, err)
	defer rt.Flush()

	assert.Equal(t, "sk-env", rt.Credential.Get())
	assert.Same(t, rt.Client, rt.Fetcher, "a zero cache TTL disables caching")
}

func TestBootstrapWithoutAnyKey(t *testing.T) {
	setup(t)

	rt, err := Bootstrap(Options{})
	require.NoError(t, err)
	defer rt.Flush()
	assert.Empty(t, rt.Credential.Get())
}

func TestBootstrapBadConfig(t *testing.T) {
	setup(t)
	t.Setenv("MAX_TOKENS", "many")

	_, err := Bootstrap(Options{})
	assert.ErrorContains(t, err, "failed to load configuration")
}
