package agentconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithRawAPIKey(t *testing.T) {
	t.Setenv("PULLCONF_SERVER_URL", "https://pullconf.internal:8443")
	t.Setenv("PULLCONF_API_KEY", "raw-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "raw-secret", cfg.APIKey)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
}

func TestLoad_WithAPIKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-key")
	require.NoError(t, os.WriteFile(path, []byte("file-secret\n"), 0o600))

	t.Setenv("PULLCONF_SERVER_URL", "https://pullconf.internal:8443")
	t.Setenv("PULLCONF_API_KEY_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.APIKey)
}

func TestLoad_MissingAPIKeyFails(t *testing.T) {
	t.Setenv("PULLCONF_SERVER_URL", "https://pullconf.internal:8443")
	_, err := Load("")
	require.Error(t, err)
}

func TestSanitize_RedactsAPIKey(t *testing.T) {
	cfg := Config{APIKey: "raw-secret"}
	assert.Equal(t, "[REDACTED]", cfg.Sanitize().APIKey)
	assert.Equal(t, "raw-secret", cfg.APIKey)
}
