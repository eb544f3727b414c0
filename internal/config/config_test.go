package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9090"
  base_url: "https://sho.rt"
db:
  driver: sqlite
  dsn: "file::memory:"
auth:
  jwt_secret: "0123456789abcdef0123"
shortlink:
  code_length: 8
  blocked_domains:
    - evil.example
ratelimit:
  requests: 20
  window: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFromFile(t *testing.T) {
	dir := writeConfig(t, sampleYAML)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://sho.rt", cfg.Server.BaseURL)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 8, cfg.ShortLink.CodeLength)
	assert.Equal(t, []string{"evil.example"}, cfg.ShortLink.BlockedDomains)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)

	// defaults
	assert.Equal(t, 5, cfg.ShortLink.MaxAttempts)
	assert.Equal(t, "*/10 * * * *", cfg.Stats.Cron)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Auth.AllowAnonymous)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, sampleYAML)
	t.Setenv("SHORTLINK_SERVER_BASE_URL", "https://override.example")
	t.Setenv("SHORTLINK_AUTH_ALLOW_ANONYMOUS", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example", cfg.Server.BaseURL)
	assert.True(t, cfg.Auth.AllowAnonymous)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing jwt secret",
			yaml: "db:\n  driver: sqlite\n  dsn: x\n",
		},
		{
			name: "unknown driver",
			yaml: "db:\n  driver: oracle\n  dsn: x\nauth:\n  jwt_secret: 0123456789abcdef\n",
		},
		{
			name: "code too short",
			yaml: "db:\n  driver: sqlite\n  dsn: x\nauth:\n  jwt_secret: 0123456789abcdef\nshortlink:\n  code_length: 3\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}
