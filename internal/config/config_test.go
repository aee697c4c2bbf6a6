package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "ibmlogd.yaml", `
log_level: debug
persist_dir: /tmp/errors
policy:
  path: /etc/policy.yaml
  default_eid: BMC0001
transport:
  backend: memory
  redis:
    db: 3
mcp:
  transport: sse
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/errors", cfg.PersistDir)
	assert.Equal(t, "/etc/policy.yaml", cfg.Policy.Path)
	assert.Equal(t, "BMC0001", cfg.Policy.DefaultEID)
	assert.Empty(t, cfg.Policy.DefaultMsg)
	assert.Equal(t, BackendMemory, cfg.Transport.Backend)
	assert.Equal(t, 3, cfg.Transport.Redis.DB)
	assert.Equal(t, DefaultRedisAddr, cfg.Transport.Redis.Addr, "unset nested fields keep defaults")
	assert.Equal(t, TransportSSE, cfg.MCP.Transport)
	assert.Equal(t, DefaultMCPPort, cfg.MCP.Port)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "ibmlogd.json", `{"http": {"addr": ":9090"}, "transport": {"redis": {"prefix": "bmc:"}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "bmc:", cfg.Transport.Redis.Prefix)
	assert.Equal(t, BackendRedis, cfg.Transport.Backend)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad yaml", "c.yaml", "log_level: [unterminated"},
		{"bad json", "c.json", "{"},
		{"unknown backend", "c.yaml", "transport:\n  backend: dbus\n"},
		{"unknown mcp transport", "c.yaml", "mcp:\n  transport: websocket\n"},
		{"empty persist dir", "c.yaml", "persist_dir: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}
