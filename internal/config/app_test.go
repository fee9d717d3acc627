package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppConfig_Defaults(t *testing.T) {
	runtime := t.TempDir()
	t.Setenv("TUSKNET_RUNTIME_PATH", runtime)

	c, err := LoadAppConfig()
	require.NoError(t, err)

	assert.Equal(t, runtime, c.GetRuntimePath())
	assert.Equal(t, filepath.Join(runtime, "devices.yaml"), c.GetManifestPath())
	assert.Equal(t, filepath.Join(runtime, "tusknet.db"), c.GetDatabasePath())
	assert.Equal(t, 60*time.Second, c.GetCommandTimeout())
	assert.Equal(t, 10*time.Second, c.GetShutdownTimeout())
	assert.True(t, c.IsJournalEnabled())
	assert.False(t, c.IsHTTPTransport())
	assert.Empty(t, c.GetKnownHostsPath())
}

func TestLoadAppConfig_Overrides(t *testing.T) {
	t.Setenv("TUSKNET_RUNTIME_PATH", t.TempDir())
	t.Setenv("TUSKNET_MANIFEST", "/etc/tusknet/devices.yaml")
	t.Setenv("TUSKNET_TRANSPORT", "http")
	t.Setenv("TUSKNET_HTTP_ADDR", "0.0.0.0:9000")
	t.Setenv("TUSKNET_COMMAND_TIMEOUT", "2m")
	t.Setenv("TUSKNET_JOURNAL", "false")
	t.Setenv("TUSKNET_KNOWN_HOSTS", "/root/.ssh/known_hosts")

	c, err := LoadAppConfig()
	require.NoError(t, err)

	assert.Equal(t, "/etc/tusknet/devices.yaml", c.GetManifestPath())
	assert.True(t, c.IsHTTPTransport())
	assert.Equal(t, "0.0.0.0:9000", c.GetHTTPAddr())
	assert.Equal(t, 2*time.Minute, c.GetCommandTimeout())
	assert.False(t, c.IsJournalEnabled())
	assert.Equal(t, "/root/.ssh/known_hosts", c.GetKnownHostsPath())
}

func TestLoadAppConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown transport", "TUSKNET_TRANSPORT", "grpc"},
		{"zero timeout", "TUSKNET_COMMAND_TIMEOUT", "0s"},
		{"malformed timeout", "TUSKNET_COMMAND_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TUSKNET_RUNTIME_PATH", t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := LoadAppConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetRuntimePath_RelativeUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TUSKNET_RUNTIME_PATH", "custom")

	assert.Equal(t, filepath.Join(home, "custom"), GetRuntimePath())
	assert.Equal(t, filepath.Join(home, "custom", ".env"), GetEnvPath())
}
