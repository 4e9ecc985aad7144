package configurator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionsDefaults(t *testing.T) {
	opts, err := LoadOptions("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().DeviceBaseURL, opts.DeviceBaseURL)
	assert.Equal(t, 10*time.Second, opts.RequestTimeout)
	assert.True(t, opts.StructuralScripts)
}

func TestLoadOptionsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configurator.yaml")
	content := `
device_base_url: http://device.local
socket_url: ws://device.local/ws
request_timeout: 3s
structural_scripts: false
dial:
  attempts: 5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIGURATOR_AUTHORIZATION", "Bearer abc")

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "http://device.local", opts.DeviceBaseURL)
	assert.Equal(t, "ws://device.local/ws", opts.SocketURL)
	assert.Equal(t, 3*time.Second, opts.RequestTimeout)
	assert.False(t, opts.StructuralScripts)
	assert.Equal(t, uint(5), opts.Dial.Attempts)
	assert.Equal(t, time.Second, opts.Dial.InitialDelay)
	assert.Equal(t, "debug", opts.Logging.Level)

	v, err := opts.Auth().AuthorizationValue()
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", v)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
