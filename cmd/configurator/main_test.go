package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bodies struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (b *bodies) record(r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[r.URL.Path] = data
}

func (b *bodies) get(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.m[path])
}

func fakeDevice(t *testing.T) (*httptest.Server, *bodies) {
	t.Helper()
	posted := &bodies{m: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted.record(r)
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte(`{"network":false,"authorization":{"server":"https://my.farm.bot"},"configuration":{"os_auto_update":false,"firmware_hardware":"arduino"},"hardware":{"custom_firmware":false,"params":{}}}`))
	})
	mux.HandleFunc("/api/last_factory_reset_reason", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"none"`))
	})
	mux.HandleFunc("/api/network/interfaces", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["eth0","wlan0"]`))
	})
	mux.HandleFunc("/api/network/scan", func(w http.ResponseWriter, r *http.Request) {
		posted.record(r)
		_, _ = w.Write([]byte(`["farm"]`))
	})
	mux.HandleFunc("/api/factory_reset", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, posted
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := buildRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand(t *testing.T) {
	srv, _ := fakeDevice(t)
	t.Setenv("CONFIGURATOR_DEVICE_URL", srv.URL)

	out, err := run(t, "config")
	require.NoError(t, err)

	var view struct {
		Connection             string         `json:"connection"`
		Configuration          map[string]any `json:"configuration"`
		LastFactoryResetReason string         `json:"last_factory_reset_reason"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "connected", view.Connection)
	assert.Equal(t, false, view.Configuration["network"])
	assert.Equal(t, "none", view.LastFactoryResetReason)
}

func TestUploadCommand(t *testing.T) {
	srv, posted := fakeDevice(t)
	t.Setenv("CONFIGURATOR_DEVICE_URL", srv.URL)

	file := filepath.Join(t.TempDir(), "device.json")
	body := `{"network":{"ntp":true,"ssh":false,"interfaces":{}},"authorization":{"server":"x"},"configuration":{"os_auto_update":true,"firmware_hardware":"farmduino"},"hardware":{"custom_firmware":true,"params":{}}}`
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))

	out, err := run(t, "upload", file)
	require.NoError(t, err)
	assert.JSONEq(t, body, posted.get("/api/config"))
	assert.Contains(t, out, `"farmduino"`)
}

func TestInterfacesAndScanCommands(t *testing.T) {
	srv, posted := fakeDevice(t)
	t.Setenv("CONFIGURATOR_DEVICE_URL", srv.URL)

	out, err := run(t, "interfaces")
	require.NoError(t, err)
	assert.JSONEq(t, `["eth0","wlan0"]`, out)

	out, err = run(t, "scan", "wlan0")
	require.NoError(t, err)
	assert.JSONEq(t, `["farm"]`, out)
	assert.JSONEq(t, `{"iface":"wlan0"}`, posted.get("/api/network/scan"))
}

func TestFactoryResetNeedsConfirmation(t *testing.T) {
	srv, _ := fakeDevice(t)
	t.Setenv("CONFIGURATOR_DEVICE_URL", srv.URL)

	_, err := run(t, "factory-reset")
	assert.Error(t, err)

	out, err := run(t, "factory-reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "factory reset requested")
}

func TestBadOptionsFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "interfaces")
	assert.Error(t, err)
}
