package configurator

import (
	"fmt"
	"os"
	"time"

	"github.com/xmidt-org/talaria/configurator/internal/logger"
	"gopkg.in/yaml.v3"
)

// AuthStrategy acquires an authorization header value (e.g., "Basic ..." or "Bearer ...").
type AuthStrategy interface {
	AuthorizationValue() (string, error)
}

// StaticAuth implements AuthStrategy using a pre-specified token value.
type StaticAuth struct{ Value string }

func (s StaticAuth) AuthorizationValue() (string, error) { return s.Value, nil }

// Options configures a configurator session and its outer surfaces.
type Options struct {
	DeviceBaseURL  string        `yaml:"device_base_url"`
	SocketURL      string        `yaml:"socket_url"`
	Authorization  string        `yaml:"authorization"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// InspectAddr is where the local state/metrics server listens.
	InspectAddr string `yaml:"inspect_addr"`

	// StructuralScripts enables recognition of instruction-tree payloads.
	StructuralScripts bool `yaml:"structural_scripts"`

	Dial DialConfig `yaml:"dial"`

	Logging logger.Config `yaml:"logging"`
}

// DialConfig bounds how the CLI establishes the inbound socket.
type DialConfig struct {
	Attempts     uint          `yaml:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// DefaultOptions gives baseline sensible defaults for local dev.
func DefaultOptions() Options {
	return Options{
		DeviceBaseURL:     "http://localhost:5000",
		SocketURL:         "ws://localhost:5000/ws",
		RequestTimeout:    10 * time.Second,
		InspectAddr:       ":8091",
		StructuralScripts: true,
		Dial: DialConfig{
			Attempts:     3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
		},
		Logging: logger.Config{Level: "info", Output: "stderr"},
	}
}

// Auth returns the configured authorization as an AuthStrategy.
func (o Options) Auth() AuthStrategy {
	return StaticAuth{Value: o.Authorization}
}

// LoadOptions reads a YAML file over DefaultOptions and applies environment
// overrides. An empty path skips the file.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("read options: %w", err)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("parse options %s: %w", path, err)
		}
	}
	opts.applyEnv()
	return opts, nil
}

func (o *Options) applyEnv() {
	if v := os.Getenv("CONFIGURATOR_DEVICE_URL"); v != "" {
		o.DeviceBaseURL = v
	}
	if v := os.Getenv("CONFIGURATOR_SOCKET_URL"); v != "" {
		o.SocketURL = v
	}
	if v := os.Getenv("CONFIGURATOR_AUTHORIZATION"); v != "" {
		o.Authorization = v
	}
	if v := os.Getenv("CONFIGURATOR_INSPECT_ADDR"); v != "" {
		o.InspectAddr = v
	}
	if v := os.Getenv("CONFIGURATOR_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			o.RequestTimeout = d
		}
	}
	if v := os.Getenv("CONFIGURATOR_LOG_LEVEL"); v != "" {
		o.Logging.Level = v
	}
}
