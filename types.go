package configurator

import (
	"context"
	"time"
)

// FirmwareHardware names the motion controller board the device drives.
type FirmwareHardware string

const (
	FirmwareArduino   FirmwareHardware = "arduino"
	FirmwareFarmduino FirmwareHardware = "farmduino"
)

// Valid reports whether k is a known board kind.
func (k FirmwareHardware) Valid() bool {
	return k == FirmwareArduino || k == FirmwareFarmduino
}

// SSHKey is an authorized public key. The empty key means SSH is disabled
// and travels on the wire as false.
type SSHKey string

// InterfaceConfig is a device specific record for one network adapter.
// Its keys are opaque to this package.
type InterfaceConfig map[string]any

// NetworkConfig is the populated form of Configuration.Network.
type NetworkConfig struct {
	NTP        bool                       `json:"ntp"`
	SSH        SSHKey                     `json:"ssh"`
	Interfaces map[string]InterfaceConfig `json:"interfaces"`
}

// NewNetworkConfig returns an empty, enabled network section.
func NewNetworkConfig() *NetworkConfig {
	return &NetworkConfig{Interfaces: map[string]InterfaceConfig{}}
}

type Authorization struct {
	Server string `json:"server"`
}

type Settings struct {
	OSAutoUpdate     bool             `json:"os_auto_update"`
	FirmwareHardware FirmwareHardware `json:"firmware_hardware"`
}

type Hardware struct {
	CustomFirmware bool           `json:"custom_firmware"`
	Params         map[string]any `json:"params"`
}

// Configuration is the file the device boots from.
// A nil Network means networking is disabled; it is encoded as false.
type Configuration struct {
	Network       *NetworkConfig `json:"network"`
	Authorization Authorization  `json:"authorization"`
	Configuration Settings       `json:"configuration"`
	Hardware      Hardware       `json:"hardware"`
}

// DefaultConfiguration is the placeholder used until the device reports its own.
func DefaultConfiguration() Configuration {
	return Configuration{
		Authorization: Authorization{Server: ""},
		Configuration: Settings{OSAutoUpdate: false, FirmwareHardware: FirmwareArduino},
		Hardware:      Hardware{Params: map[string]any{}, CustomFirmware: false},
	}
}

type ProcessInfo struct {
	FarmEvents []any `json:"farm_events"`
	Regimens   []any `json:"regimens"`
	Farmwares  []any `json:"farmwares"`
}

// StatusSnapshot is a complete status record pushed by the device.
type StatusSnapshot struct {
	Location              [3]float64     `json:"location"`
	MCUParams             map[string]any `json:"mcu_params"`
	Configuration         map[string]any `json:"configuration"`
	InformationalSettings map[string]any `json:"informational_settings"`
	Pins                  map[string]any `json:"pins"`
	UserEnv               map[string]any `json:"user_env"`
	ProcessInfo           ProcessInfo    `json:"process_info"`
}

// DefaultStatus is the placeholder status shown before the first snapshot arrives.
func DefaultStatus() StatusSnapshot {
	return StatusSnapshot{
		Location:              [3]float64{-1, -2, -3},
		MCUParams:             map[string]any{},
		Configuration:         map[string]any{},
		InformationalSettings: map[string]any{},
		Pins:                  map[string]any{},
		UserEnv:               map[string]any{},
		ProcessInfo: ProcessInfo{
			FarmEvents: []any{},
			Regimens:   []any{},
			Farmwares:  []any{},
		},
	}
}

type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogBusy    LogType = "busy"
	LogWarn    LogType = "warn"
	LogError   LogType = "error"
	LogFun     LogType = "fun"
	LogDebug   LogType = "debug"
)

type LogMeta struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Type LogType `json:"type"`
}

type LogEntry struct {
	Meta      LogMeta  `json:"meta"`
	Message   string   `json:"message"`
	Channels  []string `json:"channels"`
	CreatedAt int64    `json:"created_at"`
}

// BootLog is the first entry of every session's log.
func BootLog() LogEntry {
	return LogEntry{
		Meta:      LogMeta{X: -1, Y: -2, Z: -3, Type: LogInfo},
		Message:   "Connecting to device.",
		Channels:  []string{},
		CreatedAt: 0,
	}
}

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type EventKind string

const (
	EventConnected     EventKind = "connected"
	EventDisconnected  EventKind = "disconnected"
	EventMessage       EventKind = "message"
	EventConfigChanged EventKind = "config"
	EventStatusChanged EventKind = "status"
	EventLogAppended   EventKind = "log"
	EventStateChanged  EventKind = "state"
)

type Event struct {
	Kind       EventKind   `json:"kind"`
	OccurredAt time.Time   `json:"occurredAt"`
	Source     string      `json:"source"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Frame is a raw message read from the device socket, carried as the
// payload of an EventMessage.
type Frame struct {
	Binary bool
	Data   []byte
}

type EventSubscription interface {
	C() <-chan Event
	Close() error
}

// Transport reaches the device API. Any returned error means the request failed.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}
