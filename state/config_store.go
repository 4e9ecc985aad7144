// Package state holds the authoritative configuration and status trees of a
// session. The stores are not safe for concurrent use; the session serializes
// every call.
package state

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/merge"
)

// ConfigStore owns the desired configuration. Every action either applies
// its full effect or leaves the tree untouched.
type ConfigStore struct {
	cfg configurator.Configuration
	log zerolog.Logger
}

func NewConfigStore(initial configurator.Configuration, log zerolog.Logger) *ConfigStore {
	return &ConfigStore{cfg: initial.Clone(), log: log}
}

// Config returns a deep copy of the current configuration.
func (s *ConfigStore) Config() configurator.Configuration {
	return s.cfg.Clone()
}

func (s *ConfigStore) NetworkEnabled() bool {
	return s.cfg.Network != nil
}

// ToggleNetwork disables an enabled network, or enables a disabled one with
// a fresh empty section. Interfaces do not survive an off/on cycle.
func (s *ConfigStore) ToggleNetwork() {
	if s.cfg.Network != nil {
		s.cfg.Network = nil
		s.log.Debug().Msg("network disabled")
		return
	}
	s.cfg.Network = configurator.NewNetworkConfig()
	s.log.Debug().Msg("network enabled")
}

// AddInterface inserts or wholesale overwrites an interface, enabling the
// network first when needed.
func (s *ConfigStore) AddInterface(name string, iface configurator.InterfaceConfig) {
	if s.cfg.Network == nil {
		s.cfg.Network = configurator.NewNetworkConfig()
	}
	if s.cfg.Network.Interfaces == nil {
		s.cfg.Network.Interfaces = map[string]configurator.InterfaceConfig{}
	}
	s.cfg.Network.Interfaces[name] = iface.Clone()
}

// UpdateInterface merges patch into the named interface. With networking
// disabled nothing changes and ErrNetworkDisabled is returned.
func (s *ConfigStore) UpdateInterface(name string, patch configurator.InterfaceConfig) error {
	if s.cfg.Network == nil {
		s.log.Warn().Str("iface", name).Msg("could not find interface: network disabled")
		return fmt.Errorf("update interface %s: %w", name, configurator.ErrNetworkDisabled)
	}
	if s.cfg.Network.Interfaces == nil {
		s.cfg.Network.Interfaces = map[string]configurator.InterfaceConfig{}
	}
	s.cfg.Network.Interfaces[name] = merge.MergeInterface(s.cfg.Network.Interfaces[name], patch)
	return nil
}

func (s *ConfigStore) EnableSSH(publicKey string) error {
	if s.cfg.Network == nil {
		s.log.Warn().Msg("ignoring ssh key: network disabled")
		return fmt.Errorf("enable ssh: %w", configurator.ErrNetworkDisabled)
	}
	s.cfg.Network.SSH = configurator.SSHKey(publicKey)
	return nil
}

func (s *ConfigStore) ToggleNTP(enabled bool) error {
	if s.cfg.Network == nil {
		s.log.Warn().Bool("ntp", enabled).Msg("ignoring ntp toggle: network disabled")
		return fmt.Errorf("toggle ntp: %w", configurator.ErrNetworkDisabled)
	}
	s.cfg.Network.NTP = enabled
	return nil
}

func (s *ConfigStore) SetFirmwareHardware(kind configurator.FirmwareHardware) error {
	if !kind.Valid() {
		s.log.Warn().Str("kind", string(kind)).Msg("unknown firmware hardware")
		return fmt.Errorf("firmware hardware %q: %w", kind, configurator.ErrInvalidParameter)
	}
	s.log.Info().Str("kind", string(kind)).Msg("setting firmware hardware")
	s.cfg.Configuration.FirmwareHardware = kind
	return nil
}

func (s *ConfigStore) SetCustomFirmware(enabled bool) {
	s.cfg.Hardware.CustomFirmware = enabled
}

func (s *ConfigStore) SetAuthorizationServer(server string) {
	s.cfg.Authorization.Server = server
}

// Replace swaps the whole tree, bypassing merge logic.
func (s *ConfigStore) Replace(cfg configurator.Configuration) {
	s.cfg = cfg.Clone()
}
