package session

import (
	"context"
	"errors"

	"github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/deviceapi"
)

// mutate runs fn under the session lock and announces a configuration change
// when fn succeeds. Rejections are counted as diagnostics.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, configurator.ErrNetworkDisabled):
			s.metrics.RecordDiagnostic("network_disabled")
		case errors.Is(err, configurator.ErrInvalidParameter):
			s.metrics.RecordDiagnostic("invalid_parameter")
		}
		return err
	}
	s.publish(configurator.EventConfigChanged, nil)
	return nil
}

func (s *Session) ToggleNetwork() {
	_ = s.mutate(func() error { s.config.ToggleNetwork(); return nil })
}

func (s *Session) AddInterface(name string, iface configurator.InterfaceConfig) {
	_ = s.mutate(func() error { s.config.AddInterface(name, iface); return nil })
}

// UpdateInterface merges patch into the named interface. It is a logged no-op
// returning ErrNetworkDisabled while networking is off.
func (s *Session) UpdateInterface(name string, patch configurator.InterfaceConfig) error {
	return s.mutate(func() error { return s.config.UpdateInterface(name, patch) })
}

func (s *Session) EnableSSH(publicKey string) error {
	return s.mutate(func() error { return s.config.EnableSSH(publicKey) })
}

func (s *Session) ToggleNTP(enabled bool) error {
	return s.mutate(func() error { return s.config.ToggleNTP(enabled) })
}

func (s *Session) SetFirmwareHardware(kind configurator.FirmwareHardware) error {
	return s.mutate(func() error { return s.config.SetFirmwareHardware(kind) })
}

func (s *Session) SetCustomFirmware(enabled bool) {
	_ = s.mutate(func() error { s.config.SetCustomFirmware(enabled); return nil })
}

// ReplaceConfig swaps the whole configuration without contacting the device.
func (s *Session) ReplaceConfig(cfg configurator.Configuration) {
	_ = s.mutate(func() error {
		s.log.Info().Msg("replacing configuration")
		s.config.Replace(cfg)
		return nil
	})
}

// request runs work in the background. commit, when set, runs under the
// session lock with the outcome of work and names the change to announce, if
// any. The returned channel yields the outcome once commit is done.
func (s *Session) request(op string, work func(ctx context.Context) error, commit func(err error) configurator.EventKind) <-chan error {
	done := make(chan error, 1)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		err := work(context.Background())
		if err != nil {
			s.metrics.RecordRequestFailure(op)
			s.log.Warn().Err(err).Str("op", op).Msg("device request failed")
		}
		if commit != nil {
			s.mu.Lock()
			kind := commit(err)
			s.mu.Unlock()
			if kind != "" {
				s.publish(kind, nil)
			}
		}
		done <- err
		close(done)
	}()
	return done
}

// SetCredentials updates the local authorization server immediately and then
// uploads the credentials. The local change is kept when the upload fails.
func (s *Session) SetCredentials(email, password, server string) <-chan error {
	_ = s.mutate(func() error { s.config.SetAuthorizationServer(server); return nil })
	creds := deviceapi.Credentials{Email: email, Password: password, Server: server}
	return s.request("upload_credentials", func(ctx context.Context) error {
		return s.api.UploadCredentials(ctx, creds)
	}, nil)
}

// UploadConfigFile sends cfg to the device and adopts it wholesale once the
// device acknowledges it.
func (s *Session) UploadConfigFile(cfg configurator.Configuration) <-chan error {
	cfg = cfg.Clone()
	return s.request("upload_config", func(ctx context.Context) error {
		return s.api.UploadConfig(ctx, cfg)
	}, func(err error) configurator.EventKind {
		if err != nil {
			return ""
		}
		s.config.Replace(cfg)
		return configurator.EventConfigChanged
	})
}

// ScanWiFi asks the device for the SSIDs visible on iface. On failure the
// previous scan result is kept.
func (s *Session) ScanWiFi(iface string) <-chan error {
	var ssids []string
	return s.request("scan_wifi", func(ctx context.Context) error {
		var err error
		ssids, err = s.api.ScanWiFi(ctx, iface)
		return err
	}, func(err error) configurator.EventKind {
		if err != nil {
			s.log.Error().Err(err).Str("iface", iface).Msg("error scanning for wifi")
			return ""
		}
		s.ssids = ssids
		return configurator.EventStatusChanged
	})
}

// EnumerateInterfaces refreshes the advisory list of adapter names. A failure
// empties the list.
func (s *Session) EnumerateInterfaces() <-chan error {
	var names []string
	return s.request("enumerate_interfaces", func(ctx context.Context) error {
		var err error
		names, err = s.api.EnumerateInterfaces(ctx)
		return err
	}, func(err error) configurator.EventKind {
		if err != nil {
			s.possibleInterfaces = []string{}
		} else {
			s.possibleInterfaces = names
		}
		return configurator.EventStatusChanged
	})
}

// FactoryReset asks the device to wipe itself. The device usually drops the
// connection before answering, so the outcome is only logged.
func (s *Session) FactoryReset() <-chan error {
	s.log.Warn().Msg("requesting factory reset")
	return s.request("factory_reset", s.api.FactoryReset, nil)
}

func (s *Session) TryLogIn() <-chan error {
	return s.request("try_log_in", s.api.TryLogIn, nil)
}
