// Package deviceapi talks to the HTTP API served by the device itself.
package deviceapi

import (
	"context"

	cfgr "github.com/xmidt-org/talaria/configurator"
)

const (
	PathConfig                 = "/api/config"
	PathCredentials            = "/api/config/creds"
	PathLastFactoryResetReason = "/api/last_factory_reset_reason"
	PathNetworkScan            = "/api/network/scan"
	PathNetworkInterfaces      = "/api/network/interfaces"
	PathFactoryReset           = "/api/factory_reset"
	PathTryLogIn               = "/api/try_log_in"
)

// Credentials is the body of a credentials upload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"pass"`
	Server   string `json:"server"`
}

type scanRequest struct {
	Iface string `json:"iface"`
}

// API wraps a Transport with the device's typed endpoints.
type API struct {
	t cfgr.Transport
}

func NewAPI(t cfgr.Transport) *API { return &API{t: t} }

// FetchConfig reads the configuration the device booted with.
func (a *API) FetchConfig(ctx context.Context) (cfgr.Configuration, error) {
	var cfg cfgr.Configuration
	if err := a.t.Get(ctx, PathConfig, &cfg); err != nil {
		return cfgr.Configuration{}, err
	}
	return cfg, nil
}

func (a *API) FetchLastFactoryResetReason(ctx context.Context) (string, error) {
	var reason string
	if err := a.t.Get(ctx, PathLastFactoryResetReason, &reason); err != nil {
		return "", err
	}
	return reason, nil
}

func (a *API) UploadConfig(ctx context.Context, cfg cfgr.Configuration) error {
	return a.t.Post(ctx, PathConfig, cfg, nil)
}

func (a *API) UploadCredentials(ctx context.Context, creds Credentials) error {
	return a.t.Post(ctx, PathCredentials, creds, nil)
}

// ScanWiFi lists the SSIDs visible from the named interface.
func (a *API) ScanWiFi(ctx context.Context, iface string) ([]string, error) {
	var ssids []string
	if err := a.t.Post(ctx, PathNetworkScan, scanRequest{Iface: iface}, &ssids); err != nil {
		return nil, err
	}
	return ssids, nil
}

// EnumerateInterfaces lists adapter names the device knows about. The list is advisory.
func (a *API) EnumerateInterfaces(ctx context.Context) ([]string, error) {
	var names []string
	if err := a.t.Get(ctx, PathNetworkInterfaces, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (a *API) FactoryReset(ctx context.Context) error {
	return a.t.Post(ctx, PathFactoryReset, struct{}{}, nil)
}

func (a *API) TryLogIn(ctx context.Context) error {
	return a.t.Post(ctx, PathTryLogIn, map[string]string{"hey": "Smile!"}, nil)
}
