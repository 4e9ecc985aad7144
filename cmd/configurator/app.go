package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	cfgr "github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/classify"
	"github.com/xmidt-org/talaria/configurator/deviceapi"
	"github.com/xmidt-org/talaria/configurator/internal/logger"
	"github.com/xmidt-org/talaria/configurator/internal/metrics"
	"github.com/xmidt-org/talaria/configurator/session"
)

// app carries what every subcommand needs once options are loaded.
type app struct {
	opts     cfgr.Options
	log      zerolog.Logger
	registry *prometheus.Registry
}

func newApp(configPath string, stderr io.Writer) (*app, error) {
	opts, err := cfgr.LoadOptions(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewWithWriter(opts.Logging, stderr)
	if err != nil {
		return nil, err
	}
	return &app{opts: opts, log: log, registry: prometheus.NewRegistry()}, nil
}

// newSession builds a session talking to the configured device API.
func (a *app) newSession() (*session.Session, error) {
	validator := classify.NoScripts
	if a.opts.StructuralScripts {
		validator = classify.Structural
	}
	return session.New(session.Options{
		Transport: deviceapi.NewClient(a.opts.DeviceBaseURL, a.opts.Auth(), a.opts.RequestTimeout),
		Validator: validator,
		Logger:    &a.log,
		Metrics:   metrics.New(a.registry),
	})
}

// await waits for a remote action, bounded by ctx.
func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
