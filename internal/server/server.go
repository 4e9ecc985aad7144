package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	api "github.com/xmidt-org/talaria/configurator/internal/http"
)

// Session is what the inspect server reads from.
type Session interface {
	api.StateSource
	api.EventSource
}

// InspectConfig configures the local inspection HTTP server.
type InspectConfig struct {
	ListenAddr  string              // address to bind (e.g. :8091)
	Session     Session             // required
	Gatherer    prometheus.Gatherer // optional; /metrics is omitted when nil
	Logger      zerolog.Logger      // optional; zero value discards
	ReadTimeout time.Duration       // optional
	IdleTimeout time.Duration       // optional
}

var ErrNilSession = errors.New("inspect server: session is nil")

// NewInspectMux routes /api/state, /api/events and, when a gatherer is set,
// /metrics.
func NewInspectMux(cfg InspectConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", api.StateHandler(cfg.Session))
	mux.HandleFunc("/api/events", api.EventsHandler(cfg.Session, cfg.Logger))
	if cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// StartInspectServer starts the inspection server in the background.
// It returns the *http.Server, a channel that will receive a terminal error (if any), and an error for immediate startup issues.
// The server stops when the supplied context is canceled.
func StartInspectServer(ctx context.Context, cfg InspectConfig) (*http.Server, <-chan error, error) {
	if cfg.Session == nil {
		return nil, nil, ErrNilSession
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8091"
	}

	// No WriteTimeout: /api/events holds its connection open.
	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     NewInspectMux(cfg),
		ReadTimeout: durationOr(cfg.ReadTimeout, 10*time.Second),
		IdleTimeout: durationOr(cfg.IdleTimeout, 60*time.Second),
	}

	errCh := make(chan error, 1)

	go func() {
		cfg.Logger.Info().Str("addr", cfg.ListenAddr).Msg("inspect API listening (GET /api/state, /api/events, /metrics)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv, errCh, nil
}

func durationOr(v time.Duration, d time.Duration) time.Duration {
	if v <= 0 {
		return d
	}
	return v
}
