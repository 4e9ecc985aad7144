// Package lifecycle tracks the device connection and refreshes session data
// whenever the connection comes up.
//
// Allowed transitions:
//
//	disconnected -> connecting | connected
//	connecting   -> connected | disconnected
//	connected    -> disconnected
//
// Entering connected issues two independent fetches (current configuration and
// last factory-reset reason). Each commits through its hook when it succeeds and
// only logs when it fails. Fetches are never retried or cancelled: a result that
// arrives after the connection dropped is still committed.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/internal/inflight"
)

// Fetcher retrieves the data refreshed on connect.
type Fetcher interface {
	FetchConfig(ctx context.Context) (configurator.Configuration, error)
	FetchLastFactoryResetReason(ctx context.Context) (string, error)
}

// Hooks commit fetch results. Config, FactoryResetReason and FetchFailed are
// called from fetch goroutines and must do their own serialization.
// StateChanged calls arrive one at a time in transition order and must not
// call Transition.
type Hooks struct {
	Config             func(configurator.Configuration)
	FactoryResetReason func(string)
	FetchFailed        func(what string, err error)
	StateChanged       func(from, to configurator.ConnectionState)
}

type Lifecycle struct {
	fetcher Fetcher
	hooks   Hooks
	log     zerolog.Logger

	// notifyMu is held across a transition and its StateChanged hook.
	notifyMu sync.Mutex

	mu    sync.Mutex
	state configurator.ConnectionState

	inflight inflight.Group
}

func New(fetcher Fetcher, hooks Hooks, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{fetcher: fetcher, hooks: hooks, log: log, state: configurator.Disconnected}
}

func (l *Lifecycle) State() configurator.ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func allowed(from, to configurator.ConnectionState) bool {
	switch from {
	case configurator.Disconnected:
		return to == configurator.Connecting || to == configurator.Connected
	case configurator.Connecting:
		return to == configurator.Connected || to == configurator.Disconnected
	case configurator.Connected:
		return to == configurator.Disconnected
	}
	return false
}

// Transition moves to the given state. Moving to the current state does
// nothing. Entering Connected starts the refresh fetches and returns without
// waiting for them.
func (l *Lifecycle) Transition(to configurator.ConnectionState) error {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	from := l.state
	if from == to {
		l.mu.Unlock()
		return nil
	}
	if !allowed(from, to) {
		l.mu.Unlock()
		l.log.Warn().Stringer("from", from).Stringer("to", to).Msg("rejected connection transition")
		return fmt.Errorf("%w: %s -> %s", configurator.ErrInvalidTransition, from, to)
	}
	l.state = to
	if to == configurator.Connected {
		l.inflight.Add(2)
	}
	l.mu.Unlock()

	l.log.Info().Stringer("from", from).Stringer("to", to).Msg("connection state changed")
	if l.hooks.StateChanged != nil {
		l.hooks.StateChanged(from, to)
	}
	if to == configurator.Connected {
		go l.refreshConfig()
		go l.refreshFactoryResetReason()
	}
	return nil
}

// Wait blocks until every fetch started so far has committed or failed.
func (l *Lifecycle) Wait() {
	<-l.inflight.Idle()
}

// Idle is closed once no fetch is running.
func (l *Lifecycle) Idle() <-chan struct{} {
	return l.inflight.Idle()
}

func (l *Lifecycle) refreshConfig() {
	defer l.inflight.Done()
	cfg, err := l.fetcher.FetchConfig(context.Background())
	if err != nil {
		l.log.Warn().Err(err).Msg("couldn't fetch current config")
		l.failed("config", err)
		return
	}
	l.log.Info().Msg("got fresh config from device")
	if l.hooks.Config != nil {
		l.hooks.Config(cfg)
	}
}

func (l *Lifecycle) refreshFactoryResetReason() {
	defer l.inflight.Done()
	reason, err := l.fetcher.FetchLastFactoryResetReason(context.Background())
	if err != nil {
		l.log.Error().Err(err).Msg("error getting last factory reset reason")
		l.failed("last_factory_reset_reason", err)
		return
	}
	l.log.Info().Msg("got last factory reset reason")
	if l.hooks.FactoryResetReason != nil {
		l.hooks.FactoryResetReason(reason)
	}
}

func (l *Lifecycle) failed(what string, err error) {
	if l.hooks.FetchFailed != nil {
		l.hooks.FetchFailed(what, err)
	}
}
