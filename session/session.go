// Package session is the context object of one configurator session. It owns
// the configuration and status stores, drives the connection lifecycle and
// routes inbound device messages.
//
// Every mutation runs under a single session lock, so local actions, inbound
// messages and the completions of background requests each run to completion
// without interleaving. Requests to the device are never retried; a failed
// request is logged and leaves state as it was.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/classify"
	"github.com/xmidt-org/talaria/configurator/deviceapi"
	"github.com/xmidt-org/talaria/configurator/internal/inflight"
	"github.com/xmidt-org/talaria/configurator/internal/metrics"
	"github.com/xmidt-org/talaria/configurator/lifecycle"
	"github.com/xmidt-org/talaria/configurator/state"
)

var ErrNilTransport = errors.New("session: transport is nil")

// Options configures a new Session.
type Options struct {
	Transport configurator.Transport // required
	Validator classify.ScriptValidator
	Logger    *zerolog.Logger
	Metrics   *metrics.Metrics

	// InitialConfig replaces the placeholder configuration when set.
	InitialConfig *configurator.Configuration
}

type Session struct {
	id       string
	api      *deviceapi.API
	validate classify.ScriptValidator
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu                 sync.Mutex
	config             *state.ConfigStore
	status             *state.StatusStore
	possibleInterfaces []string
	ssids              []string

	lifecycle *lifecycle.Lifecycle
	pending   inflight.Group

	listenersMu sync.RWMutex
	listeners   []*eventSub
	closed      chan struct{}
}

// New starts a session with placeholder configuration and status.
func New(opts Options) (*Session, error) {
	if opts.Transport == nil {
		return nil, ErrNilTransport
	}
	id := uuid.NewString()
	base := zerolog.Nop()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	log := base.With().Str("component", "session").Str("session", id).Logger()

	validate := opts.Validator
	if validate == nil {
		validate = classify.NoScripts
	}
	initial := configurator.DefaultConfiguration()
	if opts.InitialConfig != nil {
		initial = *opts.InitialConfig
	}

	s := &Session{
		id:       id,
		api:      deviceapi.NewAPI(opts.Transport),
		validate: validate,
		log:      log,
		metrics:  opts.Metrics,
		config:   state.NewConfigStore(initial, log.With().Str("store", "config").Logger()),
		status:   state.NewStatusStore(configurator.DefaultStatus(), configurator.BootLog()),
		closed:   make(chan struct{}),
	}
	s.lifecycle = lifecycle.New(s.api, lifecycle.Hooks{
		Config:             s.commitFetchedConfig,
		FactoryResetReason: s.commitFactoryResetReason,
		FetchFailed:        func(what string, _ error) { s.metrics.RecordRequestFailure("fetch_" + what) },
		StateChanged:       s.connectionChanged,
	}, log.With().Str("component", "lifecycle").Logger())
	s.metrics.SetLogEntries(s.status.LogCount())
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Close ends the session and closes every subscription.
func (s *Session) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
		close(s.closed)
	}
	s.listenersMu.Lock()
	subs := s.listeners
	s.listeners = nil
	s.listenersMu.Unlock()
	for _, es := range subs {
		es.closeOnce.Do(func() { close(es.ch) })
	}
	return nil
}

// Wait blocks until every request and connect-time fetch issued so far has
// been applied, or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	if err := s.pending.Wait(ctx); err != nil {
		return err
	}
	select {
	case <-s.lifecycle.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetConnectionState drives the connection lifecycle. Entering Connected
// refreshes the configuration and the last factory-reset reason in the
// background.
func (s *Session) SetConnectionState(to configurator.ConnectionState) error {
	return s.lifecycle.Transition(to)
}

func (s *Session) State() configurator.ConnectionState {
	return s.lifecycle.State()
}

func (s *Session) connectionChanged(_, to configurator.ConnectionState) {
	s.metrics.SetConnectionState(int(to))
	s.publish(configurator.EventStateChanged, to.String())
}

func (s *Session) commitFetchedConfig(cfg configurator.Configuration) {
	s.mu.Lock()
	s.config.Replace(cfg)
	s.mu.Unlock()
	s.publish(configurator.EventConfigChanged, nil)
}

func (s *Session) commitFactoryResetReason(reason string) {
	s.mu.Lock()
	s.status.SetLastFactoryResetReason(reason)
	s.mu.Unlock()
	s.publish(configurator.EventStatusChanged, nil)
}

// View is a consistent read of the whole session.
type View struct {
	Session                string                      `json:"session"`
	Connection             string                      `json:"connection"`
	Configuration          configurator.Configuration  `json:"configuration"`
	Status                 configurator.StatusSnapshot `json:"status"`
	Logs                   []configurator.LogEntry     `json:"logs"`
	PossibleInterfaces     []string                    `json:"possible_interfaces"`
	SSIDs                  []string                    `json:"ssids"`
	LastFactoryResetReason *string                     `json:"last_factory_reset_reason,omitempty"`
}

func (s *Session) View() View {
	conn := s.lifecycle.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Session:            s.id,
		Connection:         conn.String(),
		Configuration:      s.config.Config(),
		Status:             s.status.Snapshot(),
		Logs:               s.status.Logs(),
		PossibleInterfaces: append([]string{}, s.possibleInterfaces...),
		SSIDs:              append([]string{}, s.ssids...),
	}
	if reason, ok := s.status.LastFactoryResetReason(); ok {
		v.LastFactoryResetReason = &reason
	}
	return v
}

func (s *Session) Config() configurator.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Config()
}

func (s *Session) Status() configurator.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Snapshot()
}

func (s *Session) Logs() []configurator.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Logs()
}

func (s *Session) LastFactoryResetReason() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.LastFactoryResetReason()
}

func (s *Session) PossibleInterfaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.possibleInterfaces...)
}

func (s *Session) SSIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.ssids...)
}

type eventSub struct {
	ch        chan configurator.Event
	closeOnce sync.Once
	remove    func(*eventSub)
}

func (e *eventSub) C() <-chan configurator.Event { return e.ch }
func (e *eventSub) Close() error {
	e.remove(e)
	e.closeOnce.Do(func() { close(e.ch) })
	return nil
}

// Subscribe returns change notifications. Slow subscribers miss events
// rather than block the session.
func (s *Session) Subscribe(buffer int) configurator.EventSubscription {
	es := &eventSub{ch: make(chan configurator.Event, buffer), remove: s.unsubscribe}
	select {
	case <-s.closed:
		es.closeOnce.Do(func() { close(es.ch) })
		return es
	default:
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, es)
	s.listenersMu.Unlock()
	return es
}

func (s *Session) unsubscribe(es *eventSub) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	for i, l := range s.listeners {
		if l == es {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Session) publish(kind configurator.EventKind, payload interface{}) {
	select {
	case <-s.closed:
		return
	default:
	}
	evt := configurator.Event{Kind: kind, OccurredAt: time.Now(), Source: "session", Payload: payload}
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, es := range s.listeners {
		select {
		case es.ch <- evt:
		default:
		}
	}
}
