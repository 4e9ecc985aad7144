// Package runtime holds the live connection to the device's message socket.
package runtime

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xmidt-org/talaria/configurator"
)

var ErrAlreadyConnected = errors.New("socket: already connected")

const eventSource = "device-socket"

// DeviceSocket reads frames pushed by the device and rebroadcasts them as
// events. Subscribers see EventConnected once the dial succeeds, one
// EventMessage per frame (payload is a configurator.Frame) and a final
// EventDisconnected when the read fails. It does not reconnect on its own;
// callers dial again.
type DeviceSocket struct {
	url  string
	auth configurator.AuthStrategy
	log  zerolog.Logger

	dialer *websocket.Dialer
	connMu sync.Mutex
	conn   *websocket.Conn

	listenersMu sync.RWMutex
	listeners   []*socketSub

	closed chan struct{}
}

type socketSub struct {
	ch        chan configurator.Event
	done      chan struct{}
	closeOnce sync.Once
	owner     *DeviceSocket
}

func (e *socketSub) C() <-chan configurator.Event { return e.ch }

// Close releases a pending disconnect delivery before the channel is closed.
func (e *socketSub) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.owner.unsubscribe(e)
		close(e.ch)
	})
	return nil
}

func NewDeviceSocket(url string, auth configurator.AuthStrategy, log zerolog.Logger) *DeviceSocket {
	return &DeviceSocket{
		url:    url,
		auth:   auth,
		log:    log.With().Str("component", "socket").Logger(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		closed: make(chan struct{}),
	}
}

// Connect dials the socket once and starts reading.
func (d *DeviceSocket) Connect(ctx context.Context) error {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if d.conn != nil {
		return ErrAlreadyConnected
	}

	header := http.Header{}
	if d.auth != nil {
		if v, e := d.auth.AuthorizationValue(); e == nil && v != "" {
			header.Set("Authorization", v)
		}
	}
	conn, _, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		d.log.Debug().Err(err).Str("url", d.url).Msg("dial failed")
		return err
	}
	d.conn = conn
	d.log.Info().Str("url", d.url).Msg("socket connected")
	d.broadcast(configurator.EventConnected, nil)
	go d.readLoop(conn)
	return nil
}

// Connected reports whether a read loop is running.
func (d *DeviceSocket) Connected() bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.conn != nil
}

// Close drops the connection and every subscription.
func (d *DeviceSocket) Close() error {
	select {
	case <-d.closed:
		return nil
	default:
		close(d.closed)
	}
	d.connMu.Lock()
	c := d.conn
	d.conn = nil
	d.connMu.Unlock()
	if c != nil {
		_ = c.Close()
	}
	d.listenersMu.Lock()
	subs := d.listeners
	d.listeners = nil
	d.listenersMu.Unlock()
	for _, es := range subs {
		_ = es.Close()
	}
	return nil
}

// Subscribe registers a listener. Events are dropped for listeners whose
// buffer is full, except EventDisconnected, which waits for room.
func (d *DeviceSocket) Subscribe(buffer int) configurator.EventSubscription {
	es := &socketSub{ch: make(chan configurator.Event, buffer), done: make(chan struct{}), owner: d}
	select {
	case <-d.closed:
		_ = es.Close()
		return es
	default:
	}
	d.listenersMu.Lock()
	d.listeners = append(d.listeners, es)
	d.listenersMu.Unlock()
	return es
}

func (d *DeviceSocket) unsubscribe(es *socketSub) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	for i, l := range d.listeners {
		if l == es {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *DeviceSocket) broadcast(kind configurator.EventKind, payload interface{}) {
	select {
	case <-d.closed:
		return
	default:
	}
	evt := configurator.Event{Kind: kind, OccurredAt: time.Now(), Source: eventSource, Payload: payload}
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	for _, es := range d.listeners {
		select {
		case es.ch <- evt:
		default:
			d.log.Warn().Str("kind", string(kind)).Msg("subscriber full, dropping event")
		}
	}
}

// deliverDisconnect blocks until every subscriber has room for the event, the
// subscriber closes or the socket closes.
func (d *DeviceSocket) deliverDisconnect(reason string) {
	evt := configurator.Event{Kind: configurator.EventDisconnected, OccurredAt: time.Now(), Source: eventSource, Payload: reason}
	d.listenersMu.RLock()
	defer d.listenersMu.RUnlock()
	for _, es := range d.listeners {
		select {
		case es.ch <- evt:
		case <-es.done:
		case <-d.closed:
			return
		}
	}
}

func (d *DeviceSocket) readLoop(c *websocket.Conn) {
	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			d.connMu.Lock()
			if d.conn == c {
				d.conn = nil
			}
			d.connMu.Unlock()
			_ = c.Close()
			d.log.Warn().Err(err).Msg("socket read failed")
			d.deliverDisconnect(err.Error())
			return
		}
		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			d.broadcast(configurator.EventMessage, configurator.Frame{
				Binary: msgType == websocket.BinaryMessage,
				Data:   data,
			})
		}
	}
}
