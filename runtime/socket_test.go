package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmidt-org/talaria/configurator"
	"github.com/xmidt-org/talaria/configurator/translate"
)

func next(t *testing.T, sub configurator.EventSubscription) configurator.Event {
	t.Helper()
	select {
	case evt, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return configurator.Event{}
	}
}

func TestDeviceSocketFrames(t *testing.T) {
	wrapped, err := translate.EncodeEvent("mac:001122334455", "event:status", []byte(`{"configuration":{}}`))
	require.NoError(t, err)

	authSeen := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authSeen <- r.Header.Get("Authorization")
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"meta":{"type":"info"}}`))
		_ = c.WriteMessage(websocket.BinaryMessage, wrapped)
		_ = c.Close()
	}))
	defer srv.Close()

	sock := NewDeviceSocket("ws"+strings.TrimPrefix(srv.URL, "http"), configurator.StaticAuth{Value: "Bearer abc"}, zerolog.Nop())
	defer sock.Close()
	sub := sock.Subscribe(8)
	defer sub.Close()

	require.NoError(t, sock.Connect(context.Background()))
	assert.Equal(t, "Bearer abc", <-authSeen)

	evt := next(t, sub)
	assert.Equal(t, configurator.EventConnected, evt.Kind)

	evt = next(t, sub)
	require.Equal(t, configurator.EventMessage, evt.Kind)
	frame, ok := evt.Payload.(configurator.Frame)
	require.True(t, ok)
	assert.False(t, frame.Binary)
	assert.JSONEq(t, `{"meta":{"type":"info"}}`, string(frame.Data))

	evt = next(t, sub)
	require.Equal(t, configurator.EventMessage, evt.Kind)
	frame = evt.Payload.(configurator.Frame)
	assert.True(t, frame.Binary)
	decoded, err := translate.DecodeFrame(frame.Binary, frame.Data)
	require.NoError(t, err)
	assert.Equal(t, "mac:001122334455", decoded.Source)

	evt = next(t, sub)
	assert.Equal(t, configurator.EventDisconnected, evt.Kind)
	assert.Eventually(t, func() bool { return !sock.Connected() }, time.Second, 10*time.Millisecond)
}

func TestDeviceSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sock := NewDeviceSocket("ws"+strings.TrimPrefix(srv.URL, "http"), nil, zerolog.Nop())
	defer sock.Close()
	sub := sock.Subscribe(1)

	assert.Error(t, sock.Connect(context.Background()))
	assert.False(t, sock.Connected())
	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected event %s", evt.Kind)
	default:
	}
}

func TestDeviceSocketCloseEndsSubscriptions(t *testing.T) {
	sock := NewDeviceSocket("ws://127.0.0.1:1", nil, zerolog.Nop())
	sub := sock.Subscribe(1)
	require.NoError(t, sock.Close())
	_, ok := <-sub.C()
	assert.False(t, ok)

	late := sock.Subscribe(1)
	_, ok = <-late.C()
	assert.False(t, ok)
	assert.NoError(t, sock.Close())
}

func TestDeviceSocketDisconnectReachesFullSubscriber(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for i := 0; i < 5; i++ {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"meta":{"type":"info"}}`))
		}
		_ = c.Close()
	}))
	defer srv.Close()

	sock := NewDeviceSocket("ws"+strings.TrimPrefix(srv.URL, "http"), nil, zerolog.Nop())
	defer sock.Close()
	sub := sock.Subscribe(1)
	defer sub.Close()

	require.NoError(t, sock.Connect(context.Background()))
	require.Eventually(t, func() bool { return !sock.Connected() }, 2*time.Second, 10*time.Millisecond)

	// The buffer still holds the connected event; every message was dropped.
	assert.Equal(t, configurator.EventConnected, next(t, sub).Kind)
	assert.Equal(t, configurator.EventDisconnected, next(t, sub).Kind)
}

func TestDeviceSocketPendingDisconnectReleasedByClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = c.Close()
	}))
	defer srv.Close()

	sock := NewDeviceSocket("ws"+strings.TrimPrefix(srv.URL, "http"), nil, zerolog.Nop())
	full := sock.Subscribe(1)
	require.NoError(t, sock.Connect(context.Background()))
	require.Eventually(t, func() bool { return !sock.Connected() }, 2*time.Second, 10*time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = full.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("closing a full subscriber blocked")
	}
	assert.NoError(t, sock.Close())
}
