package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/xmidt-org/talaria/configurator"
)

// EventSource hands out change notifications.
type EventSource interface {
	Subscribe(buffer int) configurator.EventSubscription
}

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// EventsHandler upgrades to a websocket and streams session events as JSON
// text frames until either side goes away.
func EventsHandler(src EventSource, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("events upgrade failed")
			return
		}
		defer conn.Close()

		sub := src.Subscribe(eventBuffer)
		defer sub.Close()

		// The client never sends anything useful; reading detects when it leaves.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case evt, ok := <-sub.C():
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(writeTimeout))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(evt); err != nil {
					log.Debug().Err(err).Msg("events client write failed")
					return
				}
			}
		}
	}
}
