// Package wshub serves live notifications to WebSocket clients: each
// connection gets its own send channel fed by a Notification Bus
// subscription, following the per-connection-channel fan-out pattern used
// for realtime push elsewhere in the retrieval pack.
package wshub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/snapdog/snapdog/internal/models"
	"github.com/snapdog/snapdog/internal/notify"
)

const writeTimeout = 5 * time.Second

// wireMessage is the JSON envelope sent to every client.
type wireMessage struct {
	Kind      models.NotificationKind `json:"kind"`
	Timestamp time.Time               `json:"timestamp"`
	Payload   models.Notification     `json:"payload"`
}

// Hub upgrades incoming HTTP requests to WebSocket connections and streams
// every notification published on bus to each connected client.
type Hub struct {
	bus      *notify.Bus
	upgrader websocket.Upgrader
}

// New returns a Hub fed by bus.
func New(bus *notify.Bus) *Hub {
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves the connection until the
// client disconnects or the bus subscription is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("wshub: upgrade failed", "conn", connID, "err", err)
		return
	}
	defer conn.Close()

	subID, ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(subID)

	slog.Info("wshub: client connected", "conn", connID)
	defer slog.Info("wshub: client disconnected", "conn", connID)

	// Drain inbound frames (pings, close) on their own goroutine; this hub
	// is publish-only so any payload received is simply discarded.
	closeCh := make(chan struct{})
	go func() {
		defer close(closeCh)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			msg := wireMessage{Kind: n.Kind, Timestamp: n.TimestampUTC, Payload: n}
			data, err := json.Marshal(msg)
			if err != nil {
				slog.Error("wshub: marshal notification", "conn", connID, "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("wshub: write failed", "conn", connID, "err", err)
				return
			}
		case <-closeCh:
			return
		}
	}
}
