package notify

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// SnapshotFunc returns the full-state events replayed to a client right after
// the upgrade, before any live events. Reconnecting is the resync mechanism:
// clients that missed updates converge from this snapshot.
type SnapshotFunc func() []Event

// WSHandler upgrades HTTP requests to WebSocket connections subscribed to a
// Hub. One goroutine per connection writes events; a companion reader drains
// client frames so close handshakes and pongs are processed.
type WSHandler struct {
	hub      *Hub
	snapshot SnapshotFunc
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler wires the hub and snapshot source.
func NewWSHandler(hub *Hub, snapshot SnapshotFunc, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub:      hub,
		snapshot: snapshot,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboards are served from other hosts on the floor network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	remote := conn.RemoteAddr().String()
	h.logger.Info("observer connected", zap.String("remote", remote))

	sub := h.hub.Subscribe(defaultSubscriberBuffer)
	defer func() {
		h.hub.Unsubscribe(sub)
		conn.Close() //nolint:errcheck // connection teardown
		h.logger.Info("observer disconnected", zap.String("remote", remote))
	}()

	if !h.sendSnapshot(conn) {
		return
	}

	// The reader only surfaces errors; all data flows server -> client.
	readErr := make(chan struct{})
	go func() {
		defer close(readErr)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-readErr:
			return
		case <-r.Context().Done():
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := h.writeEvent(conn, evt); err != nil {
				h.logger.Debug("observer write failed", zap.String("remote", remote), zap.Error(err))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) sendSnapshot(conn *websocket.Conn) bool {
	if h.snapshot == nil {
		return true
	}
	for _, evt := range h.snapshot() {
		if err := h.writeEvent(conn, evt); err != nil {
			h.logger.Debug("snapshot write failed", zap.Error(err))
			return false
		}
	}
	return true
}

func (h *WSHandler) writeEvent(conn *websocket.Conn, evt Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(evt)
}
