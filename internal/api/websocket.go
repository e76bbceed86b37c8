package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/campus-assistant/internal/chatstate"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	// stateBuffer bounds snapshots queued for a slow client; older ones
	// are dropped since only the latest state matters.
	stateBuffer  = 16
	writeTimeout = 5 * time.Second
)

// StreamState upgrades to a WebSocket and pushes a JSON snapshot on every
// state change, starting with the current one.
func (h *Handler) StreamState(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	// Origin was checked above against full origins; the library's
	// host-pattern check is left open.
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := ws.CloseRead(r.Context())

	updates := make(chan chatstate.Snapshot, stateBuffer)
	unsubscribe := h.ctrl.Subscribe(func(s chatstate.Snapshot) {
		select {
		case updates <- s:
		default:
			h.logger.Debug("Dropping state update for slow WebSocket client")
		}
	})
	defer unsubscribe()

	if err := h.writeJSON(ctx, ws, h.ctrl.Snapshot()); err != nil {
		h.logger.Debug("Initial state write failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			if err := h.writeJSON(ctx, ws, snap); err != nil {
				h.logger.Debug("State write failed", "error", err)
				return
			}
		}
	}
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}
