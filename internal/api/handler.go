// Package api is the local HTTP gateway that lets a browser drive a chat
// session: JSON endpoints plus a WebSocket stream of session state.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/chatstate"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Asker answers stateless questions.
type Asker interface {
	SimpleChat(ctx context.Context, question string) (string, error)
}

// HistoryLookup fetches the session's history.
type HistoryLookup interface {
	History(ctx context.Context) (*assistant.HistoryResult, error)
}

// Handler provides the gateway endpoints for one session.
type Handler struct {
	ctrl           *chatstate.Controller
	history        HistoryLookup
	asker          Asker
	allowedOrigins []string
	logger         *slog.Logger
}

// NewHandler creates a Handler. allowedOrigins applies to WebSocket
// upgrades; "*" allows any origin.
func NewHandler(ctrl *chatstate.Controller, history HistoryLookup, asker Asker, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ctrl:           ctrl,
		history:        history,
		asker:          asker,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
