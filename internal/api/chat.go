package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/chatstate"
	"github.com/ashureev/campus-assistant/internal/session"
	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Message string `json:"message"`
}

type askRequest struct {
	Question string `json:"question"`
}

type messageResponse struct {
	Response *assistant.AssistantResponse `json:"response,omitempty"`
	State    chatstate.Snapshot           `json:"state"`
}

// RegisterRoutes registers the gateway routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/messages", h.PostMessage)
		r.Post("/reset", h.PostReset)
		r.Get("/history", h.GetHistory)
		r.Post("/ask", h.PostAsk)
	})
	r.Get("/ws/state", h.StreamState)
}

// GetState returns the current session snapshot.
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// PostMessage sends a message through the session.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.ctrl.Send(r.Context(), req.Message)

	status := http.StatusOK
	if err != nil && !errors.Is(err, session.ErrPersist) {
		status = upstreamStatus(err)
	}
	JSON(w, status, messageResponse{Response: resp, State: h.ctrl.Snapshot()})
}

// PostReset forgets the session's thread.
func (h *Handler) PostReset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Reset(r.Context()); err != nil {
		h.logger.Warn("Reset failed", "user_id", h.ctrl.UserID(), "error", err)
	}
	JSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// GetHistory returns the backend history body as is: a record or {"error"}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	res, err := h.history.History(r.Context())
	if err != nil {
		h.logger.Warn("History lookup failed", "user_id", h.ctrl.UserID(), "error", err)
		Error(w, upstreamStatus(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, res)
}

// PostAsk forwards a stateless question.
func (h *Handler) PostAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.asker.SimpleChat(r.Context(), req.Question)
	if err != nil {
		h.logger.Warn("Ask failed", "error", err)
		Error(w, upstreamStatus(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// upstreamStatus maps client errors onto the gateway's own status.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, assistant.ErrStatus), errors.Is(err, assistant.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
