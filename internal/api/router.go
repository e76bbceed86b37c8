package api

import (
	"net/http"

	"github.com/ashureev/campus-assistant/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the gateway routes behind the standard middleware stack.
// spa, when non-nil, serves every path the API does not claim.
func NewRouter(h *Handler, spa http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(h.allowedOrigins))

	h.RegisterRoutes(r)

	if spa != nil {
		r.Handle("/*", spa)
	}
	return r
}
