package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dpt/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket authenticates with a ticket, not a bearer token.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/auth/me", s.handleMe)

			r.Route("/dpts", func(r chi.Router) {
				r.Use(requirePermission(auth.PermDatapointRead))
				r.Get("/", s.handleListDPTs)
				r.Get("/{id}", s.handleGetDPT)
				r.Post("/{id}/encode", s.handleEncode)
				r.Post("/{id}/decode", s.handleDecode)
			})

			r.Route("/datapoints", func(r chi.Router) {
				r.With(requirePermission(auth.PermDatapointRead)).Get("/", s.handleListDatapoints)
				r.With(requirePermission(auth.PermBindingManage)).Post("/reload", s.handleReloadBindings)

				// Group addresses are main/middle/sub, one path segment each.
				r.Route("/{main}/{middle}/{sub}", func(r chi.Router) {
					r.With(requirePermission(auth.PermDatapointRead)).Get("/", s.handleGetDatapoint)
					r.With(requirePermission(auth.PermBindingManage)).Put("/", s.handlePutDatapoint)
					r.With(requirePermission(auth.PermBindingManage)).Delete("/", s.handleDeleteDatapoint)
					r.With(requirePermission(auth.PermDatapointWrite)).Post("/write", s.handleWriteDatapoint)
					r.With(requirePermission(auth.PermDatapointWrite)).Post("/read", s.handleReadDatapoint)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"dpts":    len(s.registry.IDs()),
	}
	if s.bridge != nil {
		resp["bindings"] = s.bridge.BindingCount()
		resp["statistics"] = s.bridge.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}
