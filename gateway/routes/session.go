package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sardis-labs/agentpay/gateway/middleware"
)

type sessionRoutes struct {
	srv *Server
}

func newSessionRoutes(srv *Server) *sessionRoutes { return &sessionRoutes{srv: srv} }

func (sr *sessionRoutes) mountAuth(r chi.Router) {
	r.Get("/me", sr.me)
}

func (sr *sessionRoutes) mountHealth(r chi.Router) {
	r.Get("/", sr.health)
}

func (sr *sessionRoutes) me(w http.ResponseWriter, r *http.Request) {
	scopes, _ := r.Context().Value(middleware.ContextKeyScopes).([]string)
	writeJSON(w, http.StatusOK, map[string]any{"scopes": scopes})
}

func (sr *sessionRoutes) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
