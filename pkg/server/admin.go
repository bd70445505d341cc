package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/getmockd/soapdemo/pkg/httputil"
	"github.com/getmockd/soapdemo/pkg/users"
)

// HealthResponse is the body of GET /health on the admin listener.
type HealthResponse struct {
	Status        string  `json:"status"`
	Users         int     `json:"users"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// UsersResponse is the body of GET /users on the admin listener.
type UsersResponse struct {
	Users []users.User `json:"users"`
	Total int          `json:"total"`
}

func (s *Server) adminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.registry.Handler())
	r.Get("/users", s.handleListUsers)
	r.Get("/users/{id}", s.handleGetUser)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.draining.Load() {
		httputil.WriteServiceUnavailable(w, "shutting_down", "server is shutting down")
		return
	}
	httputil.WriteOK(w, HealthResponse{
		Status:        "ok",
		Users:         s.store.Count(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	list := s.store.List()
	httputil.WriteOK(w, UsersResponse{Users: list, Total: len(list)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	u, ok := s.store.Get(id)
	if !ok {
		httputil.WriteNotFound(w, "not_found", "User with id "+strconv.Itoa(id)+" not found")
		return
	}
	httputil.WriteOK(w, u)
}
