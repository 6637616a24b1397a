// Package httpapi is the small introspection server actorctl serve runs
// alongside a coordinator: liveness, Prometheus scrape, and a JSON debug
// endpoint for the output gate's broken state.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daviddao/actorkv/pkg/actor"
)

// Server wraps a chi.Router exposing /healthz, /metrics, and /debug/gate.
type Server struct {
	router chi.Router
}

// New builds the router. reg is the Prometheus registry /metrics serves;
// coord is queried for /debug/gate.
func New(reg *prometheus.Registry, coord *actor.Coordinator) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/debug/gate", func(w http.ResponseWriter, r *http.Request) {
		brokenErr := coord.BrokenErr()
		resp := struct {
			Broken          bool   `json:"broken"`
			Reason          string `json:"reason,omitempty"`
			CommitScheduled bool   `json:"commit_scheduled"`
		}{
			Broken:          brokenErr != nil,
			CommitScheduled: coord.IsCommitScheduled(),
		}
		if brokenErr != nil {
			resp.Reason = brokenErr.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	return &Server{router: r}
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.router }
