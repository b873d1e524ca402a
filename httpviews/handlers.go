// Package httpviews exposes the tunnel pool's HTTP status surface:
// the active/all tunnel list fragments the spec calls for, a health
// check, and a Prometheus metrics endpoint.
package httpviews

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DaviWei/reqrypt/tunnelpool"
)

// New builds the router exposing the pool's status surface.
func New(pool *tunnelpool.Pool) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler(pool))
	r.Get("/tunnels-active.html", renderListHandler(pool, true))
	r.Get("/tunnels-all.html", renderListHandler(pool, false))
	r.Handle("/metrics", promhttp.HandlerFor(pool.Registry(), promhttp.HandlerOpts{}))

	return r
}

func healthHandler(pool *tunnelpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !pool.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":  readyStatus(pool),
			"service": "reqrypt-tunneld",
		})
	}
}

func readyStatus(pool *tunnelpool.Pool) string {
	if pool.Ready() {
		return "ok"
	}
	return "no active tunnels"
}

// renderListHandler emits <option value="URL">URL</option> for every
// record in the chosen set, matching spec.md §6's HTTP surface.
func renderListHandler(pool *tunnelpool.Pool, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		var b strings.Builder
		pool.RenderList(&b, active)
		w.Write([]byte(b.String()))
	}
}

// NewServer wraps handler in an *http.Server with the teacher's
// timeout defaults.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
