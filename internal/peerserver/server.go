package peerserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux builds the Managed Server's HTTP surface: /health for the
// StatefulSet's liveness/readiness probe, /ping for peers to hit on every
// round, /config to introspect the server name and currently loaded peer
// list, and
// /metrics for Prometheus scraping.
func NewMux(cfg *ConfigStore, env Env, reg prometheus.Gatherer, logger log.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "pong from %s\n", env.PodName)
	})

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]interface{}{"serverName": env.PodName, "config": cfg.Current()}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			level.Error(logger).Log("msg", "failed to encode /config response", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}
