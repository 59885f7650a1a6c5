// Command peering-server is the Managed Server: it runs inside every
// PeeringServer pod, serves /health, /ping and /config, and pings every
// peer named in its mounted config.json on a timer.
package main

import (
	"context"
	"fmt"
	"net/http"
	stdlog "log"
	"os"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/luxor-io/peering-operator/internal/peerserver"
	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

func main() {
	if err := runMain(); err != nil {
		stdlog.Fatalf("peering-server: %v", err)
	}
}

func runMain() error {
	env, err := peerserver.EnvFromOS()
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.AllowInfo())
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "pod", env.PodName)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cfgStore := peerserver.NewConfigStore(env.ConfigPath, logger)
	if err := cfgStore.Load(); err != nil {
		return fmt.Errorf("initial config load: %w", err)
	}
	cfgStore.OnChange(func(cfg *peerlist.Config) {
		level.Info(logger).Log("msg", "peer list updated", "peers", len(cfg.Peers), "pingIntervalMillis", cfg.PingIntervalMillis)
	})

	pingMetrics := peerserver.NewPingMetrics(reg)
	pinger := peerserver.NewPinger(cfgStore, pingMetrics, logger)

	mux := peerserver.NewMux(cfgStore, env, reg, logger)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", env.Port), Handler: mux}

	var g run.Group

	g.Add(func() error {
		level.Info(logger).Log("msg", "starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}, func(error) {
		_ = srv.Close()
	})

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			pinger.Run(ctx)
			return nil
		}, func(error) {
			cancel()
		})
	}

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return cfgStore.Watch(ctx)
		}, func(error) {
			cancel()
		})
	}

	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	return g.Run()
}
