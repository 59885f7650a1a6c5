package peerserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

const pingTimeout = 5 * time.Second

// PingMetrics are the series the Pinger updates on every round.
type PingMetrics struct {
	Total *prometheus.CounterVec
}

// NewPingMetrics registers PingMetrics with reg.
func NewPingMetrics(reg prometheus.Registerer) *PingMetrics {
	m := &PingMetrics{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peering_ping_total",
			Help: "Total pings issued, labeled by peer and outcome.",
		}, []string{"peer", "outcome"}),
	}
	reg.MustRegister(m.Total)
	return m
}

// Pinger pings every configured peer, including the server's own address,
// on a fixed interval, concurrently and independently: one peer's failure
// never delays or skips another's ping.
type Pinger struct {
	client  *http.Client
	logger  log.Logger
	metrics *PingMetrics
	cfg     *ConfigStore
}

// NewPinger builds a Pinger reading its peer list from cfg.
func NewPinger(cfg *ConfigStore, metrics *PingMetrics, logger log.Logger) *Pinger {
	return &Pinger{
		client:  &http.Client{Timeout: pingTimeout},
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Run issues one round of pings every interval until ctx is cancelled.
// interval is read once per round from the current config so a hot-reloaded
// PingIntervalMillis takes effect on the next tick.
func (p *Pinger) Run(ctx context.Context) {
	for {
		cfg := p.cfg.Current()
		interval := time.Duration(cfg.PingIntervalMillis) * time.Millisecond
		if interval <= 0 {
			interval = time.Second
		}

		p.pingAll(ctx, cfg.Peers)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (p *Pinger) pingAll(ctx context.Context, peers []peerlist.Peer) {
	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer peerlist.Peer) {
			defer wg.Done()
			p.pingOne(ctx, peer)
		}(peer)
	}
	wg.Wait()
}

func (p *Pinger) pingOne(ctx context.Context, peer peerlist.Peer) {
	target := fmt.Sprintf("http://%s:%d/ping", peer.Host, peer.Port)

	reqCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		level.Error(p.logger).Log("msg", "failed to build ping request", "peer", peer.Host, "err", err)
		p.observe(peer.Host, "error")
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		outcome := classifyError(err)
		logPing(p.logger, outcome, "peer ping failed", peer.Host, err)
		p.observe(peer.Host, outcome)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		level.Warn(p.logger).Log("msg", "peer ping non-200", "peer", peer.Host, "status", resp.StatusCode)
		p.observe(peer.Host, "warn")
		return
	}

	level.Info(p.logger).Log("msg", "peer ping ok", "peer", peer.Host)
	p.observe(peer.Host, "ok")
}

func (p *Pinger) observe(peer, outcome string) {
	if p.metrics == nil {
		return
	}
	p.metrics.Total.WithLabelValues(peer, outcome).Inc()
}

// classifyError distinguishes connection-refused/timeout (routine, expected
// during rollout and scale-down churn) from other transport failures
// (unexpected, worth escalating).
func classifyError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "warn"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "warn"
	}
	return "error"
}

func logPing(logger log.Logger, outcome, msg, peer string, err error) {
	if outcome == "warn" {
		level.Warn(logger).Log("msg", msg, "peer", peer, "err", err)
		return
	}
	level.Error(logger).Log("msg", msg, "peer", peer, "err", err)
}
