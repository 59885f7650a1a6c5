package peerserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

func peerFromURL(t *testing.T, rawURL string) peerlist.Peer {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return peerlist.Peer{Host: u.Hostname(), Port: int32(port)}
}

// TestPingAllIsIndependentPerPeer verifies one unreachable peer does not
// delay or suppress the ping to a healthy peer.
func TestPingAllIsIndependentPerPeer(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	// A listener we immediately close gives a reliable connection-refused
	// target without depending on an unroutable address timing out.
	unreachableLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	unreachableAddr := unreachableLn.Addr().String()
	require.NoError(t, unreachableLn.Close())

	reg := prometheus.NewRegistry()
	metrics := NewPingMetrics(reg)
	cfg := &ConfigStore{}
	cfg.current.Store(&peerlist.Config{
		Peers: []peerlist.Peer{
			peerFromURL(t, healthy.URL),
			{Host: hostOf(t, unreachableAddr), Port: portOf(t, unreachableAddr)},
		},
		PingIntervalMillis: 1000,
	})

	p := NewPinger(cfg, metrics, log.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()
	p.pingAll(ctx, cfg.Current().Peers)

	families, err := reg.Gather()
	require.NoError(t, err)

	var okSeen, failSeen bool
	for _, fam := range families {
		if fam.GetName() != "peering_ping_total" {
			continue
		}
		for _, m := range fam.Metric {
			if labelValue(m, "outcome") == "ok" {
				okSeen = true
			}
			if labelValue(m, "outcome") == "warn" || labelValue(m, "outcome") == "error" {
				failSeen = true
			}
		}
	}
	require.True(t, okSeen, "expected at least one successful ping")
	require.True(t, failSeen, "expected the unreachable peer to record a failure")
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.Label {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func hostOf(t *testing.T, hostport string) string {
	t.Helper()
	h, _, err := net.SplitHostPort(hostport)
	require.NoError(t, err)
	return h
}

func portOf(t *testing.T, hostport string) int32 {
	t.Helper()
	_, p, err := net.SplitHostPort(hostport)
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return int32(port)
}
