package peerserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

func TestConfigStoreReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"peers":[],"pingInterval":1000}`), 0o644))

	store := NewConfigStore(path, log.NewNopLogger())
	require.NoError(t, store.Load())
	require.Len(t, store.Current().Peers, 0)

	notify := make(chan struct{}, 1)
	store.OnChange(func(cfg *peerlist.Config) { notify <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{}, 1)
	go func() {
		_ = store.Watch(ctx)
		done <- struct{}{}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"peers":[{"host":"a","port":8080}],"pingInterval":2000}`), 0o644))

	select {
	case <-notify:
	case <-time.After(3 * time.Second):
		t.Fatal("config was never reloaded after file write")
	}

	require.Len(t, store.Current().Peers, 1)
	require.Equal(t, int64(2000), store.Current().PingIntervalMillis)

	cancel()
	<-done
}
