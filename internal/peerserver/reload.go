package peerserver

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

// reloadQuiesce is how long the watcher waits after the last fs event
// before actually re-reading config.json. ConfigMap volume updates land as
// a burst of renames on the kubelet's symlink swap, not a single write.
const reloadQuiesce = 500 * time.Millisecond

// ConfigStore holds the current parsed configuration and refreshes it from
// disk whenever the underlying file changes, modeled on the
// config-reloader's fsnotify-driven refresh loop.
type ConfigStore struct {
	path   string
	logger log.Logger

	current atomic.Pointer[peerlist.Config]

	mu        sync.Mutex
	listeners []func(*peerlist.Config)
}

// NewConfigStore builds a ConfigStore that has not yet loaded path; call
// Load once before serving traffic.
func NewConfigStore(path string, logger log.Logger) *ConfigStore {
	return &ConfigStore{path: path, logger: logger}
}

// Load reads path synchronously and stores the result. Before any
// configuration has ever loaded successfully, a read or parse failure does
// not propagate: it substitutes DefaultConfig so startup never fails on a
// config file that hasn't landed yet, and the next fsnotify event retries.
// Once a configuration has loaded successfully, a later reload failure is
// returned so the caller can log it and keep serving the last good config.
func (c *ConfigStore) Load() error {
	cfg, err := LoadConfig(c.path)
	if err != nil {
		if c.current.Load() == nil {
			c.current.Store(DefaultConfig())
			return nil
		}
		return err
	}
	c.current.Store(cfg)
	return nil
}

// Current returns the most recently loaded configuration.
func (c *ConfigStore) Current() *peerlist.Config {
	return c.current.Load()
}

// OnChange registers fn to be called, with the new configuration, every
// time a reload succeeds.
func (c *ConfigStore) OnChange(fn func(*peerlist.Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Watch runs until ctx is cancelled, reloading on every debounced write to
// the config file (or its containing directory, to catch the
// atomic-rename pattern Kubernetes uses for ConfigMap volumes) and
// notifying listeners registered via OnChange.
func (c *ConfigStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		if err := c.Load(); err != nil {
			level.Error(c.logger).Log("msg", "config reload failed", "err", err)
			return
		}
		level.Info(c.logger).Log("msg", "config reloaded", "path", c.path)
		c.mu.Lock()
		listeners := append([]func(*peerlist.Config){}, c.listeners...)
		c.mu.Unlock()
		cfg := c.Current()
		for _, fn := range listeners {
			fn(cfg)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// "..data" is the symlink the kubelet swaps on a ConfigMap update;
			// the config.json symlink itself sees no event then.
			base := filepath.Base(ev.Name)
			if filepath.Clean(ev.Name) != filepath.Clean(c.path) && base != filepath.Base(c.path) && base != "..data" {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadQuiesce, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			level.Error(c.logger).Log("msg", "config watcher error", "err", err)
		}
	}
}
