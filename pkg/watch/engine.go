// Package watch implements the list-then-watch loop that feeds the
// Reconciler: an initial sync that dispatches every PeeringServer, then a
// long-lived watch with reconnect and backoff, restarted on both transport
// errors and a 410 Gone.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
	"github.com/luxor-io/peering-operator/pkg/store"
)

const (
	backoffFloor   = 5 * time.Second
	backoffCeiling = 60 * time.Second
)

func freshBackoff() wait.Backoff {
	return wait.Backoff{Duration: backoffFloor, Factor: 2, Cap: backoffCeiling, Steps: 1 << 30}
}

// Handler is invoked once per PeeringServer that needs reconciling, either
// from the initial list or from a subsequent watch event. Handlers for
// distinct namespaced names run concurrently; handlers for the same
// namespaced name never overlap.
type Handler func(ctx context.Context, key client.ObjectKey)

// Engine drives Handler from a Store's list+watch stream.
type Engine struct {
	store   store.Store
	handle  Handler
	log     logr.Logger
	backoff wait.Backoff

	mu       sync.Mutex
	inFlight map[client.ObjectKey]*sync.Mutex
}

// New builds an Engine over store, dispatching to handle.
func New(s store.Store, handle Handler, log logr.Logger) *Engine {
	return &Engine{
		store:    s,
		handle:   handle,
		log:      log.WithName("watch-engine"),
		backoff:  freshBackoff(),
		inFlight: make(map[client.ObjectKey]*sync.Mutex),
	}
}

// Run performs the initial list, then watches until ctx is cancelled. It
// never returns early on transport errors; it logs and reconnects with
// exponential backoff instead, so a caller can treat Run as the engine's
// entire lifetime.
func (e *Engine) Run(ctx context.Context) {
	e.syncOnce(ctx, "")

	for {
		if ctx.Err() != nil {
			return
		}
		rv, err := e.watchOnce(ctx)
		if err != nil && ctx.Err() == nil {
			delay := e.backoff.Step()
			e.log.Error(err, "watch closed, reconnecting", "backoff", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		// Every reconnect — whether from a transport error or a 410 Gone —
		// may have missed events in the gap before the new watch opens, so
		// relist before resuming the watch.
		e.syncOnce(ctx, "")
		// Only a watch that ended cleanly or delivered events resets the
		// backoff; back-to-back failures keep doubling the delay up to the
		// ceiling.
		if err == nil || rv != "" {
			e.backoff = freshBackoff()
		}
	}
}

// syncOnce lists every PeeringServer and dispatches each in list order.
// Each dispatch runs on its own goroutine, so handlers for distinct keys may
// run concurrently; handlers for the same key never overlap.
func (e *Engine) syncOnce(ctx context.Context, _ string) {
	list, err := e.store.ListPeeringServers(ctx)
	if err != nil {
		e.log.Error(err, "initial list failed")
		return
	}
	for i := range list.Items {
		ps := &list.Items[i]
		key := client.ObjectKeyFromObject(ps)
		e.dispatch(ctx, key)
	}
}

// watchOnce opens one watch and pumps events into dispatch until the
// channel closes, ctx is cancelled, or a 410 Gone arrives. The caller
// relists unconditionally after every return, so the returned
// resourceVersion is informational only.
func (e *Engine) watchOnce(ctx context.Context) (string, error) {
	w, err := e.store.WatchPeeringServers(ctx, "")
	if err != nil {
		return "", fmt.Errorf("open watch: %w", err)
	}
	defer w.Stop()

	lastRV := ""
	for {
		select {
		case ev, ok := <-w.ResultChan():
			if !ok {
				return lastRV, fmt.Errorf("watch channel closed")
			}
			if ev.Type == watch.Error {
				if status, ok := ev.Object.(*metav1.Status); ok && apierrors.IsResourceExpired(&apierrors.StatusError{ErrStatus: *status}) {
					return "", nil
				}
				return lastRV, fmt.Errorf("watch error event")
			}
			ps, ok := ev.Object.(*peeringv1.PeeringServer)
			if !ok {
				continue
			}
			lastRV = ps.ResourceVersion
			e.dispatch(ctx, client.ObjectKeyFromObject(ps))
		case <-ctx.Done():
			return lastRV, nil
		}
	}
}

// dispatch runs handle for key, serialized against any other in-flight
// dispatch for the same namespaced name, and concurrent with dispatches for
// every other key.
func (e *Engine) dispatch(ctx context.Context, key client.ObjectKey) {
	lock := e.lockFor(key)
	go func() {
		lock.Lock()
		defer lock.Unlock()
		e.handle(ctx, key)
	}()
}

func (e *Engine) lockFor(key client.ObjectKey) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.inFlight[key]
	if !ok {
		lock = &sync.Mutex{}
		e.inFlight[key] = lock
	}
	return lock
}
