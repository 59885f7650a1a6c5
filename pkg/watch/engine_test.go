package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
	"github.com/luxor-io/peering-operator/pkg/store"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(s))
	require.NoError(t, peeringv1.AddToScheme(s))
	return s
}

func TestEngineDispatchesInitialList(t *testing.T) {
	s := testScheme(t)
	ps := &peeringv1.PeeringServer{
		ObjectMeta: v1.ObjectMeta{Name: "a", Namespace: "default"},
	}
	fs := store.NewFake(s, ps)

	var mu sync.Mutex
	var seen []client.ObjectKey
	done := make(chan struct{}, 1)

	e := New(fs, func(ctx context.Context, key client.ObjectKey) {
		mu.Lock()
		seen = append(seen, key)
		mu.Unlock()
		done <- struct{}{}
	}, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked for the initial list")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, client.ObjectKeyFromObject(ps))
}

func TestEngineRelistsOnGone(t *testing.T) {
	s := testScheme(t)
	ps := &peeringv1.PeeringServer{
		ObjectMeta: v1.ObjectMeta{Name: "b", Namespace: "default"},
	}
	fs := store.NewFake(s, ps)

	calls := make(chan client.ObjectKey, 8)
	e := New(fs, func(ctx context.Context, key client.ObjectKey) {
		calls <- key
	}, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	// Drain the initial-list dispatch.
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("initial dispatch never arrived")
	}

	fs.EmitGone()

	select {
	case key := <-calls:
		assert.Equal(t, client.ObjectKeyFromObject(ps), key)
	case <-time.After(2 * time.Second):
		t.Fatal("relist after 410 Gone never dispatched")
	}
}
