package store

import (
	"context"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

var _ Store = &FakeStore{}

// FakeStore is an in-memory Store for exercising the Watch Engine and
// Reconciler without a real API server. Spec/status writes go through an
// embedded controller-runtime fake client; PeeringServer watch events are
// synthesized and fanned out to subscribers, since the fake client does not
// implement a real watch cache.
type FakeStore struct {
	client.WithWatch

	mu          sync.Mutex
	subscribers []chan watch.Event
}

// NewFake builds a FakeStore seeded with the given objects.
func NewFake(scheme *runtime.Scheme, initObjs ...client.Object) *FakeStore {
	c := fakeclient.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&peeringv1.PeeringServer{}).
		WithObjects(initObjs...).
		Build()
	return &FakeStore{WithWatch: fakeWithWatch{Client: c}}
}

func (s *FakeStore) ListPeeringServers(ctx context.Context) (*peeringv1.PeeringServerList, error) {
	var list peeringv1.PeeringServerList
	if err := s.List(ctx, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *FakeStore) GetPeeringServer(ctx context.Context, key client.ObjectKey) (*peeringv1.PeeringServer, error) {
	var ps peeringv1.PeeringServer
	if err := s.Get(ctx, key, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// WatchPeeringServers returns a channel-backed watch.Interface fed by
// Emit. resourceVersion is ignored; the fake has no compaction to replay.
func (s *FakeStore) WatchPeeringServers(ctx context.Context, resourceVersion string) (watch.Interface, error) {
	ch := make(chan watch.Event, 16)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return watch.NewProxyWatcher(ch), nil
}

// Emit publishes a synthetic watch event to every open WatchPeeringServers
// subscriber, for tests driving the engine through add/update/delete/error
// sequences including a 410 Gone.
func (s *FakeStore) Emit(e watch.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		ch <- e
	}
}

// EmitGone publishes a watch.Error event carrying a 410 Gone status, the
// trigger for the engine's relist path.
func (s *FakeStore) EmitGone() {
	s.Emit(watch.Event{
		Type: watch.Error,
		Object: &metav1.Status{
			Status:  metav1.StatusFailure,
			Reason:  metav1.StatusReasonGone,
			Code:    410,
			Message: "too old resource version",
		},
	})
}

func (s *FakeStore) PatchStatus(ctx context.Context, ps *peeringv1.PeeringServer, mutate func(*peeringv1.PeeringServerStatus)) error {
	var live peeringv1.PeeringServer
	if err := s.Get(ctx, client.ObjectKeyFromObject(ps), &live); err != nil {
		return err
	}
	mutate(&live.Status)
	return s.Status().Update(ctx, &live)
}

// fakeWithWatch adapts a plain client.Client (the fake builder's product)
// to client.WithWatch by refusing raw Watch calls; FakeStore never routes
// through it, since WatchPeeringServers is served from subscribers instead.
type fakeWithWatch struct {
	client.Client
}

func (fakeWithWatch) Watch(ctx context.Context, obj client.ObjectList, opts ...client.ListOption) (watch.Interface, error) {
	return nil, apierrors.NewMethodNotSupported(schema.GroupResource{}, "watch")
}
