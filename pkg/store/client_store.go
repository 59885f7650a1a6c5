package store

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

var _ Store = &ClientStore{}

// ClientStore is the production Store, backed by a watch-capable
// controller-runtime client against the live API server.
type ClientStore struct {
	client.WithWatch
}

// New wraps a watch-capable client as a Store.
func New(c client.WithWatch) *ClientStore {
	return &ClientStore{WithWatch: c}
}

// ListPeeringServers implements Store.
func (s *ClientStore) ListPeeringServers(ctx context.Context) (*peeringv1.PeeringServerList, error) {
	var list peeringv1.PeeringServerList
	if err := s.List(ctx, &list); err != nil {
		return nil, fmt.Errorf("list peeringservers: %w", err)
	}
	return &list, nil
}

// GetPeeringServer implements Store.
func (s *ClientStore) GetPeeringServer(ctx context.Context, key client.ObjectKey) (*peeringv1.PeeringServer, error) {
	var ps peeringv1.PeeringServer
	if err := s.Get(ctx, key, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// WatchPeeringServers implements Store.
func (s *ClientStore) WatchPeeringServers(ctx context.Context, resourceVersion string) (watch.Interface, error) {
	var list peeringv1.PeeringServerList
	opts := &client.ListOptions{Raw: &metav1.ListOptions{ResourceVersion: resourceVersion}}
	return s.WithWatch.Watch(ctx, &list, opts)
}

// PatchStatus implements Store. It reads the live object, applies mutate to
// a copy of its status, and submits a status-subresource patch, retrying on
// conflict so a concurrently-updated resourceVersion never drops the write.
func (s *ClientStore) PatchStatus(ctx context.Context, ps *peeringv1.PeeringServer, mutate func(*peeringv1.PeeringServerStatus)) error {
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var live peeringv1.PeeringServer
		if err := s.Get(ctx, client.ObjectKeyFromObject(ps), &live); err != nil {
			return err
		}
		before := live.DeepCopy()
		mutate(&live.Status)
		return s.Status().Patch(ctx, &live, client.MergeFrom(before))
	})
}
