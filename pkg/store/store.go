// Package store narrows the Kubernetes API surface the Watch Engine and
// Reconciler need down to a small interface, so the engine can be exercised
// against an in-memory fake without a real API server.
package store

import (
	"context"

	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

// Store is the Resource Store Component B lists and watches, and Component
// A's status writer patches. One implementation wraps a controller-runtime
// client.WithWatch against a real API server; tests use an in-memory fake.
type Store interface {
	// ListPeeringServers returns every PeeringServer currently known, for
	// the initial sync and for relist after a 410 Gone.
	ListPeeringServers(ctx context.Context) (*peeringv1.PeeringServerList, error)

	// GetPeeringServer fetches a single PeeringServer by namespaced name.
	GetPeeringServer(ctx context.Context, key client.ObjectKey) (*peeringv1.PeeringServer, error)

	// WatchPeeringServers opens a watch.Interface over PeeringServer
	// objects starting from resourceVersion. An empty resourceVersion
	// starts from "now".
	WatchPeeringServers(ctx context.Context, resourceVersion string) (watch.Interface, error)

	// PatchStatus applies a status-only patch, used by the Reconciler to
	// report Phase/Reason/Message/ObservedGeneration without racing spec
	// writers.
	PatchStatus(ctx context.Context, ps *peeringv1.PeeringServer, mutate func(*peeringv1.PeeringServerStatus)) error

	// Client is the full controller-runtime client the resources package's
	// Ensure methods use for owned objects: Get, then Create-if-absent or
	// Update-if-drifted.
	client.Client
}
