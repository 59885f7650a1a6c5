// Package resources materializes the three objects owned by a PeeringServer
// (ConfigMap, headless Service, StatefulSet) as pure functions of its spec,
// and applies them against a Resource Store with a read-then-write
// convergence policy.
package resources

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/intstr"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

// Resource is one owned object's reconcile unit: a builder paired with the
// store it applies against. Every owned-object type in this package
// implements it.
type Resource interface {
	// Ensure converges the live object toward the desired state, creating
	// it if absent and replacing it (preserving immutable/server-populated
	// fields) if present.
	Ensure(ctx context.Context) error
	// Kind names the object kind for logging, e.g. "ConfigMap".
	Kind() string
}

// RequeueError signals a transient failure the caller should retry without
// logging it as an operational error: conflicts, or any condition where a
// subsequent watch event or re-list is expected to resolve things on its
// own.
type RequeueError struct {
	Msg string
}

func (e *RequeueError) Error() string { return e.Msg }

// RequeueAfterError signals a transient failure that should be retried
// after a delay rather than immediately.
type RequeueAfterError struct {
	Msg          string
	RequeueAfter time.Duration
}

func (e *RequeueAfterError) Error() string { return e.Msg }

// labelsFor returns the labels every owned object of ps carries:
// managed-by=peering-operator plus app=<ps-name>, matching I1's
// "owner-referenced ... with the naming scheme above" requirement and the
// Service/StatefulSet selector contract in §3.
func labelsFor(ps *peeringv1.PeeringServer) map[string]string {
	return map[string]string{
		"app":        ps.Name,
		"managed-by": "peering-operator",
	}
}

func configMapName(psName string) string    { return fmt.Sprintf("%s-config", psName) }
func serviceName(psName string) string      { return fmt.Sprintf("%s-headless", psName) }
func statefulSetName(psName string) string  { return psName }

func intOrStringFromInt32(v int32) intstr.IntOrString {
	return intstr.FromInt32(v)
}
