package resources

import (
	"context"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
	"github.com/luxor-io/peering-operator/pkg/peerlist"
)

// ConfigMapKey is the single data key every ConfigMap owned by a
// PeeringServer carries, per §6's wire format.
const ConfigMapKey = "config.json"

var _ Resource = &ConfigMap{}

// ConfigMap reconciles the `<ps>-config` ConfigMap carrying the cohort's
// peer list and ping interval.
type ConfigMap struct {
	client.Client
	scheme *runtime.Scheme
	ps     *peeringv1.PeeringServer
	spec   Defaulted
}

// NewConfigMap builds a ConfigMap resource for ps.
func NewConfigMap(c client.Client, scheme *runtime.Scheme, ps *peeringv1.PeeringServer, spec Defaulted) *ConfigMap {
	return &ConfigMap{Client: c, scheme: scheme, ps: ps, spec: spec}
}

// Kind implements Resource.
func (r *ConfigMap) Kind() string { return "ConfigMap" }

// Key returns the ConfigMap's namespaced name.
func (r *ConfigMap) Key() types.NamespacedName {
	return types.NamespacedName{Name: configMapName(r.ps.Name), Namespace: r.ps.Namespace}
}

func (r *ConfigMap) desired() (*corev1.ConfigMap, error) {
	cfg := peerlist.Config{
		Peers:              peerlist.Build(r.ps.Name, r.ps.Namespace, r.spec.Replicas, r.spec.Port),
		PingIntervalMillis: r.spec.PingIntervalMillis,
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config.json: %w", err)
	}

	key := r.Key()
	obj := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      key.Name,
			Namespace: key.Namespace,
			Labels:    labelsFor(r.ps),
		},
		Data: map[string]string{ConfigMapKey: string(data)},
	}
	if err := controllerutil.SetControllerReference(r.ps, obj, r.scheme); err != nil {
		return nil, fmt.Errorf("set owner reference: %w", err)
	}
	return obj, nil
}

// Ensure implements the read-then-write convergence policy for the
// ConfigMap: data is always fully overwritten, per §4.A's field
// preservation rules ("ConfigMap data is fully overwritten; no merge with
// existing keys").
func (r *ConfigMap) Ensure(ctx context.Context) error {
	desired, err := r.desired()
	if err != nil {
		return err
	}

	var existing corev1.ConfigMap
	err = r.Get(ctx, r.Key(), &existing)
	switch {
	case apierrors.IsNotFound(err):
		if err := annotateLastApplied(desired); err != nil {
			return fmt.Errorf("annotate configmap %s: %w", r.Key(), err)
		}
		return r.Create(ctx, desired)
	case err != nil:
		return &RequeueError{Msg: fmt.Sprintf("get configmap %s: %v", r.Key(), err)}
	}

	drifted, err := hasDrifted(&existing, desired)
	if err != nil {
		return fmt.Errorf("diff configmap %s: %w", r.Key(), err)
	}
	if !drifted {
		return nil
	}

	desired.ResourceVersion = existing.ResourceVersion
	if err := annotateLastApplied(desired); err != nil {
		return fmt.Errorf("annotate configmap %s: %w", r.Key(), err)
	}
	if err := r.Update(ctx, desired); err != nil {
		if apierrors.IsConflict(err) {
			return &RequeueError{Msg: fmt.Sprintf("conflict updating configmap %s", r.Key())}
		}
		return fmt.Errorf("update configmap %s: %w", r.Key(), err)
	}
	return nil
}
