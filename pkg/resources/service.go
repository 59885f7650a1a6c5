package resources

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

// ServicePortName is the name the single TCP port carries on the headless
// Service and the StatefulSet's pod template, per §3.
const ServicePortName = "http"

var _ Resource = &Service{}

// Service reconciles the `<ps>-headless` headless Service that gives each
// pod in the cohort a stable per-ordinal DNS identity.
type Service struct {
	client.Client
	scheme *runtime.Scheme
	ps     *peeringv1.PeeringServer
	spec   Defaulted
}

// NewService builds a Service resource for ps.
func NewService(c client.Client, scheme *runtime.Scheme, ps *peeringv1.PeeringServer, spec Defaulted) *Service {
	return &Service{Client: c, scheme: scheme, ps: ps, spec: spec}
}

// Kind implements Resource.
func (r *Service) Kind() string { return "Service" }

// Key returns the Service's namespaced name.
func (r *Service) Key() types.NamespacedName {
	return types.NamespacedName{Name: serviceName(r.ps.Name), Namespace: r.ps.Namespace}
}

func (r *Service) desired(clusterIP string) (*corev1.Service, error) {
	key := r.Key()
	obj := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      key.Name,
			Namespace: key.Namespace,
			Labels:    labelsFor(r.ps),
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: clusterIP,
			Selector:  map[string]string{"app": r.ps.Name},
			Ports: []corev1.ServicePort{{
				Name:       ServicePortName,
				Port:       r.spec.Port,
				TargetPort: intOrStringFromInt32(r.spec.Port),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
	if err := controllerutil.SetControllerReference(r.ps, obj, r.scheme); err != nil {
		return nil, fmt.Errorf("set owner reference: %w", err)
	}
	return obj, nil
}

// Ensure applies the read-then-write convergence policy. clusterIP is
// immutable once assigned (I5/P4): the existing value, if any, is carried
// forward into the desired object before replacement — on first create the
// headless sentinel "None" is used instead.
func (r *Service) Ensure(ctx context.Context) error {
	var existing corev1.Service
	err := r.Get(ctx, r.Key(), &existing)
	switch {
	case apierrors.IsNotFound(err):
		desired, buildErr := r.desired(corev1.ClusterIPNone)
		if buildErr != nil {
			return buildErr
		}
		if err := annotateLastApplied(desired); err != nil {
			return fmt.Errorf("annotate service %s: %w", r.Key(), err)
		}
		return r.Create(ctx, desired)
	case err != nil:
		return &RequeueError{Msg: fmt.Sprintf("get service %s: %v", r.Key(), err)}
	}

	desired, err := r.desired(existing.Spec.ClusterIP)
	if err != nil {
		return err
	}

	drifted, err := hasDrifted(&existing, desired)
	if err != nil {
		return fmt.Errorf("diff service %s: %w", r.Key(), err)
	}
	if !drifted {
		return nil
	}

	desired.ResourceVersion = existing.ResourceVersion
	if err := annotateLastApplied(desired); err != nil {
		return fmt.Errorf("annotate service %s: %w", r.Key(), err)
	}
	if err := r.Update(ctx, desired); err != nil {
		if apierrors.IsConflict(err) {
			return &RequeueError{Msg: fmt.Sprintf("conflict updating service %s", r.Key())}
		}
		return fmt.Errorf("update service %s: %w", r.Key(), err)
	}
	return nil
}
