package resources

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

const configVolumeName = "config"
const configMountPath = "/etc/peering"

var _ Resource = &StatefulSet{}

// StatefulSet reconciles the `<ps>` StatefulSet that materializes the
// cohort's pods.
type StatefulSet struct {
	client.Client
	scheme *runtime.Scheme
	ps     *peeringv1.PeeringServer
	spec   Defaulted

	// LastObserved is populated by Ensure with the live object's status,
	// for the Reconciler to read back into PeeringServerStatus.
	LastObserved *appsv1.StatefulSet
}

// NewStatefulSet builds a StatefulSet resource for ps.
func NewStatefulSet(c client.Client, scheme *runtime.Scheme, ps *peeringv1.PeeringServer, spec Defaulted) *StatefulSet {
	return &StatefulSet{Client: c, scheme: scheme, ps: ps, spec: spec}
}

// Kind implements Resource.
func (r *StatefulSet) Kind() string { return "StatefulSet" }

// Key returns the StatefulSet's namespaced name.
func (r *StatefulSet) Key() types.NamespacedName {
	return types.NamespacedName{Name: statefulSetName(r.ps.Name), Namespace: r.ps.Namespace}
}

func (r *StatefulSet) resourceRequirements() (corev1.ResourceRequirements, error) {
	reqCPU, err := resource.ParseQuantity(r.spec.RequestCPU)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	reqMem, err := resource.ParseQuantity(r.spec.RequestMemory)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	limCPU, err := resource.ParseQuantity(r.spec.LimitCPU)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	limMem, err := resource.ParseQuantity(r.spec.LimitMemory)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{corev1.ResourceCPU: reqCPU, corev1.ResourceMemory: reqMem},
		Limits:   corev1.ResourceList{corev1.ResourceCPU: limCPU, corev1.ResourceMemory: limMem},
	}, nil
}

func (r *StatefulSet) desired() (*appsv1.StatefulSet, error) {
	resourceReqs, err := r.resourceRequirements()
	if err != nil {
		return nil, fmt.Errorf("build resource requirements: %w", err)
	}

	labels := labelsFor(r.ps)
	key := r.Key()

	probe := &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: "/health",
				Port: intstr.FromInt32(r.spec.Port),
			},
		},
	}

	podSpec := corev1.PodSpec{
		Containers: []corev1.Container{{
			Name:  "peering-server",
			Image: r.spec.Image,
			Ports: []corev1.ContainerPort{{
				Name:          ServicePortName,
				ContainerPort: r.spec.Port,
				Protocol:      corev1.ProtocolTCP,
			}},
			Env: []corev1.EnvVar{
				{Name: "PORT", Value: fmt.Sprintf("%d", r.spec.Port)},
				{Name: "CONFIG_PATH", Value: fmt.Sprintf("%s/%s", configMountPath, ConfigMapKey)},
				{Name: "POD_NAME", ValueFrom: &corev1.EnvVarSource{
					FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.name"},
				}},
			},
			VolumeMounts: []corev1.VolumeMount{{
				Name:      configVolumeName,
				MountPath: configMountPath,
				ReadOnly:  true,
			}},
			LivenessProbe:  probe,
			ReadinessProbe: probe,
			Resources:      resourceReqs,
		}},
		Volumes: []corev1.Volume{{
			Name: configVolumeName,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: configMapName(r.ps.Name)},
				},
			},
		}},
	}

	obj := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      key.Name,
			Namespace: key.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: serviceName(r.ps.Name),
			Replicas:    ptr.To(r.spec.Replicas),
			Selector:    &metav1.LabelSelector{MatchLabels: map[string]string{"app": r.ps.Name}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
		},
	}
	if err := controllerutil.SetControllerReference(r.ps, obj, r.scheme); err != nil {
		return nil, fmt.Errorf("set owner reference: %w", err)
	}
	return obj, nil
}

// Ensure applies the read-then-write convergence policy. Selector and
// serviceName are immutable once the StatefulSet is created (§4.A); the
// desired object is still built with the current values so a first create
// gets them right, but on update both are copied from the live object, so
// Update never attempts to change them and a differing desired value is not
// applied. An update the API server still rejects as invalid is reported as
// an immutable-field error (§7).
func (r *StatefulSet) Ensure(ctx context.Context) error {
	desired, err := r.desired()
	if err != nil {
		return err
	}

	var existing appsv1.StatefulSet
	err = r.Get(ctx, r.Key(), &existing)
	switch {
	case apierrors.IsNotFound(err):
		if err := annotateLastApplied(desired); err != nil {
			return fmt.Errorf("annotate statefulset %s: %w", r.Key(), err)
		}
		if createErr := r.Create(ctx, desired); createErr != nil {
			return fmt.Errorf("create statefulset %s: %w", r.Key(), createErr)
		}
		r.LastObserved = desired.DeepCopy()
		return nil
	case err != nil:
		return &RequeueError{Msg: fmt.Sprintf("get statefulset %s: %v", r.Key(), err)}
	}

	// Selector and serviceName are immutable post-creation; preserve them
	// from the live object regardless of what the desired spec computed.
	desired.Spec.Selector = existing.Spec.Selector
	desired.Spec.ServiceName = existing.Spec.ServiceName
	desired.ResourceVersion = existing.ResourceVersion

	drifted, err := hasDrifted(&existing, desired)
	if err != nil {
		return fmt.Errorf("diff statefulset %s: %w", r.Key(), err)
	}
	if drifted {
		if err := annotateLastApplied(desired); err != nil {
			return fmt.Errorf("annotate statefulset %s: %w", r.Key(), err)
		}
		if err := r.Update(ctx, desired); err != nil {
			if apierrors.IsConflict(err) {
				return &RequeueError{Msg: fmt.Sprintf("conflict updating statefulset %s", r.Key())}
			}
			if apierrors.IsInvalid(err) {
				return fmt.Errorf("immutable field rejected updating statefulset %s: %w", r.Key(), err)
			}
			return fmt.Errorf("update statefulset %s: %w", r.Key(), err)
		}
	}

	r.LastObserved = &existing
	return nil
}
