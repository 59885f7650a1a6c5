package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PeeringServerPhase is the observed lifecycle phase of a PeeringServer.
type PeeringServerPhase string

const (
	// PhaseRunning means the last reconcile attempt converged successfully.
	PhaseRunning PeeringServerPhase = "Running"
	// PhaseFailed means the last reconcile attempt raised a non-conflict error.
	PhaseFailed PeeringServerPhase = "Failed"
)

// ResourceRequirements mirrors corev1.ResourceRequirements but keeps the CRD's
// surface limited to cpu/memory requests and limits, with defaults applied by
// the reconciler rather than an admission webhook.
type ResourceRequirements struct {
	// Requests describes the minimum amount of compute resources required,
	// keyed by "cpu"/"memory".
	// +optional
	Requests map[string]string `json:"requests,omitempty"`
	// Limits describes the maximum amount of compute resources allowed,
	// keyed by "cpu"/"memory".
	// +optional
	Limits map[string]string `json:"limits,omitempty"`
}

// PeeringServerSpec defines the desired state of a PeeringServer cohort.
type PeeringServerSpec struct {
	// Replicas is the cohort size. Every pod pings every ordinal in
	// [0, Replicas), including itself.
	// +kubebuilder:validation:Minimum=0
	Replicas int32 `json:"replicas"`

	// PingInterval is the server-side ping cadence, in milliseconds.
	// +kubebuilder:validation:Minimum=1
	PingIntervalMillis int64 `json:"pingInterval"`

	// Port is the TCP port the managed server listens on for both health
	// and ping traffic.
	// +optional
	// +kubebuilder:default=8080
	Port int32 `json:"port,omitempty"`

	// Image is the managed server's container image reference.
	// +optional
	// +kubebuilder:default="peering-server:latest"
	Image string `json:"image,omitempty"`

	// Resources are the compute requests/limits applied to the managed
	// server container.
	// +optional
	Resources ResourceRequirements `json:"resources,omitempty"`
}

// PeeringServerStatus is written only by the operator.
type PeeringServerStatus struct {
	// Replicas is the StatefulSet's declared replica count as last observed.
	// +optional
	Replicas int32 `json:"replicas,omitempty"`

	// ReadyReplicas is the StatefulSet's ready replica count as last observed.
	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`

	// Phase summarizes the outcome of the most recent reconcile attempt.
	// +optional
	Phase PeeringServerPhase `json:"phase,omitempty"`

	// Reason is a short machine-readable cause for Phase=Failed.
	// +optional
	Reason string `json:"reason,omitempty"`

	// Message is a human-readable detail for Phase=Failed.
	// +optional
	Message string `json:"message,omitempty"`

	// LastUpdated is the RFC3339 timestamp of the last status write.
	// +optional
	LastUpdated string `json:"lastUpdated,omitempty"`

	// ObservedGeneration lets callers tell a status update apart from a
	// pending spec change: it only advances once the generation it names
	// has actually been reconciled.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.status.replicas`
// +kubebuilder:printcolumn:name="Ready",type=integer,JSONPath=`.status.readyReplicas`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// PeeringServer is the Schema for the peeringservers API.
type PeeringServer struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PeeringServerSpec   `json:"spec,omitempty"`
	Status PeeringServerStatus `json:"status,omitempty"`
}

// GenerationMatchesObserved reports whether the last reconcile already
// observed the current spec generation.
func (p *PeeringServer) GenerationMatchesObserved() bool {
	return p.Status.ObservedGeneration == p.GetGeneration()
}

// +kubebuilder:object:root=true

// PeeringServerList contains a list of PeeringServer.
type PeeringServerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PeeringServer `json:"items"`
}
