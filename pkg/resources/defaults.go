package resources

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

const (
	defaultPort  = 8080
	defaultImage = "peering-server:latest"

	defaultRequestCPU    = "100m"
	defaultRequestMemory = "128Mi"
	defaultLimitCPU      = "200m"
	defaultLimitMemory   = "256Mi"
)

// ValidationError marks a PeeringServer spec that fails §3's constraints.
// It is never retried until the user edits the resource (§7).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Defaulted is a copy of a PeeringServerSpec with every optional field
// filled in, leaving the original spec untouched.
type Defaulted struct {
	Replicas           int32
	PingIntervalMillis int64
	Port               int32
	Image              string
	RequestCPU         string
	RequestMemory      string
	LimitCPU           string
	LimitMemory        string
}

// ApplyDefaults validates and defaults a PeeringServerSpec per §4.A step 1.
// replicas<0 or pingInterval<=0 are rejected; port/image/resource quantities
// fall back to their documented defaults when unset.
func ApplyDefaults(spec peeringv1.PeeringServerSpec) (Defaulted, error) {
	if spec.Replicas < 0 {
		return Defaulted{}, &ValidationError{Msg: fmt.Sprintf("replicas must be >= 0, got %d", spec.Replicas)}
	}
	if spec.PingIntervalMillis <= 0 {
		return Defaulted{}, &ValidationError{Msg: fmt.Sprintf("pingInterval must be > 0, got %d", spec.PingIntervalMillis)}
	}

	d := Defaulted{
		Replicas:           spec.Replicas,
		PingIntervalMillis: spec.PingIntervalMillis,
		Port:               spec.Port,
		Image:              spec.Image,
		RequestCPU:         defaultRequestCPU,
		RequestMemory:      defaultRequestMemory,
		LimitCPU:           defaultLimitCPU,
		LimitMemory:        defaultLimitMemory,
	}
	if d.Port == 0 {
		d.Port = defaultPort
	}
	if d.Image == "" {
		d.Image = defaultImage
	}
	if v, ok := spec.Resources.Requests["cpu"]; ok && v != "" {
		d.RequestCPU = v
	}
	if v, ok := spec.Resources.Requests["memory"]; ok && v != "" {
		d.RequestMemory = v
	}
	if v, ok := spec.Resources.Limits["cpu"]; ok && v != "" {
		d.LimitCPU = v
	}
	if v, ok := spec.Resources.Limits["memory"]; ok && v != "" {
		d.LimitMemory = v
	}

	if _, err := resource.ParseQuantity(d.RequestCPU); err != nil {
		return Defaulted{}, &ValidationError{Msg: fmt.Sprintf("invalid requests.cpu %q: %v", d.RequestCPU, err)}
	}
	if _, err := resource.ParseQuantity(d.RequestMemory); err != nil {
		return Defaulted{}, &ValidationError{Msg: fmt.Sprintf("invalid requests.memory %q: %v", d.RequestMemory, err)}
	}
	if _, err := resource.ParseQuantity(d.LimitCPU); err != nil {
		return Defaulted{}, &ValidationError{Msg: fmt.Sprintf("invalid limits.cpu %q: %v", d.LimitCPU, err)}
	}
	if _, err := resource.ParseQuantity(d.LimitMemory); err != nil {
		return Defaulted{}, &ValidationError{Msg: fmt.Sprintf("invalid limits.memory %q: %v", d.LimitMemory, err)}
	}

	return d, nil
}
