package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

func TestApplyDefaultsFillsUnsetFields(t *testing.T) {
	d, err := ApplyDefaults(peeringv1.PeeringServerSpec{Replicas: 3, PingIntervalMillis: 1000})
	require.NoError(t, err)
	assert.Equal(t, int32(3), d.Replicas)
	assert.Equal(t, int32(defaultPort), d.Port)
	assert.Equal(t, defaultImage, d.Image)
	assert.Equal(t, defaultRequestCPU, d.RequestCPU)
	assert.Equal(t, defaultLimitMemory, d.LimitMemory)
}

func TestApplyDefaultsHonorsExplicitValues(t *testing.T) {
	d, err := ApplyDefaults(peeringv1.PeeringServerSpec{
		Replicas:           2,
		PingIntervalMillis: 5000,
		Port:               9090,
		Image:              "custom:1.0",
		Resources: peeringv1.ResourceRequirements{
			Requests: map[string]string{"cpu": "250m", "memory": "64Mi"},
			Limits:   map[string]string{"cpu": "500m", "memory": "128Mi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(9090), d.Port)
	assert.Equal(t, "custom:1.0", d.Image)
	assert.Equal(t, "250m", d.RequestCPU)
	assert.Equal(t, "128Mi", d.LimitMemory)
}

func TestApplyDefaultsRejectsNegativeReplicas(t *testing.T) {
	_, err := ApplyDefaults(peeringv1.PeeringServerSpec{Replicas: -1, PingIntervalMillis: 1000})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestApplyDefaultsRejectsNonPositivePingInterval(t *testing.T) {
	_, err := ApplyDefaults(peeringv1.PeeringServerSpec{Replicas: 1, PingIntervalMillis: 0})
	require.Error(t, err)
}

func TestApplyDefaultsRejectsUnparseableQuantity(t *testing.T) {
	_, err := ApplyDefaults(peeringv1.PeeringServerSpec{
		Replicas:           1,
		PingIntervalMillis: 1000,
		Resources: peeringv1.ResourceRequirements{
			Requests: map[string]string{"cpu": "not-a-quantity"},
		},
	})
	require.Error(t, err)
}
