package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(s))
	require.NoError(t, peeringv1.AddToScheme(s))
	return s
}

func TestFakeStorePatchStatusAppliesMutation(t *testing.T) {
	ctx := context.Background()
	ps := &peeringv1.PeeringServer{
		ObjectMeta: metav1.ObjectMeta{Name: "a", Namespace: "default"},
	}
	fs := NewFake(testScheme(t), ps)

	err := fs.PatchStatus(ctx, ps, func(s *peeringv1.PeeringServerStatus) {
		s.Phase = peeringv1.PhaseRunning
		s.ReadyReplicas = 3
	})
	require.NoError(t, err)

	got, err := fs.GetPeeringServer(ctx, client.ObjectKeyFromObject(ps))
	require.NoError(t, err)
	require.Equal(t, peeringv1.PhaseRunning, got.Status.Phase)
	require.Equal(t, int32(3), got.Status.ReadyReplicas)
}

func TestFakeStoreListPeeringServers(t *testing.T) {
	ctx := context.Background()
	a := &peeringv1.PeeringServer{ObjectMeta: metav1.ObjectMeta{Name: "a", Namespace: "default"}}
	b := &peeringv1.PeeringServer{ObjectMeta: metav1.ObjectMeta{Name: "b", Namespace: "default"}}
	fs := NewFake(testScheme(t), a, b)

	list, err := fs.ListPeeringServers(ctx)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
}
