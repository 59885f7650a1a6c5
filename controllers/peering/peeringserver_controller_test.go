package peering

import (
	"context"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
	"github.com/luxor-io/peering-operator/pkg/store"
)

func newPeeringServer(name, namespace string, replicas int32) *peeringv1.PeeringServer {
	return &peeringv1.PeeringServer{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, Generation: 1},
		Spec: peeringv1.PeeringServerSpec{
			Replicas:           replicas,
			PingIntervalMillis: 1000,
		},
	}
}

var _ = Describe("Reconciler", func() {
	var (
		ctx context.Context
		fs  *store.FakeStore
		rec *Reconciler
	)

	BeforeEach(func() {
		ctx = context.Background()
		fs = store.NewFake(scheme)
		rec = &Reconciler{
			Store:   fs,
			Scheme:  scheme,
			Log:     logr.Discard(),
			Metrics: NewMetrics(prometheus.NewRegistry()),
		}
	})

	It("creates the ConfigMap, headless Service and StatefulSet on first reconcile", func() {
		ps := newPeeringServer("web", "default", 3)
		Expect(fs.Create(ctx, ps)).To(Succeed())

		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var cm corev1.ConfigMap
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web-config", Namespace: "default"}, &cm)).To(Succeed())
		Expect(cm.Data).To(HaveKey("config.json"))

		var svc corev1.Service
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web-headless", Namespace: "default"}, &svc)).To(Succeed())
		Expect(svc.Spec.ClusterIP).To(Equal(corev1.ClusterIPNone))

		var sts appsv1.StatefulSet
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web", Namespace: "default"}, &sts)).To(Succeed())
		Expect(*sts.Spec.Replicas).To(Equal(int32(3)))
	})

	It("marks the PeeringServer Running and records ObservedGeneration", func() {
		ps := newPeeringServer("web", "default", 2)
		Expect(fs.Create(ctx, ps)).To(Succeed())

		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var updated peeringv1.PeeringServer
		Expect(fs.Get(ctx, client.ObjectKeyFromObject(ps), &updated)).To(Succeed())
		Expect(updated.Status.Phase).To(Equal(peeringv1.PhaseRunning))
		Expect(updated.Status.ObservedGeneration).To(Equal(updated.Generation))
	})

	It("marks the PeeringServer Failed on an invalid spec", func() {
		ps := newPeeringServer("bad", "default", -1)
		Expect(fs.Create(ctx, ps)).To(Succeed())

		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var updated peeringv1.PeeringServer
		Expect(fs.Get(ctx, client.ObjectKeyFromObject(ps), &updated)).To(Succeed())
		Expect(updated.Status.Phase).To(Equal(peeringv1.PhaseFailed))
		Expect(updated.Status.Reason).To(Equal("InvalidSpec"))
	})

	It("is idempotent: reconciling twice leaves the headless Service's resourceVersion unchanged", func() {
		ps := newPeeringServer("web", "default", 1)
		Expect(fs.Create(ctx, ps)).To(Succeed())

		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var svcBefore corev1.Service
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web-headless", Namespace: "default"}, &svcBefore)).To(Succeed())

		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var svcAfter corev1.Service
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web-headless", Namespace: "default"}, &svcAfter)).To(Succeed())
		Expect(svcAfter.ResourceVersion).To(Equal(svcBefore.ResourceVersion))
	})

	It("preserves the headless Service's ClusterIP across reconciles", func() {
		ps := newPeeringServer("web", "default", 1)
		Expect(fs.Create(ctx, ps)).To(Succeed())
		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var svc corev1.Service
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web-headless", Namespace: "default"}, &svc)).To(Succeed())
		svc.Spec.ClusterIP = "10.0.0.5"
		Expect(fs.Update(ctx, &svc)).To(Succeed())

		rec.Reconcile(ctx, client.ObjectKeyFromObject(ps))

		var after corev1.Service
		Expect(fs.Get(ctx, types.NamespacedName{Name: "web-headless", Namespace: "default"}, &after)).To(Succeed())
		Expect(after.Spec.ClusterIP).To(Equal("10.0.0.5"))
	})
})
