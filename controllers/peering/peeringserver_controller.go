// Copyright 2021 Vectorized, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

// Package peering contains reconciliation logic for the peering.luxor.io CRD.
package peering

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
	"github.com/luxor-io/peering-operator/pkg/resources"
	"github.com/luxor-io/peering-operator/pkg/store"
)

// Reconciler reconciles a PeeringServer object: it materializes the
// ConfigMap, headless Service and StatefulSet owned by each PeeringServer,
// and writes back observed replica counts and a coarse Phase.
type Reconciler struct {
	store.Store
	Scheme  *runtime.Scheme
	Log     logr.Logger
	Metrics *Metrics
}

// Metrics are the Prometheus series the operator exposes for its own
// reconcile loop, independent of anything the managed server emits.
type Metrics struct {
	ReconcileTotal    *prometheus.CounterVec
	ReconcileDuration *prometheus.HistogramVec
}

// NewMetrics registers the Reconciler's series with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peering_operator_reconcile_total",
			Help: "Total PeeringServer reconciles, labeled by outcome.",
		}, []string{"outcome"}),
		ReconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "peering_operator_reconcile_duration_seconds",
			Help: "Duration of PeeringServer reconciles.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.ReconcileTotal, m.ReconcileDuration)
	return m
}

//+kubebuilder:rbac:groups=peering.luxor.io,resources=peeringservers,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=peering.luxor.io,resources=peeringservers/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch;create;update;patch
//+kubebuilder:rbac:groups=core,resources=services,verbs=get;list;watch;create;update;patch
//+kubebuilder:rbac:groups=core,resources=configmaps,verbs=get;list;watch;create;update;patch

// Reconcile drives one PeeringServer toward its desired owned-object state.
// It is the Handler the Watch Engine dispatches into: one call per
// namespaced name, never running concurrently with another call for the
// same key.
func (r *Reconciler) Reconcile(ctx context.Context, key client.ObjectKey) {
	log := r.Log.WithValues("peeringserver", key)
	start := time.Now()

	ps, err := r.GetPeeringServer(ctx, key)
	if apierrors.IsNotFound(err) {
		// Deleted; owned objects are garbage-collected via owner
		// references, nothing further to do.
		return
	}
	if err != nil {
		log.Error(err, "failed to fetch PeeringServer")
		r.observe("get-error", start)
		return
	}

	outcome := r.reconcile(ctx, log, ps)
	r.observe(outcome, start)
}

func (r *Reconciler) observe(outcome string, start time.Time) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.ReconcileTotal.WithLabelValues(outcome).Inc()
	r.Metrics.ReconcileDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (r *Reconciler) reconcile(ctx context.Context, log logr.Logger, ps *peeringv1.PeeringServer) string {
	defaulted, err := resources.ApplyDefaults(ps.Spec)
	if err != nil {
		log.Error(err, "invalid spec")
		r.setFailed(ctx, ps, "InvalidSpec", err.Error())
		return "invalid-spec"
	}

	sts := resources.NewStatefulSet(r.Store, r.Scheme, ps, defaulted)
	toApply := []resources.Resource{
		resources.NewConfigMap(r.Store, r.Scheme, ps, defaulted),
		resources.NewService(r.Store, r.Scheme, ps, defaulted),
		sts,
	}

	var errs *multierror.Error
	requeue := false
	for _, res := range toApply {
		if err := res.Ensure(ctx); err != nil {
			if _, ok := err.(*resources.RequeueError); ok {
				requeue = true
				continue
			}
			if _, ok := err.(*resources.RequeueAfterError); ok {
				requeue = true
				continue
			}
			log.Error(err, "failed to reconcile owned resource", "kind", res.Kind())
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", res.Kind(), err))
		}
	}

	if errs.ErrorOrNil() != nil {
		r.setFailed(ctx, ps, "OwnedResourceError", errs.Error())
		return "owned-resource-error"
	}
	if requeue {
		return "requeue"
	}

	r.setRunning(ctx, ps, sts)
	return "ok"
}

func (r *Reconciler) setFailed(ctx context.Context, ps *peeringv1.PeeringServer, reason, message string) {
	if err := r.PatchStatus(ctx, ps, func(s *peeringv1.PeeringServerStatus) {
		s.Phase = peeringv1.PhaseFailed
		s.Reason = reason
		s.Message = message
		s.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		s.ObservedGeneration = ps.Generation
	}); err != nil {
		r.Log.Error(err, "failed to patch PeeringServer status", "peeringserver", client.ObjectKeyFromObject(ps))
	}
}

func (r *Reconciler) setRunning(ctx context.Context, ps *peeringv1.PeeringServer, sts *resources.StatefulSet) {
	var replicas, ready int32
	if sts.LastObserved != nil {
		replicas = sts.LastObserved.Status.Replicas
		ready = sts.LastObserved.Status.ReadyReplicas
	}
	if err := r.PatchStatus(ctx, ps, func(s *peeringv1.PeeringServerStatus) {
		s.Phase = peeringv1.PhaseRunning
		s.Reason = ""
		s.Message = ""
		s.Replicas = replicas
		s.ReadyReplicas = ready
		s.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		s.ObservedGeneration = ps.Generation
	}); err != nil {
		r.Log.Error(err, "failed to patch PeeringServer status", "peeringserver", client.ObjectKeyFromObject(ps))
	}
}
