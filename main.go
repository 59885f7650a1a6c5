// Copyright 2021 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0
package main

import (
	"context"
	"flag"
	"os"

	peeringv1 "github.com/luxor-io/peering-operator/apis/peering/v1"
	peeringcontrollers "github.com/luxor-io/peering-operator/controllers/peering"
	"github.com/luxor-io/peering-operator/pkg/store"
	"github.com/luxor-io/peering-operator/pkg/watch"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

// nolint:wsl // the init was generated by kubebuilder
func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(peeringv1.AddToScheme(scheme))
	//+kubebuilder:scaffold:scheme
}

// nolint:funlen // length looks good
func main() {
	var (
		metricsAddr string
		probeAddr   string
	)

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")

	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         false,
	})
	if err != nil {
		setupLog.Error(err, "Unable to start manager")
		os.Exit(1)
	}

	cachedClient, err := client.NewWithWatch(mgr.GetConfig(), client.Options{Scheme: scheme})
	if err != nil {
		setupLog.Error(err, "Unable to build watch-capable client")
		os.Exit(1)
	}
	peeringStore := store.New(cachedClient)

	metrics := peeringcontrollers.NewMetrics(ctrlmetrics.Registry)
	reconciler := &peeringcontrollers.Reconciler{
		Store:   peeringStore,
		Scheme:  mgr.GetScheme(),
		Log:     ctrl.Log.WithName("controllers").WithName("peering").WithName("PeeringServer"),
		Metrics: metrics,
	}

	engine := watch.New(peeringStore, reconciler.Reconcile, ctrl.Log.WithName("watch-engine"))

	if err := mgr.Add(managerRunnable(engine.Run)); err != nil {
		setupLog.Error(err, "Unable to register watch engine with manager")
		os.Exit(1)
	}
	//+kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("health", healthz.Ping); err != nil {
		setupLog.Error(err, "Unable to set up health check")
		os.Exit(1)
	}

	if err := mgr.AddReadyzCheck("check", healthz.Ping); err != nil {
		setupLog.Error(err, "Unable to set up ready check")
		os.Exit(1)
	}
	setupLog.Info("Starting manager")

	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "Problem running manager")
		os.Exit(1)
	}
}

// managerRunnable adapts a plain run(ctx) func into a
// manager.Runnable so the Watch Engine's lifetime is tied to the
// manager's own start/stop signal instead of being launched separately.
type managerRunnable func(ctx context.Context)

func (r managerRunnable) Start(ctx context.Context) error {
	r(ctx)
	return nil
}
