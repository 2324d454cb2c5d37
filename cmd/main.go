/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	logzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/apiclient"
	"github.com/RangerRick/servarr-operator/internal/controller"
	"github.com/RangerRick/servarr-operator/internal/crd"
	servarrwebhook "github.com/RangerRick/servarr-operator/internal/webhook"
)

var scheme = clientgoscheme.Scheme

func init() {
	_ = servarrv1alpha1.AddToScheme(scheme)
}

var (
	metricsAddr          string
	probeAddr            string
	enableLeaderElection bool
	webhookEnabled       bool
)

var rootCmd = &cobra.Command{
	Use:   "servarr-operator",
	Short: "servarr-operator — Kubernetes operator for *arr media apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runManager()
	},
}

var crdCmd = &cobra.Command{
	Use:   "crd",
	Short: "Print the ServarrApp and MediaStack CRD YAML to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCRDs()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to.")
	rootCmd.PersistentFlags().StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	rootCmd.PersistentFlags().BoolVar(&enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager.")
	rootCmd.PersistentFlags().BoolVar(&webhookEnabled, "webhook-enabled", os.Getenv("WEBHOOK_ENABLED") == "true" || os.Getenv("WEBHOOK_ENABLED") == "1",
		"Enable the validating admission webhook server alongside the manager.")
	rootCmd.AddCommand(crdCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printCRDs() error {
	names, read, err := crd.Manifests()
	if err != nil {
		return fmt.Errorf("reading embedded crd manifests: %w", err)
	}
	for _, name := range names {
		body, err := read(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		fmt.Println(string(body))
	}
	return nil
}

func runManager() error {
	ctrl.SetLogger(logzap.New(logzap.UseDevMode(false), logzap.Level(zapcore.InfoLevel)))
	setupLog := ctrl.Log.WithName("setup")

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "servarr-operator.servarr.dev",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	if err := (&controller.ServarrAppReconciler{
		Client:   mgr.GetClient(),
		Scheme:   mgr.GetScheme(),
		Breakers: apiclient.NewBreakerManager(apiclient.DefaultBreakerSettings()),
		Recorder: mgr.GetEventRecorderFor("servarrapp-controller"),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "ServarrApp")
		return err
	}

	if err := (&controller.MediaStackReconciler{
		Client: mgr.GetClient(),
		Scheme: mgr.GetScheme(),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "MediaStack")
		return err
	}

	// Matches the original's WEBHOOK_ENABLED-gated optional server: the
	// validating webhook runs inside the same manager process (and thus
	// shares its metrics/health endpoints) instead of a second standalone
	// listener.
	if webhookEnabled {
		if err := servarrwebhook.SetupWebhookWithManager(mgr); err != nil {
			setupLog.Error(err, "unable to create webhook", "webhook", "ServarrApp")
			return err
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager", "webhookEnabled", webhookEnabled)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}
