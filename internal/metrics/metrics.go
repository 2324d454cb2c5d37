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

// Package metrics declares the Prometheus metrics published by the
// operator's controllers, registered against controller-runtime's shared
// metrics.Registry so they're served on the manager's existing
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "servarr_operator_reconcile_total",
		Help: "Total number of reconciliations",
	}, []string{"app_type", "result"})

	ReconcileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "servarr_operator_reconcile_duration_seconds",
		Help: "Duration of reconciliations in seconds",
	}, []string{"app_type"})

	DriftCorrectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "servarr_operator_drift_corrections_total",
		Help: "Total number of drift corrections applied",
	}, []string{"app_type", "namespace", "resource_type"})

	BackupOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "servarr_operator_backup_operations_total",
		Help: "Total number of backup and restore operations",
	}, []string{"app_type", "operation", "result"})

	ManagedApps = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "servarr_operator_managed_apps",
		Help: "Number of managed apps per type and namespace",
	}, []string{"app_type", "namespace"})

	StackReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "servarr_operator_stack_reconcile_total",
		Help: "Total number of MediaStack reconciliations",
	}, []string{"result"})

	StackReconcileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "servarr_operator_stack_reconcile_duration_seconds",
		Help: "Duration of MediaStack reconciliations in seconds",
	}, []string{})

	ManagedStacks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "servarr_operator_managed_stacks",
		Help: "Number of managed MediaStacks per namespace",
	}, []string{"namespace"})
)

func init() {
	metrics.Registry.MustRegister(
		ReconcileTotal,
		ReconcileDuration,
		DriftCorrectionsTotal,
		BackupOperationsTotal,
		ManagedApps,
		StackReconcileTotal,
		StackReconcileDuration,
		ManagedStacks,
	)
}

// IncrementReconcileTotal records the outcome of a ServarrApp reconciliation.
func IncrementReconcileTotal(appType, result string) {
	ReconcileTotal.WithLabelValues(appType, result).Inc()
}

// ObserveReconcileDuration records how long a ServarrApp reconciliation took.
func ObserveReconcileDuration(appType string, seconds float64) {
	ReconcileDuration.WithLabelValues(appType).Observe(seconds)
}

// IncrementDriftCorrections records a detected-and-corrected drift on a
// child resource.
func IncrementDriftCorrections(appType, namespace, resourceType string) {
	DriftCorrectionsTotal.WithLabelValues(appType, namespace, resourceType).Inc()
}

// IncrementBackupOperations records the outcome of a backup or restore call.
func IncrementBackupOperations(appType, operation, result string) {
	BackupOperationsTotal.WithLabelValues(appType, operation, result).Inc()
}

// SetManagedApps reports the current count of managed apps of a given type
// in a namespace.
func SetManagedApps(appType, namespace string, count int) {
	ManagedApps.WithLabelValues(appType, namespace).Set(float64(count))
}

// IncrementStackReconcileTotal records the outcome of a MediaStack
// reconciliation.
func IncrementStackReconcileTotal(result string) {
	StackReconcileTotal.WithLabelValues(result).Inc()
}

// ObserveStackReconcileDuration records how long a MediaStack
// reconciliation took.
func ObserveStackReconcileDuration(seconds float64) {
	StackReconcileDuration.WithLabelValues().Observe(seconds)
}

// SetManagedStacks reports the current count of managed MediaStacks in a
// namespace.
func SetManagedStacks(namespace string, count int) {
	ManagedStacks.WithLabelValues(namespace).Set(float64(count))
}
