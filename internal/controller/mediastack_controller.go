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

package controller

import (
	"context"
	"fmt"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/builders"
	"github.com/RangerRick/servarr-operator/internal/metrics"
)

const stackLabel = "servarr.dev/stack"
const tierLabel = "servarr.dev/tier"

// MediaStackReconciler reconciles a MediaStack, expanding its StackApps into
// child ServarrApp resources, rolling them out tier by tier, and optionally
// provisioning a shared in-cluster NFS server.
type MediaStackReconciler struct {
	client.Client
	Scheme *runtime.Scheme
}

// +kubebuilder:rbac:groups=servarr.dev,resources=mediastacks,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=servarr.dev,resources=mediastacks/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=servarr.dev,resources=servarrapps,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=core,resources=services,verbs=get;list;watch;create;update;patch;delete

// Reconcile expands stack.Spec.Apps into child ServarrApps, applies them
// tier by tier (a tier only rolls out once every app in the previous tier
// is ready), sweeps orphaned children, and reports aggregate status.
func (r *MediaStackReconciler) Reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, reconcileErr error) {
	log := logf.FromContext(ctx)
	start := time.Now()

	stack := &servarrv1alpha1.MediaStack{}
	if err := r.Get(ctx, req.NamespacedName, stack); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}
	ns := stack.Namespace
	if ns == "" {
		ns = "default"
	}

	defer func() {
		outcome := "success"
		if reconcileErr != nil {
			outcome = "error"
		}
		metrics.IncrementStackReconcileTotal(outcome)
		metrics.ObserveStackReconcileDuration(time.Since(start).Seconds())
	}()

	if err := r.reconcileNfsServer(ctx, stack, ns); err != nil {
		return ctrl.Result{}, fmt.Errorf("reconciling shared nfs server: %w", err)
	}

	type expandedEntry struct {
		name string
		spec servarrv1alpha1.ServarrAppSpec
		app  servarrv1alpha1.AppType
		tier uint8
	}

	var expanded []expandedEntry
	for _, app := range stack.Spec.Apps {
		if !app.Enabled {
			continue
		}
		pairs, err := app.Expand(stack.Name, ns, stack.Spec.Defaults, stack.Spec.Nfs)
		if err != nil {
			log.Info("split4k validation failed", "name", stack.Name, "error", err.Error())
			return r.failValidation(ctx, stack, "InvalidSplit4k", err.Error())
		}
		for _, pair := range pairs {
			expanded = append(expanded, expandedEntry{
				name: pair.Name,
				spec: pair.Spec,
				app:  app.App,
				tier: app.App.Tier(),
			})
		}
	}

	seen := make(map[string]bool, len(expanded))
	for _, e := range expanded {
		if seen[e.name] {
			msg := fmt.Sprintf("duplicate app+instance: %s", e.name)
			log.Info("duplicate child name", "name", stack.Name, "child", e.name)
			return r.failValidation(ctx, stack, "DuplicateApp", msg)
		}
		seen[e.name] = true
	}

	tiers := make(map[uint8][]expandedEntry)
	for _, e := range expanded {
		tiers[e.tier] = append(tiers[e.tier], e)
	}
	tierKeys := make([]uint8, 0, len(tiers))
	for t := range tiers {
		tierKeys = append(tierKeys, t)
	}
	sort.Slice(tierKeys, func(i, j int) bool { return tierKeys[i] < tierKeys[j] })

	desiredChildren := make(map[string]bool, len(expanded))
	for _, e := range expanded {
		desiredChildren[e.name] = true
	}

	var appStatuses []servarrv1alpha1.StackAppStatus
	readyCount := int32(0)
	var currentTier *uint8
	allPreviousReady := true

	for _, tier := range tierKeys {
		apps := tiers[tier]
		if tier > 0 && !allPreviousReady {
			for _, e := range apps {
				appStatuses = append(appStatuses, servarrv1alpha1.StackAppStatus{
					Name: e.name, AppType: string(e.app), Tier: tier, Ready: false, Enabled: true,
				})
			}
			continue
		}
		t := tier
		currentTier = &t

		for _, e := range apps {
			ready, err := r.applyChild(ctx, stack, ns, e.name, tier, e.spec)
			if err != nil {
				log.Error(err, "applying child ServarrApp", "name", stack.Name, "child", e.name)
				allPreviousReady = false
			} else if ready {
				readyCount++
			} else {
				allPreviousReady = false
			}
			appStatuses = append(appStatuses, servarrv1alpha1.StackAppStatus{
				Name: e.name, AppType: string(e.app), Tier: tier, Ready: ready, Enabled: true,
			})
		}
	}

	for _, app := range stack.Spec.Apps {
		if app.Enabled {
			continue
		}
		appStatuses = append(appStatuses, servarrv1alpha1.StackAppStatus{
			Name: app.ChildName(stack.Name), AppType: string(app.App), Tier: app.App.Tier(), Ready: false, Enabled: false,
		})
	}

	if err := r.sweepOrphans(ctx, ns, stack.Name, desiredChildren); err != nil {
		log.Error(err, "sweeping orphaned children", "name", stack.Name)
	}

	totalApps := int32(len(desiredChildren))
	wasReady := stack.Status.Phase == servarrv1alpha1.StackPhaseReady

	var phase servarrv1alpha1.StackPhase
	switch {
	case totalApps == 0:
		phase = servarrv1alpha1.StackPhasePending
	case readyCount == totalApps:
		phase = servarrv1alpha1.StackPhaseReady
	case wasReady && readyCount < totalApps:
		phase = servarrv1alpha1.StackPhaseDegraded
	case readyCount > 0:
		phase = servarrv1alpha1.StackPhaseRollingOut
	default:
		phase = servarrv1alpha1.StackPhasePending
	}

	stack.Status.Ready = phase == servarrv1alpha1.StackPhaseReady
	stack.Status.Phase = phase
	stack.Status.CurrentTier = currentTier
	stack.Status.TotalApps = totalApps
	stack.Status.ReadyApps = readyCount
	stack.Status.AppStatuses = appStatuses
	stack.Status.ObservedGeneration = stack.Generation

	meta.SetStatusCondition(&stack.Status.Conditions, metav1.Condition{
		Type: servarrv1alpha1.ConditionValid, Status: metav1.ConditionTrue,
		Reason: "Valid", Message: "spec is valid", ObservedGeneration: stack.Generation,
	})

	readyStatus, readyReason, readyMsg := metav1.ConditionFalse, "Pending", "no apps ready yet"
	switch phase {
	case servarrv1alpha1.StackPhaseReady:
		readyStatus, readyReason, readyMsg = metav1.ConditionTrue, "AllAppsReady", fmt.Sprintf("%d/%d apps ready", readyCount, totalApps)
	case servarrv1alpha1.StackPhaseRollingOut:
		tierNum := uint8(0)
		if currentTier != nil {
			tierNum = *currentTier
		}
		readyReason, readyMsg = "RollingOut", fmt.Sprintf("%d/%d apps ready, rolling out tier %d", readyCount, totalApps, tierNum)
	case servarrv1alpha1.StackPhaseDegraded:
		readyReason, readyMsg = "Degraded", fmt.Sprintf("%d/%d apps ready (was fully ready)", readyCount, totalApps)
	}
	meta.SetStatusCondition(&stack.Status.Conditions, metav1.Condition{
		Type: servarrv1alpha1.ConditionReady, Status: readyStatus,
		Reason: readyReason, Message: readyMsg, ObservedGeneration: stack.Generation,
	})

	if err := serverSideApplyStatus(ctx, r.Client, r.Scheme, stack, stackFieldManager); err != nil {
		return ctrl.Result{}, fmt.Errorf("updating status: %w", err)
	}

	metrics.SetManagedStacks(ns, 1)
	metrics.SetManagedApps("mediastack", ns, int(totalApps))
	log.Info("mediastack reconciliation complete", "name", stack.Name, "phase", phase, "ready", readyCount, "total", totalApps)

	if phase == servarrv1alpha1.StackPhaseReady {
		return ctrl.Result{RequeueAfter: requeueSteady}, nil
	}
	return ctrl.Result{RequeueAfter: requeueActive}, nil
}

// failValidation records a failing Valid condition and requeues after a
// minute, mirroring an invalid-spec short-circuit.
func (r *MediaStackReconciler) failValidation(ctx context.Context, stack *servarrv1alpha1.MediaStack, reason, message string) (ctrl.Result, error) {
	meta.SetStatusCondition(&stack.Status.Conditions, metav1.Condition{
		Type: servarrv1alpha1.ConditionValid, Status: metav1.ConditionFalse,
		Reason: reason, Message: message, ObservedGeneration: stack.Generation,
	})
	stack.Status.ObservedGeneration = stack.Generation
	if err := serverSideApplyStatus(ctx, r.Client, r.Scheme, stack, stackFieldManager); err != nil {
		return ctrl.Result{}, fmt.Errorf("updating status after validation failure: %w", err)
	}
	return ctrl.Result{RequeueAfter: time.Minute}, nil
}

// applyChild force-applies the child ServarrApp named childName and reports
// whether it is currently ready (read back from the server's merged
// response after the apply).
func (r *MediaStackReconciler) applyChild(ctx context.Context, stack *servarrv1alpha1.MediaStack, ns, childName string, tier uint8, spec servarrv1alpha1.ServarrAppSpec) (bool, error) {
	child := &servarrv1alpha1.ServarrApp{
		ObjectMeta: metav1.ObjectMeta{
			Name:      childName,
			Namespace: ns,
			Labels: map[string]string{
				stackLabel:                     stack.Name,
				tierLabel:                      fmt.Sprintf("%d", tier),
				"app.kubernetes.io/managed-by": builders.Manager,
			},
		},
		Spec: spec,
	}
	if err := controllerutil.SetControllerReference(stack, child, r.Scheme); err != nil {
		return false, fmt.Errorf("setting owner reference: %w", err)
	}
	if err := serverSideApply(ctx, r.Client, r.Scheme, child, stackFieldManager); err != nil {
		return false, fmt.Errorf("applying child %s: %w", childName, err)
	}
	return child.Status.Ready, nil
}

// sweepOrphans deletes child ServarrApps labeled with this stack that are
// no longer part of the expanded spec.
func (r *MediaStackReconciler) sweepOrphans(ctx context.Context, ns, stackName string, desired map[string]bool) error {
	log := logf.FromContext(ctx)

	var list servarrv1alpha1.ServarrAppList
	sel := labels.SelectorFromSet(labels.Set{stackLabel: stackName})
	if err := r.List(ctx, &list, client.InNamespace(ns), client.MatchingLabelsSelector{Selector: sel}); err != nil {
		return fmt.Errorf("listing existing children: %w", err)
	}

	for i := range list.Items {
		child := &list.Items[i]
		if desired[child.Name] {
			continue
		}
		log.Info("deleting orphaned child ServarrApp", "stack", stackName, "child", child.Name)
		if err := client.IgnoreNotFound(r.Delete(ctx, child)); err != nil {
			log.Error(err, "failed to delete orphaned child", "child", child.Name)
		}
	}
	return nil
}

// reconcileNfsServer creates or updates the in-cluster shared NFS server
// StatefulSet and Service when stack.Spec.Nfs calls for one. When Nfs is
// unset or points at an external server, any previously-created in-cluster
// server resources are left alone (deleting a stateful NFS server backed by
// real media libraries is never done implicitly).
func (r *MediaStackReconciler) reconcileNfsServer(ctx context.Context, stack *servarrv1alpha1.MediaStack, ns string) error {
	if stack.Spec.Nfs == nil || !stack.Spec.Nfs.DeployInCluster() {
		return nil
	}

	desiredSts := builders.NfsServerStatefulSet(stack.Name, ns, stack.Spec.Nfs)
	if err := controllerutil.SetControllerReference(stack, desiredSts, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on nfs statefulset: %w", err)
	}
	if err := serverSideApply(ctx, r.Client, r.Scheme, desiredSts, stackFieldManager); err != nil {
		return fmt.Errorf("applying nfs statefulset: %w", err)
	}

	desiredSvc := builders.NfsServerService(stack.Name, ns)
	if err := controllerutil.SetControllerReference(stack, desiredSvc, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on nfs service: %w", err)
	}
	return serverSideApply(ctx, r.Client, r.Scheme, desiredSvc, stackFieldManager)
}

// SetupWithManager sets up the controller with the Manager.
func (r *MediaStackReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&servarrv1alpha1.MediaStack{}).
		Owns(&servarrv1alpha1.ServarrApp{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&corev1.Service{}).
		Named("mediastack").
		Complete(r)
}
