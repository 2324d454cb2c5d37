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
	"encoding/json"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/apiclient"
	"github.com/RangerRick/servarr-operator/internal/backup"
	"github.com/RangerRick/servarr-operator/internal/builders"
	"github.com/RangerRick/servarr-operator/internal/metrics"
)

// servarrAppFinalizer is the finalizer added to every ServarrApp resource.
const servarrAppFinalizer = "servarr.rangerrick.io/finalizer"

// Requeue intervals: a short one while something is still converging, a
// longer one once the app is healthy and settled, matching the stack
// reconciler's phase-based cadence rather than a single flat timer.
const (
	requeueActive = 30 * time.Second
	requeueSteady = 5 * time.Minute
)

// ServarrAppReconciler reconciles a ServarrApp object, building and keeping
// in sync a Deployment, Service, and any enabled optional child resources
// (PVCs, NetworkPolicy, ConfigMaps, Secret, Gateway API routes, Certificate),
// plus API-driven health checks and scheduled backups for the apps that
// support them.
type ServarrAppReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Breakers holds one circuit breaker per ServarrApp, keyed by
	// namespace/name, so a flaky downstream API doesn't get hammered every
	// reconcile.
	Breakers *apiclient.BreakerManager

	// Recorder publishes Kubernetes Events for cross-app sync actions
	// (Prowlarr/Overseerr registration, cleanup).
	Recorder record.EventRecorder
}

// +kubebuilder:rbac:groups=servarr.dev,resources=servarrapps,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=servarr.dev,resources=servarrapps/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=servarr.dev,resources=servarrapps/finalizers,verbs=update
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=core,resources=services;persistentvolumeclaims;configmaps;secrets,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=networking.k8s.io,resources=networkpolicies,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=gateway.networking.k8s.io,resources=httproutes;tcproutes,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=cert-manager.io,resources=certificates,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=core,resources=events,verbs=create;patch

// Reconcile drives a ServarrApp to its desired state: child Kubernetes
// resources, condition reporting, API health checks, and scheduled backups.
func (r *ServarrAppReconciler) Reconcile(ctx context.Context, req ctrl.Request) (result ctrl.Result, reconcileErr error) {
	log := logf.FromContext(ctx)
	start := time.Now()

	app := &servarrv1alpha1.ServarrApp{}
	if err := r.Get(ctx, req.NamespacedName, app); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	defer func() {
		outcome := "success"
		if reconcileErr != nil {
			outcome = "error"
		}
		metrics.IncrementReconcileTotal(string(app.Spec.App), outcome)
		metrics.ObserveReconcileDuration(string(app.Spec.App), time.Since(start).Seconds())
	}()

	if !app.DeletionTimestamp.IsZero() {
		if controllerutil.ContainsFinalizer(app, servarrAppFinalizer) {
			if err := r.cleanupChildResources(ctx, app); err != nil {
				return ctrl.Result{}, fmt.Errorf("finalizer cleanup: %w", err)
			}
			controllerutil.RemoveFinalizer(app, servarrAppFinalizer)
			if err := r.Update(ctx, app); err != nil {
				return ctrl.Result{}, fmt.Errorf("removing finalizer: %w", err)
			}
		}
		return ctrl.Result{}, nil
	}

	if !controllerutil.ContainsFinalizer(app, servarrAppFinalizer) {
		controllerutil.AddFinalizer(app, servarrAppFinalizer)
		if err := r.Update(ctx, app); err != nil {
			return ctrl.Result{}, fmt.Errorf("adding finalizer: %w", err)
		}
		return ctrl.Result{Requeue: true}, nil
	}

	if err := r.setCondition(ctx, app, servarrv1alpha1.ConditionProgressing, metav1.ConditionTrue,
		"Reconciling", "reconciliation in progress"); err != nil {
		return ctrl.Result{}, err
	}

	r.maybeRestoreBackup(ctx, app)

	if err := r.reconcileDeployment(ctx, app); err != nil {
		return r.degrade(ctx, app, "DeploymentFailed", err)
	}
	if err := r.reconcileService(ctx, app); err != nil {
		return r.degrade(ctx, app, "ServiceFailed", err)
	}
	if err := r.reconcilePVCs(ctx, app); err != nil {
		return r.degrade(ctx, app, "PvcFailed", err)
	}
	if err := r.reconcileNetworkPolicy(ctx, app); err != nil {
		return r.degrade(ctx, app, "NetworkPolicyFailed", err)
	}
	if err := r.reconcileConfigMaps(ctx, app); err != nil {
		return r.degrade(ctx, app, "ConfigMapFailed", err)
	}
	if err := r.reconcileSecret(ctx, app); err != nil {
		return r.degrade(ctx, app, "SecretFailed", err)
	}
	if err := r.reconcileGatewayResources(ctx, app); err != nil {
		return r.degrade(ctx, app, "GatewayFailed", err)
	}

	dep := &appsv1.Deployment{}
	if err := r.Get(ctx, types.NamespacedName{Name: builders.AppName(app), Namespace: builders.AppNamespace(app)}, dep); err != nil {
		return ctrl.Result{}, fmt.Errorf("fetching deployment for status: %w", err)
	}
	app.Status.ReadyReplicas = dep.Status.ReadyReplicas
	app.Status.ObservedGeneration = app.Generation

	ready := dep.Status.ReadyReplicas > 0 && dep.Status.ReadyReplicas == *dep.Spec.Replicas
	app.Status.Ready = ready
	deployStatus, deployReason, deployMsg := metav1.ConditionFalse, "DeploymentUnavailable", "no replicas ready yet"
	if ready {
		deployStatus, deployReason, deployMsg = metav1.ConditionTrue, "DeploymentAvailable", fmt.Sprintf("%d replica(s) ready", dep.Status.ReadyReplicas)
	}
	if err := r.setCondition(ctx, app, servarrv1alpha1.ConditionDeploymentReady, deployStatus, deployReason, deployMsg); err != nil {
		return ctrl.Result{}, err
	}

	r.reconcileHealth(ctx, app)
	if err := r.reconcileBackup(ctx, app); err != nil {
		log.Error(err, "backup reconciliation failed", "name", app.Name)
	}
	r.reconcileSync(ctx, app)

	if err := r.setCondition(ctx, app, servarrv1alpha1.ConditionReady, boolStatus(ready), "ReconcileComplete", "reconciliation complete"); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.setCondition(ctx, app, servarrv1alpha1.ConditionProgressing, metav1.ConditionFalse,
		"ReconcileComplete", "reconciliation complete"); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.setCondition(ctx, app, servarrv1alpha1.ConditionDegraded, metav1.ConditionFalse, "ReconcileComplete", "no errors"); err != nil {
		return ctrl.Result{}, err
	}

	log.Info("reconciliation complete", "name", app.Name, "ready", ready)

	if ready {
		return ctrl.Result{RequeueAfter: requeueSteady}, nil
	}
	return ctrl.Result{RequeueAfter: requeueActive}, nil
}

func (r *ServarrAppReconciler) degrade(ctx context.Context, app *servarrv1alpha1.ServarrApp, reason string, cause error) (ctrl.Result, error) {
	_ = r.setCondition(ctx, app, servarrv1alpha1.ConditionDegraded, metav1.ConditionTrue, reason, cause.Error())
	return ctrl.Result{RequeueAfter: requeueActive}, fmt.Errorf("%s: %w", reason, cause)
}

func boolStatus(b bool) metav1.ConditionStatus {
	if b {
		return metav1.ConditionTrue
	}
	return metav1.ConditionFalse
}

// reconcileDeployment force-applies the Deployment for app.
func (r *ServarrAppReconciler) reconcileDeployment(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	desired := builders.Deployment(app, nil)
	if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on deployment: %w", err)
	}

	desiredTemplate := desired.Spec.Template.DeepCopy()
	if err := serverSideApply(ctx, r.Client, r.Scheme, desired, fieldManager); err != nil {
		return fmt.Errorf("applying deployment: %w", err)
	}
	r.logDeploymentDrift(ctx, app, desiredTemplate, &desired.Spec.Template)
	return nil
}

// logDeploymentDrift warns when the pod template actually stored doesn't
// contain every field the operator asked for. Kubernetes fills in defaults
// (terminationGracePeriodSeconds, dnsPolicy, ...) that desired never sets,
// so the comparison only checks that desired is a subset of actual.
func (r *ServarrAppReconciler) logDeploymentDrift(ctx context.Context, app *servarrv1alpha1.ServarrApp, desired, actual *corev1.PodTemplateSpec) {
	log := logf.FromContext(ctx)

	desiredJSON, err := toJSONAny(desired)
	if err != nil {
		return
	}
	actualJSON, err := toJSONAny(actual)
	if err != nil {
		return
	}
	if jsonIsSubset(desiredJSON, actualJSON) {
		return
	}
	diff := jsonDiffPaths(desiredJSON, actualJSON, "")
	log.Info("deployment drift detected", "name", app.Name, "diff", diff)
	metrics.IncrementDriftCorrections(string(app.Spec.App), app.Namespace, "Deployment")
}

func toJSONAny(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// reconcileService force-applies the Service for app. The builder never
// sets ClusterIP, so server-side apply leaves the cluster-assigned address
// alone without needing to read it back first.
func (r *ServarrAppReconciler) reconcileService(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	desired := builders.Service(app)
	if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on service: %w", err)
	}
	if err := serverSideApply(ctx, r.Client, r.Scheme, desired, fieldManager); err != nil {
		return fmt.Errorf("applying service: %w", err)
	}
	return nil
}

// reconcilePVCs creates any PVC that doesn't yet exist. PVC specs are
// largely immutable once bound, so existing PVCs are left untouched.
func (r *ServarrAppReconciler) reconcilePVCs(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	for _, desired := range builders.PersistentVolumeClaims(app) {
		if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
			return fmt.Errorf("setting owner reference on pvc %s: %w", desired.Name, err)
		}
		existing := &corev1.PersistentVolumeClaim{}
		err := r.Get(ctx, types.NamespacedName{Name: desired.Name, Namespace: desired.Namespace}, existing)
		if apierrors.IsNotFound(err) {
			if err := r.Create(ctx, desired); err != nil {
				return fmt.Errorf("creating pvc %s: %w", desired.Name, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("getting pvc %s: %w", desired.Name, err)
		}
	}
	return nil
}

// wantNetworkPolicy reports whether app's spec calls for a NetworkPolicy.
func wantNetworkPolicy(app *servarrv1alpha1.ServarrApp) bool {
	if app.Spec.NetworkPolicyConfig != nil {
		return true
	}
	return app.Spec.NetworkPolicy != nil && *app.Spec.NetworkPolicy
}

// reconcileNetworkPolicy force-applies, or removes, the NetworkPolicy for
// app depending on whether it's currently wanted.
func (r *ServarrAppReconciler) reconcileNetworkPolicy(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	name := types.NamespacedName{Name: builders.AppName(app), Namespace: builders.AppNamespace(app)}

	if !wantNetworkPolicy(app) {
		existing := &networkingv1.NetworkPolicy{ObjectMeta: metav1.ObjectMeta{Name: name.Name, Namespace: name.Namespace}}
		return client.IgnoreNotFound(r.Delete(ctx, existing))
	}

	desired := builders.NetworkPolicy(app)
	if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on networkpolicy: %w", err)
	}
	if err := serverSideApply(ctx, r.Client, r.Scheme, desired, fieldManager); err != nil {
		return fmt.Errorf("applying networkpolicy: %w", err)
	}
	return nil
}

// reconcileConfigMaps creates or updates every optional ConfigMap that
// app's type and config call for, and removes any that are no longer
// wanted (e.g. after a custom definition list is emptied).
func (r *ServarrAppReconciler) reconcileConfigMaps(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	suffixed := map[string]*corev1.ConfigMap{
		"":                     builders.ConfigMap(app),
		"prowlarr-definitions": builders.ProwlarrDefinitionsConfigMap(app),
		"tar-unpack":           builders.TarUnpackConfigMap(app),
		"restricted-rsync":     builders.SshBastionRestrictedRsyncConfigMap(app),
	}
	for suffix, desired := range suffixed {
		name := builders.AppName(app)
		if suffix != "" {
			name = builders.ChildName(app, suffix)
		}
		if err := r.reconcileOptionalConfigMap(ctx, app, types.NamespacedName{Name: name, Namespace: builders.AppNamespace(app)}, desired); err != nil {
			return err
		}
	}
	return nil
}

func (r *ServarrAppReconciler) reconcileOptionalConfigMap(ctx context.Context, app *servarrv1alpha1.ServarrApp, name types.NamespacedName, desired *corev1.ConfigMap) error {
	if desired == nil {
		existing := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: name.Name, Namespace: name.Namespace}}
		return client.IgnoreNotFound(r.Delete(ctx, existing))
	}

	if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on configmap %s: %w", name.Name, err)
	}
	if err := serverSideApply(ctx, r.Client, r.Scheme, desired, fieldManager); err != nil {
		return fmt.Errorf("applying configmap %s: %w", name.Name, err)
	}
	return nil
}

// reconcileSecret force-applies, or removes, the SSH bastion
// authorized-keys Secret.
func (r *ServarrAppReconciler) reconcileSecret(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	name := types.NamespacedName{Name: builders.ChildName(app, "authorized-keys"), Namespace: builders.AppNamespace(app)}

	desired := builders.AuthorizedKeysSecret(app)
	if desired == nil {
		existing := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: name.Name, Namespace: name.Namespace}}
		return client.IgnoreNotFound(r.Delete(ctx, existing))
	}

	if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on secret: %w", err)
	}
	if err := serverSideApply(ctx, r.Client, r.Scheme, desired, fieldManager); err != nil {
		return fmt.Errorf("applying secret: %w", err)
	}
	return nil
}

var (
	httpRouteGVK    = schema.GroupVersionKind{Group: "gateway.networking.k8s.io", Version: "v1", Kind: "HTTPRoute"}
	tcpRouteGVK     = schema.GroupVersionKind{Group: "gateway.networking.k8s.io", Version: "v1alpha2", Kind: "TCPRoute"}
	certificateGVK  = schema.GroupVersionKind{Group: "cert-manager.io", Version: "v1", Kind: "Certificate"}
)

// reconcileGatewayResources creates, updates, or removes the HTTPRoute,
// TCPRoute, and Certificate for app, all of which toggle on and off as the
// gateway/TLS spec changes.
func (r *ServarrAppReconciler) reconcileGatewayResources(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	name := types.NamespacedName{Name: builders.AppName(app), Namespace: builders.AppNamespace(app)}
	for _, res := range []struct {
		gvk     schema.GroupVersionKind
		desired *unstructured.Unstructured
	}{
		{httpRouteGVK, builders.HTTPRoute(app)},
		{tcpRouteGVK, builders.TCPRoute(app)},
		{certificateGVK, builders.Certificate(app)},
	} {
		if err := r.reconcileUnstructured(ctx, app, name, res.gvk, res.desired); err != nil {
			return err
		}
	}
	return nil
}

func (r *ServarrAppReconciler) reconcileUnstructured(ctx context.Context, app *servarrv1alpha1.ServarrApp, name types.NamespacedName, gvk schema.GroupVersionKind, desired *unstructured.Unstructured) error {
	if desired == nil {
		existing := &unstructured.Unstructured{}
		existing.SetGroupVersionKind(gvk)
		existing.SetName(name.Name)
		existing.SetNamespace(name.Namespace)
		if err := client.IgnoreNotFound(r.Delete(ctx, existing)); err != nil {
			// The CRD (Gateway API / cert-manager) may simply not be
			// installed in this cluster; treat that the same as
			// "not wanted" rather than failing the whole reconcile.
			if meta.IsNoMatchError(err) {
				return nil
			}
			return err
		}
		return nil
	}

	if err := controllerutil.SetControllerReference(app, desired, r.Scheme); err != nil {
		return fmt.Errorf("setting owner reference on %s: %w", gvk.Kind, err)
	}
	if err := r.Patch(ctx, desired, client.Apply, client.FieldOwner(fieldManager), client.ForceOwnership); err != nil {
		if meta.IsNoMatchError(err) {
			return nil
		}
		return fmt.Errorf("applying %s %s: %w", gvk.Kind, name.Name, err)
	}
	return nil
}

// cleanupChildResources handles resources not covered by owner-reference
// garbage collection: the app's own registrations in a sibling Prowlarr or
// Overseerr instance, if it was ever synced into one.
func (r *ServarrAppReconciler) cleanupChildResources(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	if err := r.cleanupProwlarrRegistration(ctx, app); err != nil {
		return fmt.Errorf("cleaning up prowlarr registration: %w", err)
	}
	if err := r.cleanupOverseerrRegistration(ctx, app); err != nil {
		return fmt.Errorf("cleaning up overseerr registration: %w", err)
	}
	return nil
}

// reconcileSync runs the Prowlarr/Overseerr application-sync pass when app
// is itself a sync-enabled Prowlarr or Overseerr instance. Downstream API
// failures are logged but never fail the reconcile.
func (r *ServarrAppReconciler) reconcileSync(ctx context.Context, app *servarrv1alpha1.ServarrApp) {
	log := logf.FromContext(ctx)

	switch app.Spec.App {
	case servarrv1alpha1.AppProwlarr:
		sync := prowlarrSyncSpec(app)
		if sync == nil || !sync.Enabled {
			return
		}
		target := builders.AppNamespace(app)
		if sync.NamespaceScope != nil {
			target = *sync.NamespaceScope
		}
		if err := r.syncProwlarrApps(ctx, app, target); err != nil {
			log.Info("prowlarr sync failed", "name", app.Name, "error", err.Error())
		}
	case servarrv1alpha1.AppOverseerr:
		sync := overseerrSyncSpec(app)
		if sync == nil || !sync.Enabled {
			return
		}
		target := builders.AppNamespace(app)
		if sync.NamespaceScope != nil {
			target = *sync.NamespaceScope
		}
		if err := r.syncOverseerrServers(ctx, app, target); err != nil {
			log.Info("overseerr sync failed", "name", app.Name, "error", err.Error())
		}
	}
}

// setCondition updates a single status condition on app and force-applies
// it via the status subresource.
func (r *ServarrAppReconciler) setCondition(ctx context.Context, app *servarrv1alpha1.ServarrApp,
	condType string, status metav1.ConditionStatus, reason, message string) error {
	meta.SetStatusCondition(&app.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: app.Generation,
	})
	if err := serverSideApplyStatus(ctx, r.Client, r.Scheme, app, fieldManager); err != nil {
		return fmt.Errorf("updating status condition %s: %w", condType, err)
	}
	return nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *ServarrAppReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&servarrv1alpha1.ServarrApp{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&corev1.Secret{}).
		Owns(&corev1.PersistentVolumeClaim{}).
		Owns(&networkingv1.NetworkPolicy{}).
		Named("servarrapp").
		Complete(r)
}
