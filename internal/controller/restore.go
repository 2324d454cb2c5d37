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
	"strconv"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/apiclient"
	"github.com/RangerRick/servarr-operator/internal/builders"
	"github.com/RangerRick/servarr-operator/internal/metrics"
)

// restoreFromAnnotation names the annotation that, when set to a backup ID,
// triggers a scale-down/restore/scale-up cycle. It is removed once handled
// so it never re-triggers.
const restoreFromAnnotation = "servarr.dev/restore-from"

// restorePollInterval/restorePollAttempts bound how long maybeRestoreBackup
// waits for the Deployment to scale to zero before calling restore.
const (
	restorePollInterval = 5 * time.Second
	restorePollAttempts = 12
)

// maybeRestoreBackup handles a pending restoreFromAnnotation on app: scales
// the Deployment to 0, waits for pods to terminate, calls the app's restore
// API, scales back up, and clears the annotation. Only Servarr-v3 apps
// support restore; the annotation is cleared either way so it doesn't spin
// forever on an unsupported app type.
func (r *ServarrAppReconciler) maybeRestoreBackup(ctx context.Context, app *servarrv1alpha1.ServarrApp) {
	log := logf.FromContext(ctx)

	raw, ok := app.Annotations[restoreFromAnnotation]
	if !ok {
		return
	}
	defer r.clearRestoreAnnotation(ctx, app)

	backupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Info("invalid restore-from annotation, expected integer backup ID", "name", app.Name, "value", raw)
		return
	}

	kind, ok := servarrV3Kind(app.Spec.App)
	if !ok {
		log.Info("restore-from-backup is only supported for servarr-v3 apps", "name", app.Name)
		return
	}
	if app.Spec.ApiKeySecret == nil {
		log.Info("no api key secret configured, cannot restore", "name", app.Name)
		return
	}

	log.Info("restore-from-backup triggered", "name", app.Name, "backupId", backupID)
	if r.Recorder != nil {
		r.Recorder.Eventf(app, corev1.EventTypeNormal, "RestoreStarted", "scaling down for restore from backup %d", backupID)
	}

	name := types.NamespacedName{Name: builders.AppName(app), Namespace: builders.AppNamespace(app)}
	if err := r.scaleDeployment(ctx, name, 0); err != nil {
		log.Error(err, "failed to scale down for restore", "name", app.Name)
		return
	}
	r.waitForZeroReplicas(ctx, name)

	defer func() {
		if err := r.scaleDeployment(ctx, name, 1); err != nil {
			log.Error(err, "failed to scale back up after restore", "name", app.Name)
		}
	}()

	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(app), *app.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		log.Error(err, "failed to read api key for restore", "name", app.Name)
		return
	}
	baseURL := appBaseURL(app, servicePort(app))
	c, err := apiclient.NewServarrClient(baseURL, apiKey, kind)
	if err != nil {
		log.Error(err, "failed to create api client for restore", "name", app.Name)
		return
	}

	if err := c.RestoreBackup(ctx, backupID); err != nil {
		log.Info("restore api call failed", "name", app.Name, "backupId", backupID, "error", err.Error())
		if r.Recorder != nil {
			r.Recorder.Eventf(app, corev1.EventTypeWarning, "RestoreFailed", "failed to restore from backup %d: %s", backupID, err.Error())
		}
		metrics.IncrementBackupOperations(string(app.Spec.App), "restore", "failure")
		return
	}

	log.Info("restore completed successfully", "name", app.Name, "backupId", backupID)
	if r.Recorder != nil {
		r.Recorder.Eventf(app, corev1.EventTypeNormal, "RestoreComplete", "successfully restored from backup %d", backupID)
	}
	metrics.IncrementBackupOperations(string(app.Spec.App), "restore", "success")
}

func (r *ServarrAppReconciler) scaleDeployment(ctx context.Context, name types.NamespacedName, replicas int32) error {
	dep := &appsv1.Deployment{}
	if err := r.Get(ctx, name, dep); err != nil {
		return fmt.Errorf("getting deployment %s: %w", name.Name, err)
	}
	dep.Spec.Replicas = &replicas
	return r.Update(ctx, dep)
}

func (r *ServarrAppReconciler) waitForZeroReplicas(ctx context.Context, name types.NamespacedName) {
	log := logf.FromContext(ctx)
	for i := 0; i < restorePollAttempts; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(restorePollInterval):
		}
		dep := &appsv1.Deployment{}
		if err := r.Get(ctx, name, dep); err != nil {
			log.Info("failed to check deployment status during restore", "name", name.Name, "error", err.Error())
			return
		}
		if dep.Status.ReadyReplicas == 0 {
			return
		}
	}
}

func (r *ServarrAppReconciler) clearRestoreAnnotation(ctx context.Context, app *servarrv1alpha1.ServarrApp) {
	log := logf.FromContext(ctx)
	delete(app.Annotations, restoreFromAnnotation)
	if err := r.Update(ctx, app); err != nil {
		log.Error(err, "failed to remove restore-from annotation", "name", app.Name)
	}
}
