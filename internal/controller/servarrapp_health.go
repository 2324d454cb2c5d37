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
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/apiclient"
	"github.com/RangerRick/servarr-operator/internal/backup"
	"github.com/RangerRick/servarr-operator/internal/builders"
	"github.com/RangerRick/servarr-operator/internal/metrics"
)

const apiKeySecretDataKey = "api-key"

// servarrV3Kind maps an AppType onto the ServarrClient's AppKind, or false
// when app isn't one of the four Servarr-v3-family apps.
func servarrV3Kind(app servarrv1alpha1.AppType) (apiclient.AppKind, bool) {
	switch app {
	case servarrv1alpha1.AppSonarr:
		return apiclient.AppKindSonarr, true
	case servarrv1alpha1.AppRadarr:
		return apiclient.AppKindRadarr, true
	case servarrv1alpha1.AppLidarr:
		return apiclient.AppKindLidarr, true
	case servarrv1alpha1.AppProwlarr:
		return apiclient.AppKindProwlarr, true
	default:
		return "", false
	}
}

// appBaseURL builds the in-cluster base URL for app's primary Service port.
func appBaseURL(app *servarrv1alpha1.ServarrApp, port int32) string {
	return fmt.Sprintf("http://%s.%s.svc:%d", builders.AppName(app), builders.AppNamespace(app), port)
}

func servicePort(app *servarrv1alpha1.ServarrApp) int32 {
	return builders.FirstServicePort(app)
}

// reconcileHealth runs the API-driven health check configured via
// ApiHealthCheck, reporting AppHealthy (and, for Servarr-v3 apps,
// UpdateAvailable) conditions. Downstream failures never fail the
// reconcile — they surface only as a False/Unknown condition.
func (r *ServarrAppReconciler) reconcileHealth(ctx context.Context, app *servarrv1alpha1.ServarrApp) {
	log := logf.FromContext(ctx)

	check := app.Spec.ApiHealthCheck
	if check == nil || !check.Enabled || app.Spec.ApiKeySecret == nil {
		return
	}

	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(app), *app.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		log.Error(err, "reading api key secret", "name", app.Name)
		_ = r.setCondition(ctx, app, servarrv1alpha1.ConditionAppHealthy, metav1.ConditionUnknown, "ApiKeyUnavailable", err.Error())
		return
	}

	baseURL := appBaseURL(app, servicePort(app))
	healthy, err := r.checkHealth(ctx, app, baseURL, apiKey)
	if err != nil {
		log.Info("health check failed", "name", app.Name, "error", err.Error())
		_ = r.setCondition(ctx, app, servarrv1alpha1.ConditionAppHealthy, metav1.ConditionUnknown, "HealthCheckFailed", err.Error())
		return
	}

	status, reason, message := metav1.ConditionFalse, "Unhealthy", "app health check failed"
	if healthy {
		status, reason, message = metav1.ConditionTrue, "Healthy", "app health check succeeded"
	}
	_ = r.setCondition(ctx, app, servarrv1alpha1.ConditionAppHealthy, status, reason, message)

	if kind, ok := servarrV3Kind(app.Spec.App); ok {
		r.reconcileUpdateAvailable(ctx, app, baseURL, apiKey, kind)
	}
}

func (r *ServarrAppReconciler) checkHealth(ctx context.Context, app *servarrv1alpha1.ServarrApp, baseURL, apiKey string) (bool, error) {
	hc, err := r.buildHealthCheck(ctx, app, baseURL, apiKey)
	if err != nil {
		return false, err
	}
	if hc == nil {
		return false, fmt.Errorf("no API health check support for app type %s", app.Spec.App)
	}
	return r.Breakers.CheckHealth(ctx, breakerKey(app), hc)
}

func breakerKey(app *servarrv1alpha1.ServarrApp) string {
	return builders.AppNamespace(app) + "/" + builders.AppName(app)
}

// buildHealthCheck constructs the apiclient HealthCheck appropriate for
// app's type, or nil for app types with no API health endpoint wired.
func (r *ServarrAppReconciler) buildHealthCheck(ctx context.Context, app *servarrv1alpha1.ServarrApp, baseURL, apiKey string) (apiclient.HealthCheck, error) {
	switch app.Spec.App {
	case servarrv1alpha1.AppSonarr, servarrv1alpha1.AppRadarr, servarrv1alpha1.AppLidarr, servarrv1alpha1.AppProwlarr:
		kind, _ := servarrV3Kind(app.Spec.App)
		return apiclient.NewServarrClient(baseURL, apiKey, kind)
	case servarrv1alpha1.AppSabnzbd:
		return apiclient.NewSabnzbdClient(baseURL, apiKey)
	case servarrv1alpha1.AppTransmission:
		return r.buildTransmissionHealthCheck(ctx, app, baseURL)
	case servarrv1alpha1.AppPlex:
		return apiclient.NewPlexClient(baseURL)
	case servarrv1alpha1.AppJellyfin:
		return apiclient.NewJellyfinClient(baseURL)
	default:
		return nil, nil
	}
}

func (r *ServarrAppReconciler) buildTransmissionHealthCheck(ctx context.Context, app *servarrv1alpha1.ServarrApp, baseURL string) (apiclient.HealthCheck, error) {
	var username, password string
	if tc := app.Spec.AppConfig; tc != nil && tc.Transmission != nil && tc.Transmission.Auth != nil {
		var err error
		username, err = apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(app), tc.Transmission.Auth.SecretName, "username")
		if err != nil {
			return nil, fmt.Errorf("reading transmission auth username: %w", err)
		}
		password, err = apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(app), tc.Transmission.Auth.SecretName, "password")
		if err != nil {
			return nil, fmt.Errorf("reading transmission auth password: %w", err)
		}
	}
	return apiclient.NewTransmissionClient(baseURL, username, password)
}

// reconcileUpdateAvailable reports whether the Sonarr/Radarr/Lidarr/Prowlarr
// app at baseURL has a pending update, via its update-list endpoint.
func (r *ServarrAppReconciler) reconcileUpdateAvailable(ctx context.Context, app *servarrv1alpha1.ServarrApp, baseURL, apiKey string, kind apiclient.AppKind) {
	log := logf.FromContext(ctx)

	c, err := apiclient.NewServarrClient(baseURL, apiKey, kind)
	if err != nil {
		return
	}
	updates, err := c.Updates(ctx)
	if err != nil {
		log.Info("checking for updates failed", "name", app.Name, "error", err.Error())
		_ = r.setCondition(ctx, app, servarrv1alpha1.ConditionUpdateAvailable, metav1.ConditionUnknown, "UpdateCheckFailed", err.Error())
		return
	}

	pending := false
	for _, u := range updates {
		if !u.Installed {
			pending = true
			break
		}
	}
	status, reason, message := metav1.ConditionFalse, "UpToDate", "no pending updates"
	if pending {
		status, reason, message = metav1.ConditionTrue, "UpdatePending", "a newer version is available"
	}
	_ = r.setCondition(ctx, app, servarrv1alpha1.ConditionUpdateAvailable, status, reason, message)
}

// reconcileBackup triggers a backup through the app's API when one is due,
// per its cron schedule, and prunes old backups past RetentionCount.
func (r *ServarrAppReconciler) reconcileBackup(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	log := logf.FromContext(ctx)

	b := app.Spec.Backup
	if b == nil || !b.Enabled || app.Spec.ApiKeySecret == nil {
		return nil
	}
	kind, ok := servarrV3Kind(app.Spec.App)
	if !ok {
		// Backup orchestration is only wired for the Servarr-v3 family API.
		return nil
	}

	var lastTime *time.Time
	if app.Status.Backup != nil && app.Status.Backup.LastBackupTime != nil {
		t := app.Status.Backup.LastBackupTime.Time
		lastTime = &t
	}

	due, err := backup.Due(b.Schedule, lastTime, time.Now())
	if err != nil {
		return fmt.Errorf("evaluating backup schedule: %w", err)
	}
	if !due {
		return nil
	}

	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(app), *app.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		return fmt.Errorf("reading api key secret: %w", err)
	}

	baseURL := appBaseURL(app, servicePort(app))
	c, err := apiclient.NewServarrClient(baseURL, apiKey, kind)
	if err != nil {
		return fmt.Errorf("building servarr client: %w", err)
	}

	created, err := c.CreateBackup(ctx)
	now := metav1.NewTime(time.Now())
	if err != nil {
		app.Status.Backup = &servarrv1alpha1.BackupStatus{
			LastBackupTime:   &now,
			LastBackupResult: fmt.Sprintf("failed: %s", err.Error()),
		}
		if serr := serverSideApplyStatus(ctx, r.Client, r.Scheme, app, fieldManager); serr != nil {
			log.Error(serr, "updating backup status after failure", "name", app.Name)
		}
		metrics.IncrementBackupOperations(string(app.Spec.App), "backup", "failure")
		return fmt.Errorf("creating backup: %w", err)
	}

	backups, err := c.ListBackups(ctx)
	if err == nil {
		pruneOldBackups(ctx, c, backups, b.RetentionCount)
	}

	count := uint32(0)
	if app.Status.Backup != nil {
		count = app.Status.Backup.BackupCount
	}
	count++

	result := "succeeded"
	if created != nil {
		result = fmt.Sprintf("succeeded: %s", created.Path)
	}
	app.Status.Backup = &servarrv1alpha1.BackupStatus{
		LastBackupTime:   &now,
		LastBackupResult: result,
		BackupCount:      count,
	}
	metrics.IncrementBackupOperations(string(app.Spec.App), "backup", "success")
	return serverSideApplyStatus(ctx, r.Client, r.Scheme, app, fieldManager)
}

// pruneOldBackups deletes the oldest backups past retention, best-effort.
func pruneOldBackups(ctx context.Context, c *apiclient.ServarrClient, backups []apiclient.Backup, retention uint32) {
	log := logf.FromContext(ctx)
	if uint32(len(backups)) <= retention {
		return
	}
	// Backups are returned newest-first by the Servarr v3 API; prune from
	// the tail.
	for _, b := range backups[retention:] {
		if err := c.DeleteBackup(ctx, b.ID); err != nil {
			log.Info("pruning old backup failed", "id", b.ID, "error", err.Error())
		}
	}
}
