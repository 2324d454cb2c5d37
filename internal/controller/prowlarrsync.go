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

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/apiclient"
	"github.com/RangerRick/servarr-operator/internal/builders"
)

// discoveredApp is a sibling Sonarr/Radarr/Lidarr instance found while
// scanning a namespace for applications to register in Prowlarr/Overseerr.
type discoveredApp struct {
	name     string
	appType  servarrv1alpha1.AppType
	instance string
	baseURL  string
	hostname string
	port     int32
	apiKey   string
}

// discoverNamespaceApps lists every Sonarr/Radarr/Lidarr ServarrApp in
// namespace that has an api key secret configured, resolving each one's
// in-cluster base URL and API key. Apps without an api key secret are
// skipped — there is nothing to register with.
func discoverNamespaceApps(ctx context.Context, c client.Client, namespace string) ([]discoveredApp, error) {
	log := logf.FromContext(ctx)

	var list servarrv1alpha1.ServarrAppList
	if err := c.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("listing servarr apps in %s: %w", namespace, err)
	}

	var out []discoveredApp
	for i := range list.Items {
		app := &list.Items[i]
		switch app.Spec.App {
		case servarrv1alpha1.AppSonarr, servarrv1alpha1.AppRadarr, servarrv1alpha1.AppLidarr:
		default:
			continue
		}
		if app.Spec.ApiKeySecret == nil {
			continue
		}
		apiKey, err := apiclient.ReadSecretKey(ctx, c, namespace, *app.Spec.ApiKeySecret, apiKeySecretDataKey)
		if err != nil {
			log.Info("skipping app with unreadable api key secret", "app", app.Name, "error", err.Error())
			continue
		}
		port := servicePort(app)
		out = append(out, discoveredApp{
			name:     builders.AppName(app),
			appType:  app.Spec.App,
			instance: stringValue(app.Spec.Instance),
			baseURL:  appBaseURL(app, port),
			hostname: fmt.Sprintf("%s.%s.svc", builders.AppName(app), builders.AppNamespace(app)),
			port:     port,
			apiKey:   apiKey,
		})
	}
	return out, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func prowlarrImplementation(t servarrv1alpha1.AppType) (implementation, configContract string, ok bool) {
	switch t {
	case servarrv1alpha1.AppSonarr:
		return "Sonarr", "SonarrSettings", true
	case servarrv1alpha1.AppRadarr:
		return "Radarr", "RadarrSettings", true
	case servarrv1alpha1.AppLidarr:
		return "Lidarr", "LidarrSettings", true
	default:
		return "", "", false
	}
}

func jsonField(name, value string) apiclient.ProwlarrAppField {
	raw, _ := json.Marshal(value)
	return apiclient.ProwlarrAppField{Name: name, Value: raw}
}

// syncProwlarrApps registers every discovered Sonarr/Radarr/Lidarr instance
// in the target namespace as a Prowlarr application, updating registrations
// (keyed by base URL) whose name changed and, when auto-remove is on, deleting
// registrations for apps that no longer exist.
func (r *ServarrAppReconciler) syncProwlarrApps(ctx context.Context, prowlarr *servarrv1alpha1.ServarrApp, targetNamespace string) error {
	log := logf.FromContext(ctx)

	if prowlarr.Spec.ApiKeySecret == nil {
		return nil
	}
	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(prowlarr), *prowlarr.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		return fmt.Errorf("reading prowlarr api key: %w", err)
	}
	prowlarrURL := appBaseURL(prowlarr, servicePort(prowlarr))
	pc, err := apiclient.NewProwlarrClient(prowlarrURL, apiKey)
	if err != nil {
		return fmt.Errorf("building prowlarr client: %w", err)
	}

	discovered, err := discoverNamespaceApps(ctx, r.Client, targetNamespace)
	if err != nil {
		return err
	}

	existing, err := pc.ListApplications(ctx)
	if err != nil {
		return fmt.Errorf("listing prowlarr applications: %w", err)
	}
	byBaseURL := make(map[string]apiclient.ProwlarrApp, len(existing))
	for _, a := range existing {
		if u := fieldValue(a.Fields, "baseUrl"); u != "" {
			byBaseURL[u] = a
		}
	}

	autoRemove := true
	if sync := prowlarrSyncSpec(prowlarr); sync != nil {
		autoRemove = sync.AutoRemove
	}

	syncedURLs := make(map[string]bool, len(discovered))
	for _, app := range discovered {
		implementation, configContract, ok := prowlarrImplementation(app.appType)
		if !ok {
			continue
		}
		syncedURLs[app.baseURL] = true
		desired := apiclient.ProwlarrApp{
			Name:           app.name,
			SyncLevel:      "fullSync",
			Implementation: implementation,
			ConfigContract: configContract,
			Fields: []apiclient.ProwlarrAppField{
				jsonField("baseUrl", app.baseURL),
				jsonField("apiKey", app.apiKey),
			},
		}

		if current, ok := byBaseURL[app.baseURL]; ok {
			if current.Name != desired.Name {
				if _, err := pc.UpdateApplication(ctx, current.ID, &desired); err != nil {
					log.Info("updating prowlarr application failed", "app", app.name, "error", err.Error())
				}
			}
			continue
		}
		if _, err := pc.AddApplication(ctx, &desired); err != nil {
			log.Info("registering prowlarr application failed", "app", app.name, "error", err.Error())
		}
	}

	if autoRemove {
		for baseURL, a := range byBaseURL {
			if syncedURLs[baseURL] {
				continue
			}
			if err := pc.DeleteApplication(ctx, a.ID); err != nil {
				log.Info("removing stale prowlarr application failed", "name", a.Name, "error", err.Error())
			}
		}
	}

	if r.Recorder != nil {
		r.Recorder.Eventf(prowlarr, corev1.EventTypeNormal, "ProwlarrSyncComplete", "synced %d app(s) from namespace %s", len(discovered), targetNamespace)
	}
	return nil
}

func fieldValue(fields []apiclient.ProwlarrAppField, name string) string {
	for _, f := range fields {
		if f.Name != name {
			continue
		}
		var s string
		if err := json.Unmarshal(f.Value, &s); err == nil {
			return s
		}
	}
	return ""
}

func prowlarrSyncSpec(app *servarrv1alpha1.ServarrApp) *servarrv1alpha1.ProwlarrSyncSpec {
	if app.Spec.AppConfig == nil || app.Spec.AppConfig.Prowlarr == nil {
		return nil
	}
	return app.Spec.AppConfig.Prowlarr.Sync
}

// prowlarrSyncEnabled reports whether namespace has a Prowlarr ServarrApp
// with sync enabled.
func (r *ServarrAppReconciler) prowlarrSyncEnabled(ctx context.Context, namespace string) (*servarrv1alpha1.ServarrApp, bool) {
	var list servarrv1alpha1.ServarrAppList
	if err := r.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, false
	}
	for i := range list.Items {
		app := &list.Items[i]
		if app.Spec.App != servarrv1alpha1.AppProwlarr {
			continue
		}
		if sync := prowlarrSyncSpec(app); sync != nil && sync.Enabled {
			return app, true
		}
	}
	return nil, false
}

// cleanupProwlarrRegistration removes app's own registration from the
// namespace's sync-enabled Prowlarr instance when app is deleted. It is a
// no-op when no such Prowlarr instance exists.
func (r *ServarrAppReconciler) cleanupProwlarrRegistration(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	switch app.Spec.App {
	case servarrv1alpha1.AppSonarr, servarrv1alpha1.AppRadarr, servarrv1alpha1.AppLidarr:
	default:
		return nil
	}

	namespace := builders.AppNamespace(app)
	prowlarr, ok := r.prowlarrSyncEnabled(ctx, namespace)
	if !ok || prowlarr.Spec.ApiKeySecret == nil {
		return nil
	}

	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(prowlarr), *prowlarr.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		return fmt.Errorf("reading prowlarr api key: %w", err)
	}
	prowlarrURL := appBaseURL(prowlarr, servicePort(prowlarr))
	pc, err := apiclient.NewProwlarrClient(prowlarrURL, apiKey)
	if err != nil {
		return fmt.Errorf("building prowlarr client: %w", err)
	}

	appURL := appBaseURL(app, servicePort(app))
	existing, err := pc.ListApplications(ctx)
	if err != nil {
		return fmt.Errorf("listing prowlarr applications: %w", err)
	}
	for _, a := range existing {
		if fieldValue(a.Fields, "baseUrl") != appURL {
			continue
		}
		if err := pc.DeleteApplication(ctx, a.ID); err != nil {
			return fmt.Errorf("deleting prowlarr application %d: %w", a.ID, err)
		}
		if r.Recorder != nil {
			r.Recorder.Eventf(app, corev1.EventTypeNormal, "ProwlarrCleanup", "removed %s from prowlarr", builders.AppName(app))
		}
		break
	}
	return nil
}
