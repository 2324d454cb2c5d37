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

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/apiclient"
	"github.com/RangerRick/servarr-operator/internal/builders"
)

func overseerrSyncSpec(app *servarrv1alpha1.ServarrApp) *servarrv1alpha1.OverseerrSyncSpec {
	if app.Spec.AppConfig == nil || app.Spec.AppConfig.Overseerr == nil {
		return nil
	}
	return app.Spec.AppConfig.Overseerr.Sync
}

// serverDefaultsFor resolves the Overseerr server-registration defaults for
// a discovered app type. It returns the same defaults for 4K and non-4K
// instances; the settings builders apply the FourK overrides themselves.
func serverDefaultsFor(overseerr *servarrv1alpha1.ServarrApp, appType servarrv1alpha1.AppType, is4k bool) *servarrv1alpha1.OverseerrServerDefaults {
	if overseerr.Spec.AppConfig == nil || overseerr.Spec.AppConfig.Overseerr == nil {
		return nil
	}
	cfg := overseerr.Spec.AppConfig.Overseerr
	switch appType {
	case servarrv1alpha1.AppSonarr:
		return cfg.Sonarr
	case servarrv1alpha1.AppRadarr:
		return cfg.Radarr
	default:
		return nil
	}
}

// syncOverseerrServers registers every discovered Sonarr/Radarr instance in
// the target namespace as an Overseerr server, updating the registration
// already stored under the same hostname and port and, when auto-remove is
// on, deleting registrations for
// servers that no longer exist.
func (r *ServarrAppReconciler) syncOverseerrServers(ctx context.Context, overseerr *servarrv1alpha1.ServarrApp, targetNamespace string) error {
	log := logf.FromContext(ctx)

	if overseerr.Spec.ApiKeySecret == nil {
		return nil
	}
	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(overseerr), *overseerr.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		return fmt.Errorf("reading overseerr api key: %w", err)
	}
	overseerrURL := appBaseURL(overseerr, servicePort(overseerr))
	oc, err := apiclient.NewOverseerrClient(overseerrURL, apiKey)
	if err != nil {
		return fmt.Errorf("building overseerr client: %w", err)
	}

	discovered, err := discoverNamespaceApps(ctx, r.Client, targetNamespace)
	if err != nil {
		return err
	}

	existingSonarr, err := oc.ListSonarr(ctx)
	if err != nil {
		return fmt.Errorf("listing overseerr sonarr servers: %w", err)
	}
	existingRadarr, err := oc.ListRadarr(ctx)
	if err != nil {
		return fmt.Errorf("listing overseerr radarr servers: %w", err)
	}
	byHostPortSonarr := indexByHostPort(existingSonarr)
	byHostPortRadarr := indexByHostPort(existingRadarr)

	autoRemove := true
	if sync := overseerrSyncSpec(overseerr); sync != nil {
		autoRemove = sync.AutoRemove
	}

	syncedSonarr, syncedRadarr := 0, 0
	keepSonarr := map[string]bool{}
	keepRadarr := map[string]bool{}

	for _, app := range discovered {
		switch app.appType {
		case servarrv1alpha1.AppSonarr:
			is4k := app.instance == "4k"
			d := serverDefaultsFor(overseerr, app.appType, is4k)
			settings := buildSonarrSettings(app, d, is4k)
			key := hostPortKey(app.hostname, app.port)
			keepSonarr[key] = true
			if current, ok := byHostPortSonarr[key]; ok {
				settings.ID = current.ID
				if _, err := oc.UpdateSonarr(ctx, current.ID, settings); err != nil {
					log.Info("updating overseerr sonarr server failed", "app", app.name, "error", err.Error())
					continue
				}
			} else if _, err := oc.CreateSonarr(ctx, settings); err != nil {
				log.Info("registering overseerr sonarr server failed", "app", app.name, "error", err.Error())
				continue
			}
			syncedSonarr++
		case servarrv1alpha1.AppRadarr:
			is4k := app.instance == "4k"
			d := serverDefaultsFor(overseerr, app.appType, is4k)
			settings := buildRadarrSettings(app, d, is4k)
			key := hostPortKey(app.hostname, app.port)
			keepRadarr[key] = true
			if current, ok := byHostPortRadarr[key]; ok {
				settings.ID = current.ID
				if _, err := oc.UpdateRadarr(ctx, current.ID, settings); err != nil {
					log.Info("updating overseerr radarr server failed", "app", app.name, "error", err.Error())
					continue
				}
			} else if _, err := oc.CreateRadarr(ctx, settings); err != nil {
				log.Info("registering overseerr radarr server failed", "app", app.name, "error", err.Error())
				continue
			}
			syncedRadarr++
		}
	}

	if autoRemove {
		for key, s := range byHostPortSonarr {
			if !keepSonarr[key] {
				if err := oc.DeleteSonarr(ctx, s.ID); err != nil {
					log.Info("removing stale overseerr sonarr server failed", "name", s.Name, "error", err.Error())
				}
			}
		}
		for key, s := range byHostPortRadarr {
			if !keepRadarr[key] {
				if err := oc.DeleteRadarr(ctx, s.ID); err != nil {
					log.Info("removing stale overseerr radarr server failed", "name", s.Name, "error", err.Error())
				}
			}
		}
	}

	if r.Recorder != nil {
		r.Recorder.Eventf(overseerr, corev1.EventTypeNormal, "OverseerrSyncComplete",
			"synced %d sonarr and %d radarr server(s) from namespace %s", syncedSonarr, syncedRadarr, targetNamespace)
	}
	return nil
}

func hostPortKey(hostname string, port int32) string {
	return fmt.Sprintf("%s:%d", hostname, port)
}

func indexByHostPort(servers []apiclient.ServerSettings) map[string]apiclient.ServerSettings {
	out := make(map[string]apiclient.ServerSettings, len(servers))
	for _, s := range servers {
		out[hostPortKey(s.Hostname, s.Port)] = s
	}
	return out
}

func buildSonarrSettings(app discoveredApp, d *servarrv1alpha1.OverseerrServerDefaults, is4k bool) *apiclient.ServerSettings {
	s := &apiclient.ServerSettings{
		Name:     app.name,
		Hostname: app.hostname,
		Port:     app.port,
		ApiKey:   app.apiKey,
		BaseUrl:  "",
		Is4K:     is4k,
	}
	if d == nil {
		return s
	}
	s.ActiveProfileId = d.ProfileId
	s.ActiveProfileName = d.ProfileName
	s.ActiveDirectory = d.RootFolder
	if d.EnableSeasonFolders != nil {
		s.SeasonFolders = *d.EnableSeasonFolders
	}
	if is4k && d.FourK != nil {
		s.ActiveProfileId = d.FourK.ProfileId
		s.ActiveProfileName = d.FourK.ProfileName
		s.ActiveDirectory = d.FourK.RootFolder
		if d.FourK.EnableSeasonFolders != nil {
			s.SeasonFolders = *d.FourK.EnableSeasonFolders
		}
	}
	return s
}

func buildRadarrSettings(app discoveredApp, d *servarrv1alpha1.OverseerrServerDefaults, is4k bool) *apiclient.ServerSettings {
	s := &apiclient.ServerSettings{
		Name:     app.name,
		Hostname: app.hostname,
		Port:     app.port,
		ApiKey:   app.apiKey,
		BaseUrl:  "",
		Is4K:     is4k,
	}
	if d == nil {
		return s
	}
	s.ActiveProfileId = d.ProfileId
	s.ActiveProfileName = d.ProfileName
	s.ActiveDirectory = d.RootFolder
	if d.MinimumAvailability != nil {
		s.MinimumAvailability = *d.MinimumAvailability
	}
	if is4k && d.FourK != nil {
		s.ActiveProfileId = d.FourK.ProfileId
		s.ActiveProfileName = d.FourK.ProfileName
		s.ActiveDirectory = d.FourK.RootFolder
		if d.FourK.MinimumAvailability != nil {
			s.MinimumAvailability = *d.FourK.MinimumAvailability
		}
	}
	return s
}

// overseerrSyncEnabled reports whether namespace has an Overseerr ServarrApp
// with sync enabled.
func (r *ServarrAppReconciler) overseerrSyncEnabled(ctx context.Context, namespace string) (*servarrv1alpha1.ServarrApp, bool) {
	var list servarrv1alpha1.ServarrAppList
	if err := r.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, false
	}
	for i := range list.Items {
		app := &list.Items[i]
		if app.Spec.App != servarrv1alpha1.AppOverseerr {
			continue
		}
		if sync := overseerrSyncSpec(app); sync != nil && sync.Enabled {
			return app, true
		}
	}
	return nil, false
}

// cleanupOverseerrRegistration removes app's own server registration from
// the namespace's sync-enabled Overseerr instance when app is deleted. It
// is a no-op when no such Overseerr instance exists.
func (r *ServarrAppReconciler) cleanupOverseerrRegistration(ctx context.Context, app *servarrv1alpha1.ServarrApp) error {
	var kind string
	switch app.Spec.App {
	case servarrv1alpha1.AppSonarr:
		kind = "sonarr"
	case servarrv1alpha1.AppRadarr:
		kind = "radarr"
	default:
		return nil
	}

	namespace := builders.AppNamespace(app)
	overseerr, ok := r.overseerrSyncEnabled(ctx, namespace)
	if !ok || overseerr.Spec.ApiKeySecret == nil {
		return nil
	}

	apiKey, err := apiclient.ReadSecretKey(ctx, r.Client, builders.AppNamespace(overseerr), *overseerr.Spec.ApiKeySecret, apiKeySecretDataKey)
	if err != nil {
		return fmt.Errorf("reading overseerr api key: %w", err)
	}
	overseerrURL := appBaseURL(overseerr, servicePort(overseerr))
	oc, err := apiclient.NewOverseerrClient(overseerrURL, apiKey)
	if err != nil {
		return fmt.Errorf("building overseerr client: %w", err)
	}

	hostname := fmt.Sprintf("%s.%s.svc", builders.AppName(app), namespace)
	port := servicePort(app)

	switch kind {
	case "sonarr":
		servers, err := oc.ListSonarr(ctx)
		if err != nil {
			return fmt.Errorf("listing overseerr sonarr servers: %w", err)
		}
		for _, s := range servers {
			if s.Hostname != hostname || s.Port != port {
				continue
			}
			if err := oc.DeleteSonarr(ctx, s.ID); err != nil {
				return fmt.Errorf("deleting overseerr sonarr server %d: %w", s.ID, err)
			}
			r.recordCleanup(app, overseerr)
			break
		}
	case "radarr":
		servers, err := oc.ListRadarr(ctx)
		if err != nil {
			return fmt.Errorf("listing overseerr radarr servers: %w", err)
		}
		for _, s := range servers {
			if s.Hostname != hostname || s.Port != port {
				continue
			}
			if err := oc.DeleteRadarr(ctx, s.ID); err != nil {
				return fmt.Errorf("deleting overseerr radarr server %d: %w", s.ID, err)
			}
			r.recordCleanup(app, overseerr)
			break
		}
	}
	return nil
}

func (r *ServarrAppReconciler) recordCleanup(app, _ *servarrv1alpha1.ServarrApp) {
	if r.Recorder != nil {
		r.Recorder.Eventf(app, corev1.EventTypeNormal, "OverseerrCleanup", "removed %s from overseerr", builders.AppName(app))
	}
}
