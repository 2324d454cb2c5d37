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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AppType identifies which Servarr-family application a ServarrApp runs.
// +kubebuilder:validation:Enum=sonarr;radarr;lidarr;prowlarr;sabnzbd;transmission;tautulli;overseerr;maintainerr;jackett;jellyfin;plex;ssh-bastion
type AppType string

const (
	AppSonarr       AppType = "sonarr"
	AppRadarr       AppType = "radarr"
	AppLidarr       AppType = "lidarr"
	AppProwlarr     AppType = "prowlarr"
	AppSabnzbd      AppType = "sabnzbd"
	AppTransmission AppType = "transmission"
	AppTautulli     AppType = "tautulli"
	AppOverseerr    AppType = "overseerr"
	AppMaintainerr  AppType = "maintainerr"
	AppJackett      AppType = "jackett"
	AppJellyfin     AppType = "jellyfin"
	AppPlex         AppType = "plex"
	AppSshBastion   AppType = "ssh-bastion"
)

// Tier returns the startup tier for this app type, used by MediaStack to
// order rollout:
//
//   - Tier 0 — media servers & infrastructure (Plex, Jellyfin, SshBastion)
//   - Tier 1 — download clients (Sabnzbd, Transmission)
//   - Tier 2 — media managers (Sonarr, Radarr, Lidarr)
//   - Tier 3 — ancillary (Tautulli, Overseerr, Maintainerr, Prowlarr, Jackett)
func (t AppType) Tier() uint8 {
	switch t {
	case AppPlex, AppJellyfin, AppSshBastion:
		return 0
	case AppSabnzbd, AppTransmission:
		return 1
	case AppSonarr, AppRadarr, AppLidarr:
		return 2
	case AppTautulli, AppOverseerr, AppMaintainerr, AppProwlarr, AppJackett:
		return 3
	default:
		return 3
	}
}

// TierName returns the human-readable name for a rollout tier.
func TierName(tier uint8) string {
	switch tier {
	case 0:
		return "MediaServers"
	case 1:
		return "DownloadClients"
	case 2:
		return "MediaManagers"
	case 3:
		return "Ancillary"
	default:
		return "Unknown"
	}
}

// ServarrAppSpec defines the desired state of a single Servarr-family app
// instance. All fields besides App represent overrides layered on top of
// the AppDefaults registry entry for App.
type ServarrAppSpec struct {
	// +kubebuilder:validation:Required
	App AppType `json:"app"`

	// Instance distinguishes multiple instances of the same AppType within a
	// namespace (e.g. "4k", "anime"). Immutable once set.
	// +optional
	Instance *string `json:"instance,omitempty"`

	// +optional
	Image *ImageSpec `json:"image,omitempty"`

	// +optional
	Uid *int64 `json:"uid,omitempty"`
	// +optional
	Gid *int64 `json:"gid,omitempty"`

	// +optional
	Security *SecurityProfile `json:"security,omitempty"`

	// +optional
	Service *ServiceSpec `json:"service,omitempty"`

	// +optional
	Gateway *GatewaySpec `json:"gateway,omitempty"`

	// +optional
	Resources *ResourceRequirements `json:"resources,omitempty"`

	// +optional
	Persistence *PersistenceSpec `json:"persistence,omitempty"`

	// Env merges by name, last-wins, over the AppDefaults' base env.
	// +optional
	Env []EnvVar `json:"env,omitempty"`

	// +optional
	Probes *ProbeSpec `json:"probes,omitempty"`

	// +optional
	Scheduling *NodeScheduling `json:"scheduling,omitempty"`

	// NetworkPolicy toggles creation of a basic NetworkPolicy. Ignored when
	// NetworkPolicyConfig is set.
	// +optional
	NetworkPolicy *bool `json:"networkPolicy,omitempty"`

	// NetworkPolicyConfig is fine-grained NetworkPolicy configuration. Takes
	// precedence over NetworkPolicy when set.
	// +optional
	NetworkPolicyConfig *NetworkPolicyConfig `json:"networkPolicyConfig,omitempty"`

	// AppConfig holds app-type-specific configuration. Must match App (see
	// webhook rule 1).
	// +optional
	AppConfig *AppConfig `json:"appConfig,omitempty"`

	// ApiKeySecret names a Secret containing an api-key data field, used for
	// API health checks and backup operations.
	// +optional
	ApiKeySecret *string `json:"apiKeySecret,omitempty"`

	// +optional
	ApiHealthCheck *ApiHealthCheckSpec `json:"apiHealthCheck,omitempty"`

	// +optional
	Backup *BackupSpec `json:"backup,omitempty"`

	// ImagePullSecrets names Secrets for private registry authentication.
	// +optional
	ImagePullSecrets []string `json:"imagePullSecrets,omitempty"`

	// PodAnnotations are additional annotations merged onto the pod template.
	// +optional
	PodAnnotations map[string]string `json:"podAnnotations,omitempty"`

	// +optional
	Gpu *GpuSpec `json:"gpu,omitempty"`
}

// ServarrAppStatus defines the observed state of a ServarrApp.
type ServarrAppStatus struct {
	// +optional
	Ready bool `json:"ready,omitempty"`
	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
	// +optional
	Backup *BackupStatus `json:"backup,omitempty"`
	// LastAppliedHash holds a hash of an applied desired state. The
	// ServarrApp reconciler neither sets nor reads it.
	// +optional
	LastAppliedHash string `json:"lastAppliedHash,omitempty"`
}

// BackupStatus records the outcome of the most recent backup operation.
type BackupStatus struct {
	// +optional
	LastBackupTime *metav1.Time `json:"lastBackupTime,omitempty"`
	// +optional
	LastBackupResult string `json:"lastBackupResult,omitempty"`
	// +optional
	BackupCount uint32 `json:"backupCount,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=sa
// +kubebuilder:printcolumn:name="App",type="string",JSONPath=".spec.app"
// +kubebuilder:printcolumn:name="Instance",type="string",JSONPath=".spec.instance",priority=1
// +kubebuilder:printcolumn:name="Ready",type="boolean",JSONPath=".status.ready"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// ServarrApp is the Schema for the servarrapps API. It represents a single
// instance of a Servarr-family media automation app, reconciled into a
// Deployment, Service, and any enabled optional child resources (PVC,
// NetworkPolicy, Gateway API route, cert-manager Certificate, ConfigMaps).
type ServarrApp struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ServarrAppSpec   `json:"spec,omitempty"`
	Status ServarrAppStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ServarrAppList contains a list of ServarrApp.
type ServarrAppList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ServarrApp `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ServarrApp{}, &ServarrAppList{})
}
