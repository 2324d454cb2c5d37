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
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

// AppConfig holds app-type-specific configuration. Exactly one field may be
// set, and it must correspond to Spec.App (enforced by the validating
// webhook, not the schema, since CRD schemas can't express tagged-union
// exclusivity across separate struct fields).
type AppConfig struct {
	// +optional
	Transmission *TransmissionConfig `json:"transmission,omitempty"`
	// +optional
	Sabnzbd *SabnzbdConfig `json:"sabnzbd,omitempty"`
	// +optional
	Prowlarr *ProwlarrConfig `json:"prowlarr,omitempty"`
	// +optional
	SshBastion *SshBastionConfig `json:"sshBastion,omitempty"`
	// +optional
	Overseerr *OverseerrConfig `json:"overseerr,omitempty"`
}

// IndexerDefinition is a custom Prowlarr indexer definition.
//
// Each definition becomes a YAML file placed in
// /config/Definitions/Custom/{name}.yml inside the Prowlarr container.
type IndexerDefinition struct {
	// Name (without extension) for the definition file. Must be alphanumeric
	// with optional hyphens (e.g. "my-private-tracker").
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// Content is the YAML body of the Prowlarr indexer definition.
	// +kubebuilder:validation:Required
	Content string `json:"content"`
}

// ProwlarrConfig configures Prowlarr-specific behavior.
type ProwlarrConfig struct {
	// CustomDefinitions are placed in /config/Definitions/Custom.
	// +optional
	CustomDefinitions []IndexerDefinition `json:"customDefinitions,omitempty"`
	// Sync configures automatic registration of sibling Sonarr/Radarr/Lidarr
	// instances as Prowlarr applications.
	// +optional
	Sync *ProwlarrSyncSpec `json:"sync,omitempty"`
}

// SabnzbdConfig configures SABnzbd-specific behavior.
type SabnzbdConfig struct {
	// HostWhitelist lists hostnames SABnzbd should accept connections from.
	// Required for reverse proxy setups (e.g. ["sonarr.example.com"]).
	// +optional
	HostWhitelist []string `json:"hostWhitelist,omitempty"`
	// TarUnpack enables automatic tar/archive unpacking after downloads
	// complete. Installs compression tools and a post-processing script.
	// +optional
	TarUnpack bool `json:"tarUnpack,omitempty"`
}

// PeerPortConfig configures the Transmission BitTorrent peer port.
type PeerPortConfig struct {
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	Port int32 `json:"port"`
	// +optional
	HostPort bool `json:"hostPort,omitempty"`
	// +optional
	RandomOnStart bool `json:"randomOnStart,omitempty"`
	// +optional
	// +kubebuilder:default=49152
	RandomLow int32 `json:"randomLow,omitempty"`
	// +optional
	// +kubebuilder:default=65535
	RandomHigh int32 `json:"randomHigh,omitempty"`
}

// TransmissionAuth references the Secret holding RPC basic-auth credentials.
type TransmissionAuth struct {
	// +kubebuilder:validation:Required
	SecretName string `json:"secretName"`
}

// TransmissionConfig configures Transmission-specific behavior.
type TransmissionConfig struct {
	// Settings is raw settings.json content merged over the operator's
	// defaults. Must not set any operator-managed key (see
	// TransmissionManagedKeys) — enforced by the validating webhook.
	// +optional
	// +kubebuilder:pruning:PreserveUnknownFields
	Settings apiextensionsv1.JSON `json:"settings,omitempty"`
	// +optional
	PeerPort *PeerPortConfig `json:"peerPort,omitempty"`
	// +optional
	Auth *TransmissionAuth `json:"auth,omitempty"`
}

// SshMode selects the bastion's SSH access mode.
// +kubebuilder:validation:Enum=shell;sftp;scp;rsync;restricted-rsync
type SshMode string

const (
	SshModeShell           SshMode = "shell"
	SshModeSftp            SshMode = "sftp"
	SshModeScp             SshMode = "scp"
	SshModeRsync           SshMode = "rsync"
	SshModeRestrictedRsync SshMode = "restricted-rsync"
)

// SshUser is an SSH user provisioned on the bastion.
type SshUser struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// +kubebuilder:validation:Required
	Uid int64 `json:"uid"`
	// +kubebuilder:validation:Required
	Gid int64 `json:"gid"`
	// Shell overrides the login shell; defaults derive from Mode.
	// +optional
	Shell *string `json:"shell,omitempty"`
	// PublicKeys holds one OpenSSH public key per line.
	// +optional
	PublicKeys string `json:"publicKeys,omitempty"`
}

// RestrictedRsyncConfig configures restricted-rsync mode.
type RestrictedRsyncConfig struct {
	// AllowedPaths lists the paths users are allowed to rsync from.
	// +optional
	AllowedPaths []string `json:"allowedPaths,omitempty"`
	// +optional
	// +kubebuilder:default=true
	ReadOnly bool `json:"readOnly,omitempty"`
}

// SshBastionConfig configures the SSH bastion app.
type SshBastionConfig struct {
	// +optional
	Users []SshUser `json:"users,omitempty"`
	// +optional
	// +kubebuilder:default="shell"
	Mode SshMode `json:"mode,omitempty"`
	// +optional
	EnablePasswordAuth bool `json:"enablePasswordAuth,omitempty"`
	// +optional
	TcpForwarding bool `json:"tcpForwarding,omitempty"`
	// +optional
	GatewayPorts bool `json:"gatewayPorts,omitempty"`
	// +optional
	Motd string `json:"motd,omitempty"`
	// +optional
	DisableSftp bool `json:"disableSftp,omitempty"`
	// +optional
	// +kubebuilder:default="%h"
	SftpChroot string `json:"sftpChroot,omitempty"`
	// RestrictedRsync only applies when Mode is restricted-rsync.
	// +optional
	RestrictedRsync *RestrictedRsyncConfig `json:"restrictedRsync,omitempty"`
}

// OverseerrServerDefaults4k overrides OverseerrServerDefaults for a server's
// 4K instance.
type OverseerrServerDefaults4k struct {
	// +kubebuilder:validation:Required
	ProfileId float64 `json:"profileId"`
	// +kubebuilder:validation:Required
	ProfileName string `json:"profileName"`
	// +kubebuilder:validation:Required
	RootFolder string `json:"rootFolder"`
	// MinimumAvailability applies to Radarr 4K instances (e.g. "released").
	// +optional
	MinimumAvailability *string `json:"minimumAvailability,omitempty"`
	// EnableSeasonFolders applies to Sonarr 4K instances.
	// +optional
	EnableSeasonFolders *bool `json:"enableSeasonFolders,omitempty"`
}

// OverseerrServerDefaults configures default settings applied when
// registering a Sonarr or Radarr server in Overseerr.
type OverseerrServerDefaults struct {
	// +kubebuilder:validation:Required
	ProfileId float64 `json:"profileId"`
	// +kubebuilder:validation:Required
	ProfileName string `json:"profileName"`
	// RootFolder is the path, e.g. "/movies" or "/tv".
	// +kubebuilder:validation:Required
	RootFolder string `json:"rootFolder"`
	// MinimumAvailability applies to Radarr only (e.g. "released").
	// +optional
	MinimumAvailability *string `json:"minimumAvailability,omitempty"`
	// EnableSeasonFolders applies to Sonarr only.
	// +optional
	EnableSeasonFolders *bool `json:"enableSeasonFolders,omitempty"`
	// FourK overrides used when the server is a 4K instance.
	// +optional
	FourK *OverseerrServerDefaults4k `json:"fourK,omitempty"`
}

// OverseerrConfig provides default Sonarr/Radarr server settings used when
// the operator auto-registers discovered instances in Overseerr.
type OverseerrConfig struct {
	// +optional
	Sonarr *OverseerrServerDefaults `json:"sonarr,omitempty"`
	// +optional
	Radarr *OverseerrServerDefaults `json:"radarr,omitempty"`
	// Sync configures automatic discovery and registration of sibling
	// Sonarr/Radarr instances in Overseerr.
	// +optional
	Sync *OverseerrSyncSpec `json:"sync,omitempty"`
}

// TransmissionManagedKeys are settings.json keys the operator manages and
// that must not be set via TransmissionConfig.Settings.
var TransmissionManagedKeys = []string{
	"rpc-authentication-required",
	"rpc-username",
	"rpc-password",
	"rpc-bind-address",
	"peer-port",
	"peer-port-random-on-start",
	"peer-port-random-low",
	"peer-port-random-high",
	"watch-dir",
	"watch-dir-enabled",
}
