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
	corev1 "k8s.io/api/core/v1"
)

// ImageSpec overrides the container image for an app.
type ImageSpec struct {
	// +kubebuilder:validation:Required
	Repository string `json:"repository"`
	// +optional
	Tag string `json:"tag,omitempty"`
	// +optional
	Digest string `json:"digest,omitempty"`
	// +optional
	// +kubebuilder:default="IfNotPresent"
	PullPolicy string `json:"pullPolicy,omitempty"`
}

// PvcVolume describes a single PersistentVolumeClaim owned by an app.
type PvcVolume struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// +kubebuilder:validation:Required
	MountPath string `json:"mountPath"`
	// +optional
	// +kubebuilder:default="ReadWriteOnce"
	AccessMode string `json:"accessMode,omitempty"`
	// +optional
	// +kubebuilder:default="1Gi"
	Size string `json:"size,omitempty"`
	// +optional
	StorageClass string `json:"storageClass,omitempty"`
}

// NfsMount describes a raw NFS mount attached to the pod.
type NfsMount struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// +kubebuilder:validation:Required
	Server string `json:"server"`
	// +kubebuilder:validation:Required
	Path string `json:"path"`
	// +kubebuilder:validation:Required
	MountPath string `json:"mountPath"`
	// +optional
	ReadOnly bool `json:"readOnly,omitempty"`
}

// PersistenceSpec configures all persistent storage attached to an app.
type PersistenceSpec struct {
	// Volumes are PVC-backed mounts. Full-replace-if-nonempty across merge
	// layers: stack defaults -> per-app override -> split4k override.
	// +optional
	Volumes []PvcVolume `json:"volumes,omitempty"`
	// NfsMounts are union-merged by name across layers, right wins on conflict.
	// +optional
	NfsMounts []NfsMount `json:"nfsMounts,omitempty"`
}

// RouteType selects the Gateway API route kind the operator creates.
// +kubebuilder:validation:Enum=Http;Tcp
type RouteType string

const (
	RouteTypeHTTP RouteType = "Http"
	RouteTypeTCP  RouteType = "Tcp"
)

// TlsSpec configures TLS termination via cert-manager.
//
// When Enabled is true the operator creates a cert-manager Certificate
// resource referencing CertIssuer and switches the route type from
// HTTPRoute to TCPRoute for TLS pass-through.
type TlsSpec struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// +optional
	CertIssuer string `json:"certIssuer,omitempty"`
	// +optional
	SecretName *string `json:"secretName,omitempty"`
}

// GatewayParentRef references a Gateway API Gateway resource.
type GatewayParentRef struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// +optional
	Namespace string `json:"namespace,omitempty"`
	// +optional
	SectionName string `json:"sectionName,omitempty"`
}

// GatewaySpec configures Gateway API exposure for an app.
type GatewaySpec struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// +optional
	// +kubebuilder:default="Http"
	RouteType RouteType `json:"routeType,omitempty"`
	// +optional
	ParentRefs []GatewayParentRef `json:"parentRefs,omitempty"`
	// +optional
	Hosts []string `json:"hosts,omitempty"`
	// Tls configuration. When enabled, the controller creates a cert-manager
	// Certificate and uses a TCPRoute instead of an HTTPRoute.
	// +optional
	Tls *TlsSpec `json:"tls,omitempty"`
}

// ServicePort describes a single exposed port.
type ServicePort struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	Port int32 `json:"port"`
	// +optional
	// +kubebuilder:default="TCP"
	Protocol string `json:"protocol,omitempty"`
	// +optional
	ContainerPort *int32 `json:"containerPort,omitempty"`
	// +optional
	HostPort *int32 `json:"hostPort,omitempty"`
}

// ServiceSpec overrides the Service built for an app.
type ServiceSpec struct {
	// +optional
	// +kubebuilder:default="ClusterIP"
	ServiceType string `json:"serviceType,omitempty"`
	// +optional
	Ports []ServicePort `json:"ports,omitempty"`
}

// SecurityProfileType selects the security-context construction family.
//
// LinuxServer (default): s6-overlay images needing CHOWN/FOWNER/SETGID/SETUID.
// PUID/PGID env vars and fsGroup come from the app's uid/gid, not User/Group.
// NonRoot: images that run as a non-root user natively. Uses User/Group
// for runAsUser/runAsGroup/fsGroup.
// Custom: full control over security context fields.
// +kubebuilder:validation:Enum=LinuxServer;NonRoot;Custom
type SecurityProfileType string

const (
	SecurityProfileLinuxServer SecurityProfileType = "LinuxServer"
	SecurityProfileNonRoot     SecurityProfileType = "NonRoot"
	SecurityProfileCustom      SecurityProfileType = "Custom"
)

// SecurityProfile configures the pod and container security context.
type SecurityProfile struct {
	// +optional
	// +kubebuilder:default="LinuxServer"
	ProfileType SecurityProfileType `json:"profileType,omitempty"`
	// +optional
	// +kubebuilder:default=65534
	User int64 `json:"user,omitempty"`
	// +optional
	// +kubebuilder:default=65534
	Group int64 `json:"group,omitempty"`
	// RunAsNonRoot overrides the derived value from ProfileType.
	// +optional
	RunAsNonRoot *bool `json:"runAsNonRoot,omitempty"`
	// +optional
	ReadOnlyRootFilesystem *bool `json:"readOnlyRootFilesystem,omitempty"`
	// +optional
	AllowPrivilegeEscalation *bool `json:"allowPrivilegeEscalation,omitempty"`
	// +optional
	CapabilitiesAdd []string `json:"capabilitiesAdd,omitempty"`
	// CapabilitiesDrop defaults to ["ALL"] for LinuxServer/NonRoot profiles.
	// +optional
	CapabilitiesDrop []string `json:"capabilitiesDrop,omitempty"`
}

// ResourceList mirrors corev1.ResourceList with plain string quantities for
// schema simplicity, matching the original's CPU/memory-only shape.
type ResourceList struct {
	// +optional
	Cpu string `json:"cpu,omitempty"`
	// +optional
	Memory string `json:"memory,omitempty"`
}

// ResourceRequirements overrides the container resource limits/requests.
type ResourceRequirements struct {
	// +optional
	Limits ResourceList `json:"limits,omitempty"`
	// +optional
	Requests ResourceList `json:"requests,omitempty"`
}

// ProbeType selects the Kubernetes probe mechanism.
// +kubebuilder:validation:Enum=Http;Tcp;Exec
type ProbeType string

const (
	ProbeTypeHTTP ProbeType = "Http"
	ProbeTypeTCP  ProbeType = "Tcp"
	ProbeTypeExec ProbeType = "Exec"
)

// ProbeConfig configures a single liveness or readiness probe.
type ProbeConfig struct {
	// +optional
	// +kubebuilder:default="Http"
	ProbeType ProbeType `json:"probeType,omitempty"`
	// +optional
	Path string `json:"path,omitempty"`
	// Command to run for Exec probes. Ignored for Http/Tcp probe types.
	// +optional
	Command []string `json:"command,omitempty"`
	// +optional
	// +kubebuilder:default=30
	InitialDelaySeconds int32 `json:"initialDelaySeconds,omitempty"`
	// +optional
	// +kubebuilder:default=10
	PeriodSeconds int32 `json:"periodSeconds,omitempty"`
	// +optional
	// +kubebuilder:default=1
	TimeoutSeconds int32 `json:"timeoutSeconds,omitempty"`
	// +optional
	// +kubebuilder:default=3
	FailureThreshold int32 `json:"failureThreshold,omitempty"`
}

// ProbeSpec overrides liveness and readiness probes.
type ProbeSpec struct {
	// +optional
	Liveness ProbeConfig `json:"liveness,omitempty"`
	// +optional
	Readiness ProbeConfig `json:"readiness,omitempty"`
}

// EnvVar is a simple name/value environment variable override.
//
// Overrides merge by name, last-wins, across the stack-defaults -> per-app
// -> split4k layering.
type EnvVar struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`
	// +optional
	Value string `json:"value,omitempty"`
}

// NodeScheduling configures node placement for the pod.
type NodeScheduling struct {
	// +optional
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`
	// +optional
	// +kubebuilder:pruning:PreserveUnknownFields
	Tolerations []corev1.Toleration `json:"tolerations,omitempty"`
	// +optional
	Affinity *corev1.Affinity `json:"affinity,omitempty"`
}

// NetworkPolicyConfig controls the NetworkPolicy generated for an app.
//
// When omitted and the app's NetworkPolicy toggle is true, the operator
// creates a policy with AllowSameNamespace and AllowDns on, covering both
// ingress and egress.
type NetworkPolicyConfig struct {
	// AllowSameNamespace allows pods in the same namespace to reach this app.
	// +optional
	// +kubebuilder:default=true
	AllowSameNamespace bool `json:"allowSameNamespace,omitempty"`
	// AllowDns allows egress on UDP 53 to k8s-app=kube-dns pods in any namespace.
	// +optional
	// +kubebuilder:default=true
	AllowDns bool `json:"allowDns,omitempty"`
	// AllowInternetEgress allows egress to the public internet.
	// +optional
	AllowInternetEgress bool `json:"allowInternetEgress,omitempty"`
	// DeniedCidrBlocks are CIDR blocks to deny in egress (e.g. RFC 1918 ranges).
	// +optional
	DeniedCidrBlocks []string `json:"deniedCidrBlocks,omitempty"`
	// CustomEgressRules are arbitrary additional egress rules.
	// +optional
	CustomEgressRules []CustomEgressRule `json:"customEgressRules,omitempty"`
}

// CustomEgressRule is a CIDR-based egress rule applied verbatim to the
// generated NetworkPolicy in addition to the built-in DNS/same-namespace
// rules.
type CustomEgressRule struct {
	// +optional
	CidrBlock string `json:"cidrBlock,omitempty"`
	// +optional
	Ports []ServicePort `json:"ports,omitempty"`
}

// ApiHealthCheckSpec configures API-driven health checking via the app's
// own REST API, supplementing the Kubernetes liveness/readiness probes.
type ApiHealthCheckSpec struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// IntervalSeconds is not read by the reconciler; the health check runs
	// on every reconcile.
	// +optional
	IntervalSeconds *uint32 `json:"intervalSeconds,omitempty"`
}

// BackupSpec configures automated backup-and-restore for an app.
type BackupSpec struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// Schedule is a standard 5-field cron expression (e.g. "0 3 * * *").
	// +optional
	Schedule string `json:"schedule,omitempty"`
	// +optional
	// +kubebuilder:default=5
	RetentionCount uint32 `json:"retentionCount,omitempty"`
}

// GpuSpec configures GPU device-plugin resource passthrough.
//
// When set, the corresponding GPU device plugin resource is added to the
// container's resource limits and requests.
type GpuSpec struct {
	// Nvidia GPU count, adds nvidia.com/gpu resource limit+request.
	// +optional
	Nvidia *int32 `json:"nvidia,omitempty"`
	// Intel iGPU count, adds gpu.intel.com/i915 resource limit+request.
	// +optional
	Intel *int32 `json:"intel,omitempty"`
	// AMD GPU count, adds amd.com/gpu resource limit+request.
	// +optional
	Amd *int32 `json:"amd,omitempty"`
}

// ProwlarrSyncSpec configures Prowlarr cross-app synchronization.
//
// When enabled on a Prowlarr-type ServarrApp, the operator discovers
// Sonarr/Radarr/Lidarr instances in the target namespace and registers
// them as applications in Prowlarr for indexer sync.
type ProwlarrSyncSpec struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// NamespaceScope defaults to the Prowlarr CR's own namespace.
	// +optional
	NamespaceScope *string `json:"namespaceScope,omitempty"`
	// AutoRemove makes each sync delete Prowlarr applications whose baseUrl
	// matches no discovered Sonarr/Radarr/Lidarr app. Removal of an app's
	// registration when its CR is deleted does not depend on it.
	// +optional
	// +kubebuilder:default=true
	AutoRemove bool `json:"autoRemove,omitempty"`
}

// OverseerrSyncSpec configures Overseerr cross-app synchronization.
//
// When enabled on an Overseerr-type ServarrApp, the operator discovers
// Sonarr/Radarr instances in the target namespace and registers them as
// servers in Overseerr with the correct is4k/isDefault flags.
type OverseerrSyncSpec struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// NamespaceScope defaults to the Overseerr CR's own namespace.
	// +optional
	NamespaceScope *string `json:"namespaceScope,omitempty"`
	// +optional
	// +kubebuilder:default=true
	AutoRemove bool `json:"autoRemove,omitempty"`
}
