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

package builders

import (
	"crypto/sha256"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
	"github.com/RangerRick/servarr-operator/internal/defaults"
)

// ConfigChecksum hashes the sorted key/value pairs of every ConfigMap that
// should trigger a pod restart when it changes, so it can be stamped onto
// the pod template as an annotation. Returns "" when no such ConfigMap has
// any data (e.g. Prowlarr with no custom definitions).
func ConfigChecksum(app *servarrv1alpha1.ServarrApp) string {
	h := sha256.New()
	hasData := false

	for _, cm := range []*corev1.ConfigMap{ConfigMap(app), ProwlarrDefinitionsConfigMap(app)} {
		if cm == nil || len(cm.Data) == 0 {
			continue
		}
		keys := make([]string, 0, len(cm.Data))
		for k := range cm.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte(cm.Data[k]))
		}
		hasData = true
	}

	if !hasData {
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Deployment builds the Deployment for app. imageOverrides, keyed by AppType,
// replaces the compiled default image; the CR's own Spec.Image still takes
// priority over both. The ServarrApp reconciler passes nil, and no
// environment variable is read to fill it.
func Deployment(app *servarrv1alpha1.ServarrApp, imageOverrides map[string]servarrv1alpha1.ImageSpec) *appsv1.Deployment {
	d := defaults.For(app.Spec.App)
	if override, ok := imageOverrides[string(app.Spec.App)]; ok {
		d.Image = override
	}

	imageSpec := &d.Image
	if app.Spec.Image != nil {
		imageSpec = app.Spec.Image
	}
	security := &d.Security
	if app.Spec.Security != nil {
		security = app.Spec.Security
	}
	svcSpec := &d.Service
	if app.Spec.Service != nil {
		svcSpec = app.Spec.Service
	}
	resources := &d.Resources
	if app.Spec.Resources != nil {
		resources = app.Spec.Resources
	}
	persistence := &d.Persistence
	if app.Spec.Persistence != nil {
		persistence = app.Spec.Persistence
	}
	probes := &d.Probes
	if app.Spec.Probes != nil {
		probes = app.Spec.Probes
	}
	uid := d.Uid
	if app.Spec.Uid != nil {
		uid = *app.Spec.Uid
	}
	gid := d.Gid
	if app.Spec.Gid != nil {
		gid = *app.Spec.Gid
	}

	image := imageSpec.Repository + ":" + imageSpec.Tag
	if imageSpec.Digest != "" {
		image = imageSpec.Repository + "@" + imageSpec.Digest
	}

	containerPorts := buildContainerPorts(svcSpec, app)
	hasHostPort := false
	for _, p := range containerPorts {
		if p.HostPort != 0 {
			hasHostPort = true
			break
		}
	}

	volumeMounts := buildVolumeMounts(persistence, app)
	volumes := buildVolumes(app, persistence)
	envVars := buildEnvVars(app, d, uid, gid)
	containerSecurity, podSecurity := buildSecurityContexts(security, gid)

	effectiveProbes := maybeOverrideProbesForAuth(app, probes)
	liveness := buildProbe(effectiveProbes.Liveness, svcSpec)
	readiness := buildProbe(effectiveProbes.Readiness, svcSpec)
	startup := buildStartupProbe(effectiveProbes.Liveness, svcSpec)

	limits := corev1.ResourceList{
		corev1.ResourceCPU:    resourceQuantity(resources.Limits.Cpu),
		corev1.ResourceMemory: resourceQuantity(resources.Limits.Memory),
	}
	requests := corev1.ResourceList{
		corev1.ResourceCPU:    resourceQuantity(resources.Requests.Cpu),
		corev1.ResourceMemory: resourceQuantity(resources.Requests.Memory),
	}

	if gpu := app.Spec.Gpu; gpu != nil {
		addGpuResource(limits, requests, "nvidia.com/gpu", gpu.Nvidia)
		addGpuResource(limits, requests, "gpu.intel.com/i915", gpu.Intel)
		addGpuResource(limits, requests, "amd.com/gpu", gpu.Amd)
	}

	container := corev1.Container{
		Name:            string(app.Spec.App),
		Image:           image,
		ImagePullPolicy: corev1.PullPolicy(imageSpec.PullPolicy),
		Ports:           containerPorts,
		Env:             envVars,
		VolumeMounts:    volumeMounts,
		Resources: corev1.ResourceRequirements{
			Limits:   limits,
			Requests: requests,
		},
		SecurityContext: containerSecurity,
		LivenessProbe:   liveness,
		ReadinessProbe:  readiness,
		StartupProbe:    startup,
	}

	podSpec := corev1.PodSpec{
		AutomountServiceAccountToken: boolPtr(false),
		SecurityContext:              podSecurity,
		Containers:                   []corev1.Container{container},
		Volumes:                      volumes,
	}

	initContainers := buildInitContainers(app, image, containerSecurity)
	if app.Spec.App == servarrv1alpha1.AppSshBastion {
		initContainers = buildSshBastionInitContainers(initContainers, app, image, containerSecurity)
	}
	if len(initContainers) > 0 {
		podSpec.InitContainers = initContainers
	}

	if len(app.Spec.ImagePullSecrets) > 0 {
		refs := make([]corev1.LocalObjectReference, 0, len(app.Spec.ImagePullSecrets))
		for _, s := range app.Spec.ImagePullSecrets {
			refs = append(refs, corev1.LocalObjectReference{Name: s})
		}
		podSpec.ImagePullSecrets = refs
	}

	if app.Spec.Scheduling != nil {
		sched := app.Spec.Scheduling
		if len(sched.NodeSelector) > 0 {
			podSpec.NodeSelector = sched.NodeSelector
		}
		if len(sched.Tolerations) > 0 {
			podSpec.Tolerations = sched.Tolerations
		}
		podSpec.Affinity = sched.Affinity
	}

	var strategy appsv1.DeploymentStrategy
	if hasHostPort {
		strategy = appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType}
	}

	annotations := map[string]string{}
	if checksum := ConfigChecksum(app); checksum != "" {
		annotations["servarr.dev/config-checksum"] = checksum
	}
	var nfsVolumeNames []string
	for _, nfs := range persistence.NfsMounts {
		nfsVolumeNames = append(nfsVolumeNames, "nfs-"+nfs.Name)
	}
	if len(nfsVolumeNames) > 0 {
		annotations["backup.velero.io/backup-volumes-excludes"] = joinComma(nfsVolumeNames)
	}
	for k, v := range app.Spec.PodAnnotations {
		annotations[k] = v
	}
	if len(annotations) == 0 {
		annotations = nil
	}

	replicas := int32(1)
	labels := Labels(app)
	selectorLabels := SelectorLabels(app)

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      AppName(app),
			Namespace: AppNamespace(app),
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Strategy: strategy,
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      selectorLabels,
					Annotations: annotations,
				},
				Spec: podSpec,
			},
		},
	}
}

func joinComma(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += "," + s
	}
	return out
}

func buildContainerPorts(svc *servarrv1alpha1.ServiceSpec, app *servarrv1alpha1.ServarrApp) []corev1.ContainerPort {
	ports := make([]corev1.ContainerPort, 0, len(svc.Ports)+2)
	for _, p := range svc.Ports {
		containerPort := p.Port
		if p.ContainerPort != nil {
			containerPort = *p.ContainerPort
		}
		var hostPort int32
		if p.HostPort != nil {
			hostPort = *p.HostPort
		}
		protocol := corev1.Protocol(p.Protocol)
		if protocol == "" {
			protocol = corev1.ProtocolTCP
		}
		ports = append(ports, corev1.ContainerPort{
			Name:          p.Name,
			ContainerPort: containerPort,
			Protocol:      protocol,
			HostPort:      hostPort,
		})
	}

	if app.Spec.AppConfig != nil && app.Spec.AppConfig.Transmission != nil && app.Spec.AppConfig.Transmission.PeerPort != nil {
		peer := app.Spec.AppConfig.Transmission.PeerPort
		var hostPort int32
		if peer.HostPort {
			hostPort = peer.Port
		}
		ports = append(ports,
			corev1.ContainerPort{Name: "peer-tcp", ContainerPort: peer.Port, Protocol: corev1.ProtocolTCP, HostPort: hostPort},
			corev1.ContainerPort{Name: "peer-udp", ContainerPort: peer.Port, Protocol: corev1.ProtocolUDP, HostPort: hostPort},
		)
	}

	return ports
}

func buildVolumeMounts(persistence *servarrv1alpha1.PersistenceSpec, app *servarrv1alpha1.ServarrApp) []corev1.VolumeMount {
	var mounts []corev1.VolumeMount
	for _, v := range persistence.Volumes {
		mounts = append(mounts, corev1.VolumeMount{Name: v.Name, MountPath: v.MountPath})
	}
	for _, nfs := range persistence.NfsMounts {
		mounts = append(mounts, corev1.VolumeMount{
			Name:      "nfs-" + nfs.Name,
			MountPath: nfs.MountPath,
			ReadOnly:  nfs.ReadOnly,
		})
	}

	if app.Spec.App == servarrv1alpha1.AppTransmission {
		mounts = append(mounts, corev1.VolumeMount{Name: "watch", MountPath: "/watch"})
	}

	if pc := prowlarrConfig(app); pc != nil && len(pc.CustomDefinitions) > 0 {
		mounts = append(mounts, corev1.VolumeMount{
			Name: "prowlarr-definitions", MountPath: "/config/Definitions/Custom", ReadOnly: true,
		})
	}

	if sc := sshBastionConfig(app); sc != nil {
		for _, user := range sc.Users {
			if user.PublicKeys != "" {
				mounts = append(mounts, corev1.VolumeMount{
					Name:      "authorized-keys-" + user.Name,
					MountPath: "/etc/authorized_keys/" + user.Name,
					SubPath:   user.Name,
					ReadOnly:  true,
				})
			}
		}
		if sc.Mode == servarrv1alpha1.SshModeRestrictedRsync {
			mounts = append(mounts, corev1.VolumeMount{
				Name: "restricted-rsync", MountPath: "/usr/local/bin/restricted-rsync",
				SubPath: "restricted-rsync.sh", ReadOnly: true,
			})
		}
	}

	return mounts
}

func buildVolumes(app *servarrv1alpha1.ServarrApp, persistence *servarrv1alpha1.PersistenceSpec) []corev1.Volume {
	var volumes []corev1.Volume
	for _, v := range persistence.Volumes {
		volumes = append(volumes, corev1.Volume{
			Name: v.Name,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: ChildName(app, v.Name),
				},
			},
		})
	}
	for _, nfs := range persistence.NfsMounts {
		volumes = append(volumes, corev1.Volume{
			Name: "nfs-" + nfs.Name,
			VolumeSource: corev1.VolumeSource{
				NFS: &corev1.NFSVolumeSource{Server: nfs.Server, Path: nfs.Path, ReadOnly: nfs.ReadOnly},
			},
		})
	}

	if app.Spec.App == servarrv1alpha1.AppTransmission {
		mode := int32(0o755)
		volumes = append(volumes,
			corev1.Volume{
				Name: "scripts",
				VolumeSource: corev1.VolumeSource{
					ConfigMap: &corev1.ConfigMapVolumeSource{
						LocalObjectReference: corev1.LocalObjectReference{Name: AppName(app)},
						DefaultMode:          &mode,
						Items: []corev1.KeyToPath{
							{Key: "apply-settings.sh", Path: "apply-settings.sh"},
							{Key: "settings-override.json", Path: "settings-override.json"},
						},
					},
				},
			},
			corev1.Volume{Name: "watch", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}},
		)
	}

	if sc := sabnzbdConfig(app); sc != nil && sc.TarUnpack {
		mode := int32(0o755)
		volumes = append(volumes, corev1.Volume{
			Name: "tar-unpack-scripts",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: ChildName(app, "tar-unpack")},
					DefaultMode:          &mode,
				},
			},
		})
	}

	if sc := sabnzbdConfig(app); sc != nil && len(sc.HostWhitelist) > 0 {
		mode := int32(0o755)
		volumes = append(volumes, corev1.Volume{
			Name: "sabnzbd-scripts",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: ChildName(app, "sabnzbd-config")},
					DefaultMode:          &mode,
				},
			},
		})
	}

	if pc := prowlarrConfig(app); pc != nil && len(pc.CustomDefinitions) > 0 {
		volumes = append(volumes, corev1.Volume{
			Name: "prowlarr-definitions",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: ChildName(app, "prowlarr-definitions")},
				},
			},
		})
	}

	if sc := sshBastionConfig(app); sc != nil {
		secretName := ChildName(app, "authorized-keys")
		for _, user := range sc.Users {
			if user.PublicKeys != "" {
				readMode := int32(0o444)
				volumes = append(volumes, corev1.Volume{
					Name: "authorized-keys-" + user.Name,
					VolumeSource: corev1.VolumeSource{
						Secret: &corev1.SecretVolumeSource{
							SecretName:  secretName,
							Items:       []corev1.KeyToPath{{Key: user.Name, Path: user.Name, Mode: &readMode}},
							DefaultMode: &readMode,
						},
					},
				})
			}
		}
		if sc.Mode == servarrv1alpha1.SshModeRestrictedRsync {
			mode := int32(0o755)
			volumes = append(volumes, corev1.Volume{
				Name: "restricted-rsync",
				VolumeSource: corev1.VolumeSource{
					ConfigMap: &corev1.ConfigMapVolumeSource{
						LocalObjectReference: corev1.LocalObjectReference{Name: ChildName(app, "restricted-rsync")},
						DefaultMode:          &mode,
					},
				},
			})
		}
	}

	return volumes
}

func buildEnvVars(app *servarrv1alpha1.ServarrApp, d defaults.AppDefaults, uid, gid int64) []corev1.EnvVar {
	var env []corev1.EnvVar

	security := &d.Security
	if app.Spec.Security != nil {
		security = app.Spec.Security
	}
	if security.ProfileType == servarrv1alpha1.SecurityProfileLinuxServer {
		env = append(env,
			corev1.EnvVar{Name: "PUID", Value: fmt.Sprintf("%d", uid)},
			corev1.EnvVar{Name: "PGID", Value: fmt.Sprintf("%d", gid)},
		)
	}

	for _, e := range d.Env {
		env = append(env, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}

	for _, e := range app.Spec.Env {
		env = removeEnvByName(env, e.Name)
		env = append(env, corev1.EnvVar{Name: e.Name, Value: e.Value})
	}

	if sc := sshBastionConfig(app); sc != nil {
		sshUsers := make([]string, 0, len(sc.Users))
		for _, u := range sc.Users {
			shell := "/bin/sh"
			if sc.Mode == servarrv1alpha1.SshModeRestrictedRsync {
				shell = "/usr/local/bin/restricted-rsync"
			}
			if u.Shell != nil {
				shell = *u.Shell
			}
			sshUsers = append(sshUsers, fmt.Sprintf("%s:%d:%d:%s", u.Name, u.Uid, u.Gid, shell))
		}
		env = append(env, corev1.EnvVar{Name: "SSH_USERS", Value: joinComma(sshUsers)})

		if !sc.EnablePasswordAuth {
			env = append(env, corev1.EnvVar{Name: "SSH_ENABLE_PASSWORD_AUTH", Value: "false"})
		}
		if sc.TcpForwarding {
			env = append(env, corev1.EnvVar{Name: "TCP_FORWARDING", Value: "true"})
		}
		if sc.GatewayPorts {
			env = append(env, corev1.EnvVar{Name: "GATEWAY_PORTS", Value: "true"})
		}
		if sc.DisableSftp {
			env = append(env, corev1.EnvVar{Name: "SFTP_MODE", Value: "false"})
		}
		if sc.SftpChroot != "%h" && sc.SftpChroot != "" {
			env = append(env, corev1.EnvVar{Name: "SFTP_CHROOT", Value: sc.SftpChroot})
		}
		if sc.Motd != "" {
			env = append(env, corev1.EnvVar{Name: "MOTD", Value: sc.Motd})
		}
	}

	if tc := transmissionConfig(app); tc != nil && tc.Auth != nil {
		env = append(env,
			corev1.EnvVar{Name: "USER", ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: tc.Auth.SecretName},
					Key:                  "USER",
					Optional:             boolPtr(false),
				},
			}},
			corev1.EnvVar{Name: "PASS", ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: tc.Auth.SecretName},
					Key:                  "PASS",
					Optional:             boolPtr(false),
				},
			}},
		)
	}

	return env
}

func removeEnvByName(env []corev1.EnvVar, name string) []corev1.EnvVar {
	out := env[:0]
	for _, e := range env {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}

func buildSecurityContexts(profile *servarrv1alpha1.SecurityProfile, gid int64) (*corev1.SecurityContext, *corev1.PodSecurityContext) {
	seccomp := &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault}

	switch profile.ProfileType {
	case servarrv1alpha1.SecurityProfileLinuxServer:
		return &corev1.SecurityContext{
				AllowPrivilegeEscalation: boolPtr(false),
				ReadOnlyRootFilesystem:   boolPtr(false),
				RunAsNonRoot:             boolPtr(false),
				Capabilities: &corev1.Capabilities{
					Drop: []corev1.Capability{"ALL"},
					Add:  []corev1.Capability{"CHOWN", "FOWNER", "SETGID", "SETUID"},
				},
			}, &corev1.PodSecurityContext{
				FSGroup:         int64Ptr(gid),
				SeccompProfile:  seccomp,
			}
	case servarrv1alpha1.SecurityProfileNonRoot:
		return &corev1.SecurityContext{
				AllowPrivilegeEscalation: boolPtr(false),
				ReadOnlyRootFilesystem:   boolPtr(false),
				RunAsNonRoot:             boolPtr(true),
				RunAsUser:                int64Ptr(profile.User),
				RunAsGroup:               int64Ptr(profile.Group),
				Capabilities:             &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}},
			}, &corev1.PodSecurityContext{
				FSGroup:        int64Ptr(profile.Group),
				SeccompProfile: seccomp,
			}
	default: // Custom
		runAsNonRoot := true
		if profile.RunAsNonRoot != nil {
			runAsNonRoot = *profile.RunAsNonRoot
		}
		readOnlyRoot := false
		if profile.ReadOnlyRootFilesystem != nil {
			readOnlyRoot = *profile.ReadOnlyRootFilesystem
		}
		allowPrivEsc := false
		if profile.AllowPrivilegeEscalation != nil {
			allowPrivEsc = *profile.AllowPrivilegeEscalation
		}
		var runAsUser, runAsGroup *int64
		if profile.User != 0 {
			runAsUser = int64Ptr(profile.User)
		}
		if profile.Group != 0 {
			runAsGroup = int64Ptr(profile.Group)
		}
		capsDrop := []corev1.Capability{"ALL"}
		if len(profile.CapabilitiesDrop) > 0 {
			capsDrop = toCapabilities(profile.CapabilitiesDrop)
		}
		var capsAdd []corev1.Capability
		if len(profile.CapabilitiesAdd) > 0 {
			capsAdd = toCapabilities(profile.CapabilitiesAdd)
		}
		return &corev1.SecurityContext{
				AllowPrivilegeEscalation: boolPtr(allowPrivEsc),
				ReadOnlyRootFilesystem:   boolPtr(readOnlyRoot),
				RunAsNonRoot:             boolPtr(runAsNonRoot),
				RunAsUser:                runAsUser,
				RunAsGroup:               runAsGroup,
				Capabilities:             &corev1.Capabilities{Drop: capsDrop, Add: capsAdd},
			}, &corev1.PodSecurityContext{
				FSGroup:        runAsGroup,
				SeccompProfile: seccomp,
			}
	}
}

func toCapabilities(ss []string) []corev1.Capability {
	caps := make([]corev1.Capability, len(ss))
	for i, s := range ss {
		caps[i] = corev1.Capability(s)
	}
	return caps
}

func buildProbe(config servarrv1alpha1.ProbeConfig, svc *servarrv1alpha1.ServiceSpec) *corev1.Probe {
	firstPort := "http"
	if len(svc.Ports) > 0 {
		firstPort = svc.Ports[0].Name
	}

	probe := &corev1.Probe{
		InitialDelaySeconds: config.InitialDelaySeconds,
		PeriodSeconds:       config.PeriodSeconds,
		TimeoutSeconds:      config.TimeoutSeconds,
		FailureThreshold:    config.FailureThreshold,
	}

	switch config.ProbeType {
	case servarrv1alpha1.ProbeTypeHTTP:
		probe.HTTPGet = &corev1.HTTPGetAction{
			Path: config.Path,
			Port: intstr.FromString(firstPort),
		}
	case servarrv1alpha1.ProbeTypeTCP:
		probe.TCPSocket = &corev1.TCPSocketAction{Port: intstr.FromString(firstPort)}
	case servarrv1alpha1.ProbeTypeExec:
		probe.Exec = &corev1.ExecAction{Command: config.Command}
	}

	return probe
}

// buildStartupProbe derives a startup probe from the liveness config with
// generous timeouts, giving containers up to 300s to start before the
// liveness probe takes over.
func buildStartupProbe(livenessConfig servarrv1alpha1.ProbeConfig, svc *servarrv1alpha1.ServiceSpec) *corev1.Probe {
	probe := buildProbe(livenessConfig, svc)
	probe.InitialDelaySeconds = 0 // avoid drift against Kubernetes' implicit default of 0
	probe.PeriodSeconds = 10
	probe.TimeoutSeconds = 5
	probe.FailureThreshold = 30
	return probe
}

func buildInitContainers(app *servarrv1alpha1.ServarrApp, image string, securityContext *corev1.SecurityContext) []corev1.Container {
	var init []corev1.Container

	if app.Spec.App == servarrv1alpha1.AppTransmission {
		init = append(init, corev1.Container{
			Name:            "apply-settings",
			Image:           image,
			Command:         []string{"/bin/sh", "/scripts/apply-settings.sh"},
			SecurityContext: securityContext,
			VolumeMounts: []corev1.VolumeMount{
				{Name: "config", MountPath: "/config"},
				{Name: "scripts", MountPath: "/scripts", ReadOnly: true},
			},
		})
	}

	if sc := sabnzbdConfig(app); sc != nil && sc.TarUnpack {
		init = append(init, corev1.Container{
			Name:            "install-tar-tools",
			Image:           image,
			Command:         []string{"/bin/sh", "/tar-scripts/install-tar-tools.sh"},
			SecurityContext: securityContext,
			VolumeMounts: []corev1.VolumeMount{
				{Name: "tar-unpack-scripts", MountPath: "/tar-scripts", ReadOnly: true},
			},
		})
	}

	if sc := sabnzbdConfig(app); sc != nil && len(sc.HostWhitelist) > 0 {
		whitelistCsv := joinCommaSpace(sc.HostWhitelist)
		init = append(init, corev1.Container{
			Name:            "apply-whitelist",
			Image:           image,
			Command:         []string{"/bin/sh", "/sabnzbd-scripts/apply-whitelist.sh", whitelistCsv},
			SecurityContext: securityContext,
			VolumeMounts: []corev1.VolumeMount{
				{Name: "config", MountPath: "/config"},
				{Name: "sabnzbd-scripts", MountPath: "/sabnzbd-scripts", ReadOnly: true},
			},
		})
	}

	return init
}

func joinCommaSpace(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += ", " + s
	}
	return out
}

const sshHostKeygenScript = `#!/bin/sh
set -e
KEY_DIR="/etc/ssh/keys"
mkdir -p "$KEY_DIR"
for type in rsa ecdsa ed25519; do
  key_file="$KEY_DIR/ssh_host_${type}_key"
  if [ ! -f "$key_file" ]; then
    echo "Generating $type host key..."
    ssh-keygen -t "$type" -f "$key_file" -N "" -q
  fi
done
echo "Host keys ready."
`

const sshPatchEntryScript = `#!/bin/sh
set -e
if [ -f /entry.sh ]; then
  sed -i 's/chmod 600 "$f"/true/g' /entry.sh
  sed -i 's/chown "$user:$user" "$f"/true/g' /entry.sh
fi
`

const sshInstallRsyncScript = `apk add --no-cache rsync >/dev/null 2>&1 || true
`

// buildSshBastionInitContainers appends host-key-generation and entry.sh-
// patching init containers, grounded on the bastion's own restricted-rsync
// mode (which also needs rsync installed at startup).
func buildSshBastionInitContainers(init []corev1.Container, app *servarrv1alpha1.ServarrApp, image string, securityContext *corev1.SecurityContext) []corev1.Container {
	sc := sshBastionConfig(app)
	if sc == nil {
		return init
	}

	init = append(init, corev1.Container{
		Name:            "generate-host-keys",
		Image:           image,
		Command:         []string{"/bin/sh", "-c", sshHostKeygenScript},
		SecurityContext: securityContext,
		VolumeMounts:    []corev1.VolumeMount{{Name: "host-keys", MountPath: "/etc/ssh/keys"}},
	})

	patchScript := sshPatchEntryScript
	if sc.Mode == servarrv1alpha1.SshModeRestrictedRsync {
		patchScript += sshInstallRsyncScript
	}
	init = append(init, corev1.Container{
		Name:            "patch-entry",
		Image:           image,
		Command:         []string{"/bin/sh", "-c", patchScript},
		SecurityContext: securityContext,
	})

	return init
}

// maybeOverrideProbesForAuth auto-selects exec probes using curl with Basic
// Auth credentials for Transmission when auth is enabled, unless the user
// has already configured exec probes explicitly.
func maybeOverrideProbesForAuth(app *servarrv1alpha1.ServarrApp, probes *servarrv1alpha1.ProbeSpec) servarrv1alpha1.ProbeSpec {
	tc := transmissionConfig(app)
	if app.Spec.App == servarrv1alpha1.AppTransmission && tc != nil && tc.Auth != nil &&
		probes.Liveness.ProbeType != servarrv1alpha1.ProbeTypeExec {
		execCmd := []string{"/bin/sh", "-c", `curl -sf -u "$USER:$PASS" http://localhost:9091/ >/dev/null`}
		return servarrv1alpha1.ProbeSpec{
			Liveness: servarrv1alpha1.ProbeConfig{
				ProbeType:           servarrv1alpha1.ProbeTypeExec,
				Command:             execCmd,
				InitialDelaySeconds: probes.Liveness.InitialDelaySeconds,
				PeriodSeconds:       probes.Liveness.PeriodSeconds,
				TimeoutSeconds:      probes.Liveness.TimeoutSeconds,
				FailureThreshold:    probes.Liveness.FailureThreshold,
			},
			Readiness: servarrv1alpha1.ProbeConfig{
				ProbeType:           servarrv1alpha1.ProbeTypeExec,
				Command:             execCmd,
				InitialDelaySeconds: probes.Readiness.InitialDelaySeconds,
				PeriodSeconds:       probes.Readiness.PeriodSeconds,
				TimeoutSeconds:      probes.Readiness.TimeoutSeconds,
				FailureThreshold:    probes.Readiness.FailureThreshold,
			},
		}
	}
	return *probes
}

func addGpuResource(limits, requests corev1.ResourceList, name corev1.ResourceName, count *int32) {
	if count == nil || *count <= 0 {
		return
	}
	q := resourceQuantity(fmt.Sprintf("%d", *count))
	limits[name] = q
	requests[name] = q
}

func int64Ptr(v int64) *int64 { return &v }

func resourceQuantity(v string) resource.Quantity {
	if v == "" {
		return resource.Quantity{}
	}
	return resource.MustParse(v)
}

func transmissionConfig(app *servarrv1alpha1.ServarrApp) *servarrv1alpha1.TransmissionConfig {
	if app.Spec.AppConfig == nil {
		return nil
	}
	return app.Spec.AppConfig.Transmission
}

func sabnzbdConfig(app *servarrv1alpha1.ServarrApp) *servarrv1alpha1.SabnzbdConfig {
	if app.Spec.AppConfig == nil {
		return nil
	}
	return app.Spec.AppConfig.Sabnzbd
}

func prowlarrConfig(app *servarrv1alpha1.ServarrApp) *servarrv1alpha1.ProwlarrConfig {
	if app.Spec.AppConfig == nil {
		return nil
	}
	return app.Spec.AppConfig.Prowlarr
}

func sshBastionConfig(app *servarrv1alpha1.ServarrApp) *servarrv1alpha1.SshBastionConfig {
	if app.Spec.AppConfig == nil {
		return nil
	}
	return app.Spec.AppConfig.SshBastion
}
