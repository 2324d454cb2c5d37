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

// Package defaults provides the per-AppType baseline configuration that
// ServarrApp specs are layered on top of: image, service ports, security
// profile, persistence, probes, and resource requests/limits.
package defaults

import (
	"fmt"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

// AppDefaults is the baseline configuration for a given AppType, before any
// user-supplied overrides from a ServarrAppSpec are applied.
type AppDefaults struct {
	Image       servarrv1alpha1.ImageSpec
	Service     servarrv1alpha1.ServiceSpec
	Security    servarrv1alpha1.SecurityProfile
	Persistence servarrv1alpha1.PersistenceSpec
	Probes      servarrv1alpha1.ProbeSpec
	Resources   servarrv1alpha1.ResourceRequirements
	Uid         int64
	Gid         int64
	Env         []servarrv1alpha1.EnvVar
	AppConfig   *servarrv1alpha1.AppConfig
}

// imageProfile captures the per-image facts needed to build an AppDefaults:
// repository/tag, the container port, whether the app needs a downloads
// volume, and its security/probe family.
type imageProfile struct {
	repository string
	tag        string
	port       int32
	downloads  bool
	security   string // "linuxserver", "nonroot", "sshd"
	probeType  string // "http", "tcp"
	probePath  string
	portName   string
}

// imageDefaults is the static table of per-AppType image facts. In the
// original this table was generated at build time from an external
// image-defaults.toml; that file was not part of the retrieved sources, so
// the values here follow the documented linuxserver.io image/port
// conventions for each app directly.
var imageDefaults = map[servarrv1alpha1.AppType]imageProfile{
	servarrv1alpha1.AppSonarr: {
		repository: "lscr.io/linuxserver/sonarr", tag: "latest",
		port: 8989, downloads: true, security: "linuxserver",
		probeType: "http", probePath: "/ping", portName: "http",
	},
	servarrv1alpha1.AppRadarr: {
		repository: "lscr.io/linuxserver/radarr", tag: "latest",
		port: 7878, downloads: true, security: "linuxserver",
		probeType: "http", probePath: "/ping", portName: "http",
	},
	servarrv1alpha1.AppLidarr: {
		repository: "lscr.io/linuxserver/lidarr", tag: "latest",
		port: 8686, downloads: true, security: "linuxserver",
		probeType: "http", probePath: "/ping", portName: "http",
	},
	servarrv1alpha1.AppProwlarr: {
		repository: "lscr.io/linuxserver/prowlarr", tag: "latest",
		port: 9696, downloads: false, security: "linuxserver",
		probeType: "http", probePath: "/ping", portName: "http",
	},
	servarrv1alpha1.AppSabnzbd: {
		repository: "lscr.io/linuxserver/sabnzbd", tag: "latest",
		port: 8080, downloads: true, security: "linuxserver",
		probeType: "http", probePath: "/", portName: "http",
	},
	servarrv1alpha1.AppTransmission: {
		repository: "lscr.io/linuxserver/transmission", tag: "latest",
		port: 9091, downloads: true, security: "linuxserver",
		probeType: "http", probePath: "/transmission/web/", portName: "http",
	},
	servarrv1alpha1.AppTautulli: {
		repository: "lscr.io/linuxserver/tautulli", tag: "latest",
		port: 8181, downloads: false, security: "linuxserver",
		probeType: "http", probePath: "/status", portName: "http",
	},
	servarrv1alpha1.AppOverseerr: {
		repository: "lscr.io/linuxserver/overseerr", tag: "latest",
		port: 5055, downloads: false, security: "linuxserver",
		probeType: "http", probePath: "/api/v1/status", portName: "http",
	},
	servarrv1alpha1.AppMaintainerr: {
		repository: "ghcr.io/jorenn92/maintainerr", tag: "latest",
		port: 6246, downloads: false, security: "nonroot",
		probeType: "http", probePath: "/", portName: "http",
	},
	servarrv1alpha1.AppJackett: {
		repository: "lscr.io/linuxserver/jackett", tag: "latest",
		port: 9117, downloads: false, security: "linuxserver",
		probeType: "http", probePath: "/UI/Dashboard", portName: "http",
	},
	servarrv1alpha1.AppJellyfin: {
		repository: "lscr.io/linuxserver/jellyfin", tag: "latest",
		port: 8096, downloads: false, security: "linuxserver",
		probeType: "http", probePath: "/health", portName: "http",
	},
	servarrv1alpha1.AppPlex: {
		repository: "lscr.io/linuxserver/plex", tag: "latest",
		port: 32400, downloads: false, security: "linuxserver",
		probeType: "http", probePath: "/identity", portName: "http",
	},
	servarrv1alpha1.AppSshBastion: {
		repository: "lscr.io/linuxserver/openssh-server", tag: "latest",
		port: 2222, downloads: false, security: "sshd",
		probeType: "tcp", portName: "ssh",
	},
}

// For returns the AppDefaults baseline for the given AppType. It panics if
// app is not one of the known AppType constants, mirroring the original's
// "no image defaults for app" panic: an unknown AppType can only reach here
// past the CRD schema's enum on spec.app, not through ordinary user input.
func For(app servarrv1alpha1.AppType) AppDefaults {
	img, ok := imageDefaults[app]
	if !ok {
		panic(fmt.Sprintf("no image defaults for app: %s", app))
	}

	var d AppDefaults
	switch img.security {
	case "linuxserver":
		d = linuxserverBase(img.port, img.downloads, img.probePath, img.portName)
	case "nonroot":
		d = nonrootBase(img.port, img.probePath, img.portName)
	case "sshd":
		d = sshdBase(img.port, img.portName)
	default:
		panic(fmt.Sprintf("unknown security profile: %s", img.security))
	}

	if img.probeType == "tcp" {
		d.Probes = tcpProbes(30, 10)
	}

	d.Image = image(img.repository, img.tag)

	if app == servarrv1alpha1.AppTransmission {
		d.AppConfig = &servarrv1alpha1.AppConfig{Transmission: &servarrv1alpha1.TransmissionConfig{}}
	}

	return d
}

func linuxserverBase(port int32, downloads bool, probePath, portName string) AppDefaults {
	volumes := []servarrv1alpha1.PvcVolume{pvc("config", "/config", "1Gi")}
	if downloads {
		volumes = append(volumes, pvc("downloads", "/downloads", "100Gi"))
	}
	return AppDefaults{
		Service: singlePortService(portName, port),
		Security: servarrv1alpha1.SecurityProfile{
			ProfileType:      servarrv1alpha1.SecurityProfileLinuxServer,
			User:             65534,
			Group:            65534,
			CapabilitiesDrop: []string{"ALL"},
		},
		Persistence: servarrv1alpha1.PersistenceSpec{Volumes: volumes},
		Probes:      httpProbes(probePath, 30, 10),
		Resources:   stdResources("1", "512Mi", "100m", "128Mi"),
		Uid:         65534,
		Gid:         65534,
		Env:         []servarrv1alpha1.EnvVar{tzEnv()},
	}
}

func nonrootBase(port int32, probePath, portName string) AppDefaults {
	return AppDefaults{
		Service: singlePortService(portName, port),
		Security: servarrv1alpha1.SecurityProfile{
			ProfileType:      servarrv1alpha1.SecurityProfileNonRoot,
			User:             65534,
			Group:            65534,
			CapabilitiesDrop: []string{"ALL"},
		},
		Persistence: servarrv1alpha1.PersistenceSpec{
			Volumes: []servarrv1alpha1.PvcVolume{pvc("config", "/config", "1Gi")},
		},
		Probes:    httpProbes(probePath, 30, 10),
		Resources: stdResources("1", "512Mi", "100m", "128Mi"),
		Uid:       65534,
		Gid:       65534,
		Env:       []servarrv1alpha1.EnvVar{tzEnv()},
	}
}

// sshdBase is the SSH bastion baseline: needs CHOWN/SETGID/SETUID/
// NET_BIND_SERVICE/SYS_CHROOT, runs as root for user management, and uses
// TCP probes on the SSH port.
func sshdBase(port int32, portName string) AppDefaults {
	return AppDefaults{
		Service: singlePortService(portName, port),
		Security: servarrv1alpha1.SecurityProfile{
			ProfileType:              servarrv1alpha1.SecurityProfileCustom,
			User:                     0,
			Group:                    0,
			RunAsNonRoot:             boolPtr(false),
			ReadOnlyRootFilesystem:   boolPtr(false),
			AllowPrivilegeEscalation: boolPtr(false),
			CapabilitiesAdd:          []string{"CHOWN", "SETGID", "SETUID", "NET_BIND_SERVICE", "SYS_CHROOT"},
			CapabilitiesDrop:         []string{"ALL"},
		},
		Persistence: servarrv1alpha1.PersistenceSpec{
			Volumes: []servarrv1alpha1.PvcVolume{pvc("host-keys", "/etc/ssh/keys", "10Mi")},
		},
		Probes:    tcpProbes(30, 10),
		Resources: stdResources("500m", "256Mi", "100m", "128Mi"),
		Uid:       0,
		Gid:       0,
		Env:       []servarrv1alpha1.EnvVar{tzEnv()},
	}
}

func image(repo, tag string) servarrv1alpha1.ImageSpec {
	return servarrv1alpha1.ImageSpec{Repository: repo, Tag: tag, PullPolicy: "IfNotPresent"}
}

func pvc(name, mount, size string) servarrv1alpha1.PvcVolume {
	return servarrv1alpha1.PvcVolume{Name: name, MountPath: mount, AccessMode: "ReadWriteOnce", Size: size}
}

func sport(name string, port int32) servarrv1alpha1.ServicePort {
	return servarrv1alpha1.ServicePort{Name: name, Port: port, Protocol: "TCP"}
}

func singlePortService(name string, port int32) servarrv1alpha1.ServiceSpec {
	return servarrv1alpha1.ServiceSpec{ServiceType: "ClusterIP", Ports: []servarrv1alpha1.ServicePort{sport(name, port)}}
}

func tcpProbes(livenessDelay, readinessDelay int32) servarrv1alpha1.ProbeSpec {
	return servarrv1alpha1.ProbeSpec{
		Liveness: servarrv1alpha1.ProbeConfig{
			ProbeType: servarrv1alpha1.ProbeTypeTCP, InitialDelaySeconds: livenessDelay,
			PeriodSeconds: 10, TimeoutSeconds: 1, FailureThreshold: 3,
		},
		Readiness: servarrv1alpha1.ProbeConfig{
			ProbeType: servarrv1alpha1.ProbeTypeTCP, InitialDelaySeconds: readinessDelay,
			PeriodSeconds: 5, TimeoutSeconds: 1, FailureThreshold: 3,
		},
	}
}

func httpProbes(path string, livenessDelay, readinessDelay int32) servarrv1alpha1.ProbeSpec {
	return servarrv1alpha1.ProbeSpec{
		Liveness: servarrv1alpha1.ProbeConfig{
			ProbeType: servarrv1alpha1.ProbeTypeHTTP, Path: path, InitialDelaySeconds: livenessDelay,
			PeriodSeconds: 10, TimeoutSeconds: 1, FailureThreshold: 3,
		},
		Readiness: servarrv1alpha1.ProbeConfig{
			ProbeType: servarrv1alpha1.ProbeTypeHTTP, Path: path, InitialDelaySeconds: readinessDelay,
			PeriodSeconds: 5, TimeoutSeconds: 1, FailureThreshold: 3,
		},
	}
}

func stdResources(cpuLimit, memLimit, cpuReq, memReq string) servarrv1alpha1.ResourceRequirements {
	return servarrv1alpha1.ResourceRequirements{
		Limits:   servarrv1alpha1.ResourceList{Cpu: cpuLimit, Memory: memLimit},
		Requests: servarrv1alpha1.ResourceList{Cpu: cpuReq, Memory: memReq},
	}
}

func tzEnv() servarrv1alpha1.EnvVar {
	return servarrv1alpha1.EnvVar{Name: "TZ", Value: "UTC"}
}

func boolPtr(b bool) *bool { return &b }
