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
	"bytes"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"

	servarrv1alpha1 "github.com/RangerRick/servarr-operator/api/v1alpha1"
)

// ConfigMap builds the per-app-type primary ConfigMap (currently Transmission
// settings overrides, or SABnzbd host-whitelist patching), or nil when app's
// type needs neither.
func ConfigMap(app *servarrv1alpha1.ServarrApp) *corev1.ConfigMap {
	switch app.Spec.App {
	case servarrv1alpha1.AppTransmission:
		return transmissionConfigMap(app)
	case servarrv1alpha1.AppSabnzbd:
		return sabnzbdConfigMap(app)
	default:
		return nil
	}
}

// ProwlarrDefinitionsConfigMap builds a ConfigMap with one {name}.yml entry
// per custom indexer definition, mounted read-only at
// /config/Definitions/Custom. Returns nil when there are none.
func ProwlarrDefinitionsConfigMap(app *servarrv1alpha1.ServarrApp) *corev1.ConfigMap {
	pc := prowlarrConfig(app)
	if pc == nil || len(pc.CustomDefinitions) == 0 {
		return nil
	}

	data := make(map[string]string, len(pc.CustomDefinitions))
	for _, def := range pc.CustomDefinitions {
		data[def.Name+".yml"] = def.Content
	}

	return &corev1.ConfigMap{
		ObjectMeta: ObjectMeta(app, "prowlarr-definitions"),
		Data:       data,
	}
}

// TarUnpackConfigMap builds the tar/archive-unpacking helper scripts for
// SABnzbd when TarUnpack is enabled. Returns nil otherwise.
func TarUnpackConfigMap(app *servarrv1alpha1.ServarrApp) *corev1.ConfigMap {
	sc := sabnzbdConfig(app)
	if sc == nil || !sc.TarUnpack {
		return nil
	}

	return &corev1.ConfigMap{
		ObjectMeta: ObjectMeta(app, "tar-unpack"),
		Data: map[string]string{
			"install-tar-tools.sh": installTarToolsScript,
			"unpack-tar.sh":        unpackTarScript,
		},
	}
}

// SshBastionRestrictedRsyncConfigMap builds the restricted-rsync wrapper
// script ConfigMap when the bastion's mode is restricted-rsync. Returns nil
// otherwise.
func SshBastionRestrictedRsyncConfigMap(app *servarrv1alpha1.ServarrApp) *corev1.ConfigMap {
	sc := sshBastionConfig(app)
	if sc == nil || sc.Mode != servarrv1alpha1.SshModeRestrictedRsync {
		return nil
	}

	rr := servarrv1alpha1.RestrictedRsyncConfig{ReadOnly: true}
	if sc.RestrictedRsync != nil {
		rr = *sc.RestrictedRsync
	}

	var allowedPaths bytes.Buffer
	for i, p := range rr.AllowedPaths {
		if i > 0 {
			allowedPaths.WriteString("\n")
		}
		allowedPaths.WriteString(fmt.Sprintf("      %q", p))
	}

	script := fmt.Sprintf(restrictedRsyncScriptTemplate, allowedPaths.String(), rr.ReadOnly)

	return &corev1.ConfigMap{
		ObjectMeta: ObjectMeta(app, "restricted-rsync"),
		Data:       map[string]string{"restricted-rsync.sh": script},
	}
}

func transmissionConfigMap(app *servarrv1alpha1.ServarrApp) *corev1.ConfigMap {
	if app.Spec.App != servarrv1alpha1.AppTransmission {
		return nil
	}

	uid := int64(65534)
	if app.Spec.Uid != nil {
		uid = *app.Spec.Uid
	}
	gid := int64(65534)
	if app.Spec.Gid != nil {
		gid = *app.Spec.Gid
	}

	settingsJSON := defaultTransmissionSettingsJSON()
	if tc := transmissionConfig(app); tc != nil && len(tc.Settings.Raw) > 0 && string(tc.Settings.Raw) != "null" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, tc.Settings.Raw, "", "  "); err == nil {
			settingsJSON = buf.String()
		}
	}

	applyScript := fmt.Sprintf(transmissionApplySettingsTemplate, uid, gid)

	return &corev1.ConfigMap{
		ObjectMeta: ObjectMeta(app, ""),
		Data: map[string]string{
			"settings-override.json": settingsJSON,
			"apply-settings.sh":      applyScript,
		},
	}
}

func sabnzbdConfigMap(app *servarrv1alpha1.ServarrApp) *corev1.ConfigMap {
	sc := sabnzbdConfig(app)
	if sc == nil || len(sc.HostWhitelist) == 0 {
		return nil
	}

	return &corev1.ConfigMap{
		ObjectMeta: ObjectMeta(app, "sabnzbd-config"),
		Data: map[string]string{
			"apply-whitelist.sh": sabnzbdApplyWhitelistScript,
			"host-whitelist":     joinCommaSpace(sc.HostWhitelist),
		},
	}
}

func defaultTransmissionSettingsJSON() string {
	settings := map[string]any{
		"download-dir":               "/downloads/complete",
		"incomplete-dir":             "/downloads/incomplete",
		"incomplete-dir-enabled":     true,
		"dht-enabled":                true,
		"pex-enabled":                true,
		"lpd-enabled":                false,
		"encryption":                 1,
		"speed-limit-down-enabled":   false,
		"speed-limit-up-enabled":     false,
		"ratio-limit-enabled":        false,
		"download-queue-enabled":     true,
		"download-queue-size":        5,
		"seed-queue-enabled":         true,
		"seed-queue-size":            10,
		"rpc-host-whitelist-enabled": false,
		"rpc-whitelist-enabled":      true,
		"rpc-whitelist":              "127.0.0.1,::1,10.*,172.*,192.168.*",
		"cache-size-mb":              4,
		"umask":                      "002",
		"rename-partial-files":       true,
		"start-added-torrents":       true,
	}
	b, _ := json.MarshalIndent(settings, "", "  ")
	return string(b)
}

const restrictedRsyncScriptTemplate = `#!/bin/bash
# Restricted rsync wrapper - only allows rsync to specific paths
set -eo pipefail

ALLOWED_PATHS=(
%s
)

READONLY=%t

if [[ "${1:-}" == "-c" && -n "${2:-}" ]]; then
  CMD_STRING="$2"
elif [[ -n "${SSH_ORIGINAL_COMMAND:-}" ]]; then
  CMD_STRING="$SSH_ORIGINAL_COMMAND"
else
  CMD_STRING=""
fi

log_reject() {
  logger -t restricted-rsync -p auth.warning "REJECTED: user=$USER reason=$1"
  echo "Error: $1" >&2
  exit 1
}

if [[ -z "$CMD_STRING" ]]; then
  log_reject "Interactive sessions not allowed"
fi

declare -a ARGS
read -ra ARGS <<< "$CMD_STRING"

if [[ ${#ARGS[@]} -lt 1 ]]; then
  log_reject "Empty command"
fi

if [[ "${ARGS[0]}" != "rsync" ]]; then
  log_reject "Only rsync commands are allowed"
fi

has_sender=false
for arg in "${ARGS[@]}"; do
  if [[ "$arg" == "--sender" ]]; then
    has_sender=true
    break
  fi
done

if [[ "$READONLY" == "true" && "$has_sender" != "true" ]]; then
  log_reject "Write operations not allowed (read-only mode)"
fi

RSYNC_PATH=""
found_dot=false
for arg in "${ARGS[@]}"; do
  if [[ "$found_dot" == "true" ]]; then
    RSYNC_PATH="$arg"
  fi
  if [[ "$arg" == "." ]]; then
    found_dot=true
  fi
done

if [[ -z "$RSYNC_PATH" ]]; then
  log_reject "Could not parse rsync path"
fi

if [[ "$RSYNC_PATH" == *".."* ]]; then
  log_reject "Path traversal not allowed"
fi

if [[ -e "$RSYNC_PATH" ]]; then
  RESOLVED_PATH=$(realpath "$RSYNC_PATH")
else
  RESOLVED_PATH="${RSYNC_PATH%/}"
fi

path_allowed=false
for allowed in "${ALLOWED_PATHS[@]}"; do
  allowed="${allowed%/}"
  if [[ "$RESOLVED_PATH" == "$allowed" || "$RESOLVED_PATH" == "$allowed"/* ]]; then
    path_allowed=true
    break
  fi
done

if [[ "$path_allowed" != "true" ]]; then
  log_reject "Path not in allowed list: $RSYNC_PATH"
fi

logger -t restricted-rsync -p auth.info "ALLOWED: user=$USER path=$RSYNC_PATH"

exec "${ARGS[@]}"
`

const installTarToolsScript = `#!/usr/bin/with-contenv bash
# s6-overlay custom-cont-init.d script: install compression tools
echo "Installing compression utilities for tar unpack..."
apk add --no-cache tar xz bzip2 zstd >/dev/null 2>&1
echo "Compression utilities installed."
`

const unpackTarScript = `#!/bin/bash
# SABnzbd post-processing script: unpack tar archives
# Arguments: $1=directory $2=origName $3=cleanName $4=indexerName $5=category $6=group $7=status
DOWNLOAD_DIR="$1"

if [ -z "$DOWNLOAD_DIR" ] || [ ! -d "$DOWNLOAD_DIR" ]; then
    echo "No download directory provided"
    exit 0
fi

cd "$DOWNLOAD_DIR" || exit 0

for archive in *.tar *.tar.gz *.tgz *.tar.bz2 *.tbz2 *.tar.xz *.txz *.tar.zst *.tzst; do
    [ -f "$archive" ] || continue
    echo "Unpacking: $archive"
    case "$archive" in
        *.tar.gz|*.tgz)     tar xzf "$archive" ;;
        *.tar.bz2|*.tbz2)   tar xjf "$archive" ;;
        *.tar.xz|*.txz)     tar xJf "$archive" ;;
        *.tar.zst|*.tzst)   tar --zstd -xf "$archive" ;;
        *.tar)              tar xf "$archive" ;;
    esac
    echo "Unpacked: $archive"
done

exit 0
`

const sabnzbdApplyWhitelistScript = `#!/bin/sh
set -e
INI_FILE="/config/sabnzbd.ini"
WHITELIST_VALUE="$1"

if [ ! -f "$INI_FILE" ]; then
  echo "No sabnzbd.ini found, creating minimal config..."
  mkdir -p /config
  printf "[misc]\nhost_whitelist = %s\n" "$WHITELIST_VALUE" > "$INI_FILE"
  exit 0
fi

# Update existing host_whitelist or add it under [misc].
# Use awk instead of sed to avoid metacharacter injection from whitelist values.
if grep -q "^host_whitelist" "$INI_FILE"; then
  awk -v val="$WHITELIST_VALUE" '/^host_whitelist/{print "host_whitelist = " val; next}1' \
    "$INI_FILE" > "${INI_FILE}.tmp" && mv -f "${INI_FILE}.tmp" "$INI_FILE"
else
  awk -v val="$WHITELIST_VALUE" '/^\[misc\]/{print; print "host_whitelist = " val; next}1' \
    "$INI_FILE" > "${INI_FILE}.tmp" && mv -f "${INI_FILE}.tmp" "$INI_FILE"
fi

echo "SABnzbd host_whitelist set to: $WHITELIST_VALUE"
`

const transmissionApplySettingsTemplate = `#!/bin/sh
set -e
SETTINGS_FILE="/config/settings.json"
OVERRIDE_FILE="/scripts/settings-override.json"

if ! command -v jq >/dev/null 2>&1; then
  echo "Installing jq..."
  apk add --no-cache jq >/dev/null 2>&1
fi

if [ ! -f "$SETTINGS_FILE" ]; then
  echo "Creating initial settings.json..."
  echo '{}' > "$SETTINGS_FILE"
fi

echo "Applying settings overrides..."
jq -s '.[0] * .[1]' "$SETTINGS_FILE" "$OVERRIDE_FILE" > "${SETTINGS_FILE}.tmp"
mv "${SETTINGS_FILE}.tmp" "$SETTINGS_FILE"

chown %d:%d "$SETTINGS_FILE"
chmod 600 "$SETTINGS_FILE"

echo "Settings applied successfully."
`
