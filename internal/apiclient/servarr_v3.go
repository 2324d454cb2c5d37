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

package apiclient

import (
	"context"
	"fmt"
	"strings"
)

// AppKind identifies which Servarr v3 application a ServarrClient targets.
// Sonarr, Radarr, Lidarr, and Prowlarr all speak the same v3 REST dialect,
// so one client serves all four.
type AppKind string

const (
	AppKindSonarr   AppKind = "sonarr"
	AppKindRadarr   AppKind = "radarr"
	AppKindLidarr   AppKind = "lidarr"
	AppKindProwlarr AppKind = "prowlarr"
)

// SystemStatus mirrors the /api/v3/system/status response.
type SystemStatus struct {
	AppName           string `json:"appName"`
	Version           string `json:"version"`
	BuildTime         string `json:"buildTime"`
	IsDebug           bool   `json:"isDebug"`
	IsProduction      bool   `json:"isProduction"`
	IsAdmin           bool   `json:"isAdmin"`
	IsUserInteractive bool   `json:"isUserInteractive"`
	StartupPath       string `json:"startupPath"`
	AppData           string `json:"appData"`
	OsName            string `json:"osName"`
	OsVersion         string `json:"osVersion"`
	RuntimeName       string `json:"runtimeName"`
	RuntimeVersion    string `json:"runtimeVersion"`
}

// HealthCheckResult mirrors one entry of the /api/v3/health response.
type HealthCheckResult struct {
	Source    string `json:"source"`
	CheckType string `json:"type"`
	Message   string `json:"message"`
	WikiURL   string `json:"wikiUrl"`
}

// RootFolder mirrors one entry of the /api/v3/rootfolder response.
type RootFolder struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	Accessible bool   `json:"accessible"`
	FreeSpace  int64  `json:"freeSpace"`
}

// UpdateInfo mirrors one entry of the /api/v3/update response.
type UpdateInfo struct {
	Version     string `json:"version"`
	Installed   bool   `json:"installed"`
	Installable bool   `json:"installable"`
	Latest      bool   `json:"latest"`
}

// Backup mirrors one entry of the /api/v3/system/backup response.
type Backup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Time string `json:"time"`
}

// ServarrClient is a client for the v3 REST API shared by Sonarr, Radarr,
// Lidarr, and Prowlarr.
type ServarrClient struct {
	kind AppKind
	http *HttpClient
}

// NewServarrClient creates a client for one Servarr v3 application. baseURL
// should be the application's root URL (e.g. "http://sonarr:8989"); the
// "/api/v3/" prefix is appended automatically.
func NewServarrClient(baseURL, apiKey string, kind AppKind) (*ServarrClient, error) {
	base := strings.TrimSuffix(baseURL, "/")
	http, err := NewHttpClient(base+"/api/v3/", apiKey)
	if err != nil {
		return nil, err
	}
	return &ServarrClient{kind: kind, http: http}, nil
}

// SystemStatus fetches GET /api/v3/system/status.
func (c *ServarrClient) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var out SystemStatus
	if err := c.http.Get(ctx, "system/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches GET /api/v3/health.
func (c *ServarrClient) Health(ctx context.Context) ([]HealthCheckResult, error) {
	var out []HealthCheckResult
	if err := c.http.Get(ctx, "health", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RootFolders fetches GET /api/v3/rootfolder. Prowlarr has no root-folder
// concept and always returns an empty slice.
func (c *ServarrClient) RootFolders(ctx context.Context) ([]RootFolder, error) {
	if c.kind == AppKindProwlarr {
		return nil, nil
	}
	var out []RootFolder
	if err := c.http.Get(ctx, "rootfolder", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Updates fetches GET /api/v3/update — available updates.
func (c *ServarrClient) Updates(ctx context.Context) ([]UpdateInfo, error) {
	var out []UpdateInfo
	if err := c.http.Get(ctx, "update", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBackups fetches GET /api/v3/system/backup.
func (c *ServarrClient) ListBackups(ctx context.Context) ([]Backup, error) {
	var out []Backup
	if err := c.http.Get(ctx, "system/backup", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBackup issues POST /api/v3/system/backup — create a new backup.
func (c *ServarrClient) CreateBackup(ctx context.Context) (*Backup, error) {
	var out Backup
	if err := c.http.Post(ctx, "system/backup", map[string]any{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreBackup issues POST /api/v3/system/backup/restore/{id}.
func (c *ServarrClient) RestoreBackup(ctx context.Context, id int64) error {
	return c.http.Post(ctx, fmt.Sprintf("system/backup/restore/%d", id), nil, nil)
}

// DeleteBackup issues DELETE /api/v3/system/backup/{id}.
func (c *ServarrClient) DeleteBackup(ctx context.Context, id int64) error {
	return c.http.Delete(ctx, fmt.Sprintf("system/backup/%d", id))
}

// IsHealthy implements HealthCheck.
func (c *ServarrClient) IsHealthy(ctx context.Context) (bool, error) {
	status, err := c.SystemStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.Version != "", nil
}
