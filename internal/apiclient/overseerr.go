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

// OverseerrClient is a client for the Overseerr settings API, managing
// Sonarr/Radarr server registrations for media request routing.
type OverseerrClient struct {
	http *HttpClient
}

// ServerSettings mirrors an Overseerr Sonarr/Radarr server registration.
type ServerSettings struct {
	ID                  int64   `json:"id,omitempty"`
	Name                string  `json:"name"`
	Hostname            string  `json:"hostname"`
	Port                int32   `json:"port"`
	ApiKey              string  `json:"apiKey"`
	UseSsl              bool    `json:"useSsl,omitempty"`
	BaseUrl             string  `json:"baseUrl,omitempty"`
	ActiveProfileId     float64 `json:"activeProfileId"`
	ActiveProfileName   string  `json:"activeProfileName"`
	ActiveDirectory     string  `json:"activeDirectory"`
	Is4K                bool    `json:"is4k,omitempty"`
	IsDefault           bool    `json:"isDefault,omitempty"`
	MinimumAvailability string  `json:"minimumAvailability,omitempty"`
	SeasonFolders       bool    `json:"seasonFolders,omitempty"`
}

// NewOverseerrClient creates an Overseerr client. baseURL should be the root
// URL (e.g. "http://overseerr:5055"). apiKey is sent as the X-Api-Key
// header.
func NewOverseerrClient(baseURL, apiKey string) (*OverseerrClient, error) {
	base := strings.TrimSuffix(baseURL, "/")
	http, err := NewHttpClient(base+"/api/v1/", apiKey)
	if err != nil {
		return nil, err
	}
	return &OverseerrClient{http: http}, nil
}

// ListSonarr lists all Sonarr server registrations.
func (c *OverseerrClient) ListSonarr(ctx context.Context) ([]ServerSettings, error) {
	var out []ServerSettings
	if err := c.http.Get(ctx, "settings/sonarr", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSonarr registers a new Sonarr server.
func (c *OverseerrClient) CreateSonarr(ctx context.Context, s *ServerSettings) (*ServerSettings, error) {
	var out ServerSettings
	if err := c.http.Post(ctx, "settings/sonarr", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSonarr updates an existing Sonarr server registration.
func (c *OverseerrClient) UpdateSonarr(ctx context.Context, id int64, s *ServerSettings) (*ServerSettings, error) {
	var out ServerSettings
	if err := c.http.Put(ctx, fmt.Sprintf("settings/sonarr/%d", id), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSonarr removes a Sonarr server registration.
func (c *OverseerrClient) DeleteSonarr(ctx context.Context, id int64) error {
	return c.http.Delete(ctx, fmt.Sprintf("settings/sonarr/%d", id))
}

// ListRadarr lists all Radarr server registrations.
func (c *OverseerrClient) ListRadarr(ctx context.Context) ([]ServerSettings, error) {
	var out []ServerSettings
	if err := c.http.Get(ctx, "settings/radarr", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRadarr registers a new Radarr server.
func (c *OverseerrClient) CreateRadarr(ctx context.Context, s *ServerSettings) (*ServerSettings, error) {
	var out ServerSettings
	if err := c.http.Post(ctx, "settings/radarr", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRadarr updates an existing Radarr server registration.
func (c *OverseerrClient) UpdateRadarr(ctx context.Context, id int64, s *ServerSettings) (*ServerSettings, error) {
	var out ServerSettings
	if err := c.http.Put(ctx, fmt.Sprintf("settings/radarr/%d", id), s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRadarr removes a Radarr server registration.
func (c *OverseerrClient) DeleteRadarr(ctx context.Context, id int64) error {
	return c.http.Delete(ctx, fmt.Sprintf("settings/radarr/%d", id))
}
