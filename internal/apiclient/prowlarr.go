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
	"encoding/json"
	"fmt"
	"strings"
)

// ProwlarrClient is a client for the Prowlarr v1 application management API.
//
// Prowlarr manages indexer proxies ("applications") that sync indexers to
// downstream *arr apps (Sonarr, Radarr, Lidarr). This wraps the
// /api/v1/applications endpoints.
type ProwlarrClient struct {
	http *HttpClient
}

// ProwlarrApp is an application registration in Prowlarr.
type ProwlarrApp struct {
	ID             int64             `json:"id,omitempty"`
	Name           string            `json:"name"`
	SyncLevel      string            `json:"syncLevel"`
	Implementation string            `json:"implementation,omitempty"`
	ConfigContract string            `json:"configContract,omitempty"`
	Fields         []ProwlarrAppField `json:"fields,omitempty"`
	Tags           []int64           `json:"tags,omitempty"`
}

// ProwlarrAppField is a field in a Prowlarr application configuration.
type ProwlarrAppField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value,omitempty"`
}

// NewProwlarrClient creates a Prowlarr client. baseURL should be the root
// URL (e.g. "http://prowlarr:9696"); the "/api/v1/" prefix is appended
// automatically.
func NewProwlarrClient(baseURL, apiKey string) (*ProwlarrClient, error) {
	base := strings.TrimSuffix(baseURL, "/")
	http, err := NewHttpClient(base+"/api/v1/", apiKey)
	if err != nil {
		return nil, err
	}
	return &ProwlarrClient{http: http}, nil
}

// ListApplications fetches GET /api/v1/applications.
func (c *ProwlarrClient) ListApplications(ctx context.Context) ([]ProwlarrApp, error) {
	var out []ProwlarrApp
	if err := c.http.Get(ctx, "applications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddApplication issues POST /api/v1/applications.
func (c *ProwlarrClient) AddApplication(ctx context.Context, app *ProwlarrApp) (*ProwlarrApp, error) {
	var out ProwlarrApp
	if err := c.http.Post(ctx, "applications", app, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateApplication issues PUT /api/v1/applications/{id}.
func (c *ProwlarrClient) UpdateApplication(ctx context.Context, id int64, app *ProwlarrApp) (*ProwlarrApp, error) {
	var out ProwlarrApp
	if err := c.http.Put(ctx, fmt.Sprintf("applications/%d", id), app, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteApplication issues DELETE /api/v1/applications/{id}.
func (c *ProwlarrClient) DeleteApplication(ctx context.Context, id int64) error {
	return c.http.Delete(ctx, fmt.Sprintf("applications/%d", id))
}
