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
	"net/http"
)

// JellyfinClient checks Jellyfin health.
//
// Jellyfin exposes GET /health, returning "Healthy" (text/plain, HTTP 200)
// when running. No API key required.
type JellyfinClient struct {
	http *HttpClient
}

// NewJellyfinClient creates a Jellyfin client for baseURL.
func NewJellyfinClient(baseURL string) (*JellyfinClient, error) {
	http, err := NewHttpClient(baseURL, "")
	if err != nil {
		return nil, err
	}
	return &JellyfinClient{http: http}, nil
}

// IsHealthy implements HealthCheck.
func (c *JellyfinClient) IsHealthy(ctx context.Context) (bool, error) {
	ref := c.http.BaseURL().ResolveReference(mustParseRef("/health"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return false, requestError(err)
	}
	resp, err := c.http.Inner().Do(req)
	if err != nil {
		return false, requestError(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
