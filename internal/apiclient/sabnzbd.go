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

// SabnzbdClient is a client for the SABnzbd API.
//
// SABnzbd uses a query-parameter-based API:
// GET /api?mode=<action>&apikey=<key>&output=json
type SabnzbdClient struct {
	http   *HttpClient
	apiKey string
}

type sabnzbdVersionResponse struct {
	Version string `json:"version"`
}

type sabnzbdQueueResponse struct {
	Queue QueueStatus `json:"queue"`
}

// QueueStatus mirrors the SABnzbd queue status response.
type QueueStatus struct {
	Status     string `json:"status"`
	Speed      string `json:"speed"`
	SizeLeft   string `json:"sizeleft"`
	TotalMB    string `json:"mb"`
	MBLeft     string `json:"mbleft"`
	TotalSlots string `json:"noofslots_total"`
}

// ServerStatsResponse mirrors the SABnzbd server_stats response.
type ServerStatsResponse struct {
	Total   int64           `json:"total"`
	Servers json.RawMessage `json:"servers"`
}

// NewSabnzbdClient creates a SABnzbd client. baseURL should be the root URL
// (e.g. "http://sabnzbd:8080").
func NewSabnzbdClient(baseURL, apiKey string) (*SabnzbdClient, error) {
	base := strings.TrimSuffix(baseURL, "/")
	http, err := NewHttpClient(base+"/api", "")
	if err != nil {
		return nil, err
	}
	return &SabnzbdClient{http: http, apiKey: apiKey}, nil
}

// Version fetches mode=version.
func (c *SabnzbdClient) Version(ctx context.Context) (string, error) {
	var out sabnzbdVersionResponse
	if err := c.http.Get(ctx, c.query("version"), &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// QueueStatus fetches mode=queue.
func (c *SabnzbdClient) QueueStatus(ctx context.Context) (*QueueStatus, error) {
	var out sabnzbdQueueResponse
	if err := c.http.Get(ctx, c.query("queue"), &out); err != nil {
		return nil, err
	}
	return &out.Queue, nil
}

// ServerStats fetches mode=server_stats.
func (c *SabnzbdClient) ServerStats(ctx context.Context) (*ServerStatsResponse, error) {
	var out ServerStatsResponse
	if err := c.http.Get(ctx, c.query("server_stats"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SabnzbdClient) query(mode string) string {
	return fmt.Sprintf("?mode=%s&apikey=%s&output=json", mode, c.apiKey)
}

// IsHealthy implements HealthCheck.
func (c *SabnzbdClient) IsHealthy(ctx context.Context) (bool, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return false, err
	}
	return version != "", nil
}
