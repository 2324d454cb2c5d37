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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
)

const (
	transmissionSessionHeader = "X-Transmission-Session-Id"
	transmissionRPCPath       = "/transmission/rpc"
)

// TransmissionClient is a client for the Transmission JSON-RPC API.
//
// Transmission uses a custom session-ID handshake: the first request
// returns HTTP 409 with an X-Transmission-Session-Id header that must be
// echoed on all subsequent requests.
type TransmissionClient struct {
	inner     *http.Client
	rpcURL    *url.URL
	authValue string

	mu        sync.RWMutex
	sessionID string
}

type transmissionRPCRequest struct {
	Method    string `json:"method"`
	Arguments any    `json:"arguments,omitempty"`
}

type transmissionRPCResponse[T any] struct {
	Result    string `json:"result"`
	Arguments T      `json:"arguments"`
}

// SessionInfo mirrors the session-get response.
type SessionInfo struct {
	Version            string `json:"version"`
	RPCVersion         int64  `json:"rpc-version"`
	RPCVersionMinimum  int64  `json:"rpc-version-minimum"`
	DownloadDir        string `json:"download-dir"`
	ConfigDir          string `json:"config-dir"`
}

// SessionStats mirrors the session-stats response.
type SessionStats struct {
	ActiveTorrentCount int64 `json:"activeTorrentCount"`
	PausedTorrentCount int64 `json:"pausedTorrentCount"`
	TorrentCount       int64 `json:"torrentCount"`
	DownloadSpeed      int64 `json:"downloadSpeed"`
	UploadSpeed        int64 `json:"uploadSpeed"`
}

// NewTransmissionClient creates an RPC client. baseURL should be the root
// URL (e.g. "http://transmission:9091"). For authenticated instances, pass
// non-empty username/password.
func NewTransmissionClient(baseURL, username, password string) (*TransmissionClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, invalidURL(err)
	}
	parsed.Path = transmissionRPCPath

	var authValue string
	if username != "" && password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		authValue = "Basic " + creds
	}

	return &TransmissionClient{
		inner:     &http.Client{},
		rpcURL:    parsed,
		authValue: authValue,
	}, nil
}

// SessionGet fetches session info via session-get.
func (c *TransmissionClient) SessionGet(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.rpcCall(ctx, "session-get", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionStats fetches transfer statistics via session-stats.
func (c *TransmissionClient) SessionStats(ctx context.Context) (*SessionStats, error) {
	var out SessionStats
	if err := c.rpcCall(ctx, "session-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// rpcCall executes an RPC call, handling the session-ID handshake
// automatically.
func (c *TransmissionClient) rpcCall(ctx context.Context, method string, arguments any, out any) error {
	body := transmissionRPCRequest{Method: method, Arguments: arguments}

	resp, err := c.sendRPC(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		if sid := resp.Header.Get(transmissionSessionHeader); sid != "" {
			c.mu.Lock()
			c.sessionID = sid
			c.mu.Unlock()
		}
		resp2, err := c.sendRPC(ctx, body)
		if err != nil {
			return err
		}
		defer resp2.Body.Close()
		return decodeRPCResponse(resp2, out)
	}

	return decodeRPCResponse(resp, out)
}

func decodeRPCResponse(resp *http.Response, out any) error {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ApiError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	envelope := transmissionRPCResponse[json.RawMessage]{}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return requestError(err)
	}
	if err := json.Unmarshal(envelope.Arguments, out); err != nil {
		return requestError(err)
	}
	return nil
}

func (c *TransmissionClient) sendRPC(ctx context.Context, body transmissionRPCRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ApiError{Err: fmt.Errorf("encoding RPC request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, requestError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authValue != "" {
		req.Header.Set("Authorization", c.authValue)
	}

	c.mu.RLock()
	sid := c.sessionID
	c.mu.RUnlock()
	if sid != "" {
		req.Header.Set(transmissionSessionHeader, sid)
	}

	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, requestError(err)
	}
	return resp, nil
}

// IsHealthy implements HealthCheck.
func (c *TransmissionClient) IsHealthy(ctx context.Context) (bool, error) {
	info, err := c.SessionGet(ctx)
	if err != nil {
		return false, err
	}
	return info.Version != "", nil
}
