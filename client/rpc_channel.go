/*
 * Copyright 2025 The Alepanel Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
)

// RPCChannel is the HTTP implementation of Channel. It talks to the JSON API
// of the sync gateway.
type RPCChannel struct {
	baseURL    string
	httpClient *http.Client
}

// NewRPCChannel creates a channel connected to the gateway at the given
// address, e.g. "http://localhost:8080".
func NewRPCChannel(rpcAddr string) *RPCChannel {
	if !strings.Contains(rpcAddr, "://") {
		rpcAddr = "http://" + rpcAddr
	}

	return &RPCChannel{
		baseURL: strings.TrimSuffix(rpcAddr, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LoadSnapshot returns the stored snapshot of the document.
func (c *RPCChannel) LoadSnapshot(
	ctx context.Context,
	docKey document.Key,
) (*types.SnapshotResponse, error) {
	resp := &types.SnapshotResponse{}
	if err := c.do(
		ctx,
		http.MethodGet,
		fmt.Sprintf("/api/v1/documents/%s/snapshot", docKey),
		nil,
		resp,
	); err != nil {
		return nil, err
	}
	return resp, nil
}

// SaveSnapshot overwrites the stored snapshot of the document.
func (c *RPCChannel) SaveSnapshot(
	ctx context.Context,
	docKey document.Key,
	state []byte,
) error {
	return c.do(
		ctx,
		http.MethodPut,
		fmt.Sprintf("/api/v1/documents/%s/snapshot", docKey),
		types.SaveSnapshotRequest{State: state},
		nil,
	)
}

// PushUpdate appends a binary update message to the document's log.
func (c *RPCChannel) PushUpdate(
	ctx context.Context,
	docKey document.Key,
	clientID string,
	update []byte,
) (types.ID, error) {
	resp := &types.PushUpdateResponse{}
	if err := c.do(
		ctx,
		http.MethodPost,
		fmt.Sprintf("/api/v1/documents/%s/updates", docKey),
		types.PushUpdateRequest{ClientID: clientID, Update: update},
		resp,
	); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// PullUpdates returns the update messages strictly after the given id.
func (c *RPCChannel) PullUpdates(
	ctx context.Context,
	docKey document.Key,
	after types.ID,
	excludeClientID string,
) ([]types.UpdateMessage, error) {
	query := url.Values{}
	if after != "" {
		query.Set("after", after.String())
	}
	if excludeClientID != "" {
		query.Set("exclude", excludeClientID)
	}

	resp := &types.PullUpdatesResponse{}
	if err := c.do(
		ctx,
		http.MethodGet,
		fmt.Sprintf("/api/v1/documents/%s/updates?%s", docKey, query.Encode()),
		nil,
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Updates, nil
}

// RefreshPresence stores the presence heartbeat of this session.
func (c *RPCChannel) RefreshPresence(
	ctx context.Context,
	docKey document.Key,
	entry types.PresenceEntry,
) error {
	return c.do(
		ctx,
		http.MethodPut,
		fmt.Sprintf("/api/v1/documents/%s/presences/%s", docKey, entry.ClientID),
		entry,
		nil,
	)
}

// ListPresences returns the active presence entries of the document.
func (c *RPCChannel) ListPresences(
	ctx context.Context,
	docKey document.Key,
	excludeClientID string,
) ([]types.PresenceEntry, error) {
	query := url.Values{}
	if excludeClientID != "" {
		query.Set("exclude", excludeClientID)
	}

	resp := &types.PresencesResponse{}
	if err := c.do(
		ctx,
		http.MethodGet,
		fmt.Sprintf("/api/v1/documents/%s/presences?%s", docKey, query.Encode()),
		nil,
		resp,
	); err != nil {
		return nil, err
	}
	return resp.Presences, nil
}

// LeavePresence removes the presence entry of this session.
func (c *RPCChannel) LeavePresence(
	ctx context.Context,
	docKey document.Key,
	clientID string,
) error {
	return c.do(
		ctx,
		http.MethodDelete,
		fmt.Sprintf("/api/v1/documents/%s/presences/%s", docKey, clientID),
		nil,
		nil,
	)
}

// ListDocuments returns the summaries of all stored documents. It is the
// admin surface of the gateway and not part of the Channel contract.
func (c *RPCChannel) ListDocuments(ctx context.Context) ([]types.DocumentSummary, error) {
	resp := types.DocumentsResponse{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// RemoveDocument deletes the snapshot, the update log and the presences of
// the given document. It is the admin surface of the gateway and not part of
// the Channel contract.
func (c *RPCChannel) RemoveDocument(ctx context.Context, docKey document.Key) error {
	return c.do(
		ctx,
		http.MethodDelete,
		fmt.Sprintf("/api/v1/documents/%s", docKey),
		nil,
		nil,
	)
}

// Close closes the channel.
func (c *RPCChannel) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *RPCChannel) do(
	ctx context.Context,
	method, path string,
	reqBody, respBody interface{},
) error {
	var reader io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrDocumentNotFound
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		errResp := types.ErrorResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("%s %s: %d", method, path, resp.StatusCode)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
