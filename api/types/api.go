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

package types

import (
	"time"
)

// SnapshotResponse is the wire form of a stored document snapshot. State is
// the opaque binary snapshot, base64-encoded on the wire.
type SnapshotResponse struct {
	DocumentName string    `json:"documentName"`
	State        []byte    `json:"state"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SaveSnapshotRequest is the request body overwriting a stored snapshot.
type SaveSnapshotRequest struct {
	State []byte `json:"state"`
}

// PushUpdateRequest is the request body appending a binary update message to
// a document's update log.
type PushUpdateRequest struct {
	ClientID string `json:"clientId"`
	Update   []byte `json:"update"`
}

// PushUpdateResponse carries the log id assigned to a pushed update.
type PushUpdateResponse struct {
	ID ID `json:"id"`
}

// UpdateMessage is the wire form of one update-log row.
type UpdateMessage struct {
	ID        ID        `json:"id"`
	ClientID  string    `json:"clientId"`
	Update    []byte    `json:"update"`
	CreatedAt time.Time `json:"createdAt"`
}

// PullUpdatesResponse carries the update-log rows pulled by a client.
type PullUpdatesResponse struct {
	Updates []UpdateMessage `json:"updates"`
}

// PresencesResponse carries the active presence entries of a document.
type PresencesResponse struct {
	Presences []PresenceEntry `json:"presences"`
}

// DocumentsResponse carries the stored document summaries.
type DocumentsResponse struct {
	Documents []DocumentSummary `json:"documents"`
}

// ErrorResponse is the body of a non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}
