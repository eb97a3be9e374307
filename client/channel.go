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
	"context"
	"errors"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
)

// ErrDocumentNotFound is returned when the gateway has no stored snapshot of
// the document. A session starting from it is not an error condition; it
// seeds a fresh replica instead.
var ErrDocumentNotFound = errors.New("document not found")

// Channel is the transport between a session and the sync gateway. A channel
// carries opaque snapshots and update messages plus presence heartbeats; it
// never interprets the binary payloads.
type Channel interface {
	// LoadSnapshot returns the stored snapshot of the document. It returns
	// ErrDocumentNotFound if the document was never saved.
	LoadSnapshot(ctx context.Context, docKey document.Key) (*types.SnapshotResponse, error)

	// SaveSnapshot overwrites the stored snapshot of the document.
	SaveSnapshot(ctx context.Context, docKey document.Key, state []byte) error

	// PushUpdate appends a binary update message to the document's log.
	PushUpdate(
		ctx context.Context,
		docKey document.Key,
		clientID string,
		update []byte,
	) (types.ID, error)

	// PullUpdates returns the update messages strictly after the given id,
	// oldest first, excluding the requesting client's own messages.
	PullUpdates(
		ctx context.Context,
		docKey document.Key,
		after types.ID,
		excludeClientID string,
	) ([]types.UpdateMessage, error)

	// RefreshPresence stores the presence heartbeat of this session.
	RefreshPresence(ctx context.Context, docKey document.Key, entry types.PresenceEntry) error

	// ListPresences returns the active presence entries of the document,
	// excluding the requesting client's own entry.
	ListPresences(
		ctx context.Context,
		docKey document.Key,
		excludeClientID string,
	) ([]types.PresenceEntry, error)

	// LeavePresence removes the presence entry of this session.
	LeavePresence(ctx context.Context, docKey document.Key, clientID string) error

	// Close closes the channel.
	Close() error
}
