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

// Package database provides the durable storage contract of the sync gateway:
// one snapshot per document overwritten in place, an append-only update log,
// and a heartbeat-driven presence table. The stored bytes are opaque; merge
// correctness is guaranteed by the replicated-state runtime upstream, storage
// only preserves the latest write.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
)

var (
	// ErrSnapshotNotFound is returned when the document was never saved.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrPresenceNotFound is returned when deleting a presence entry that
	// does not exist.
	ErrPresenceNotFound = errors.New("presence not found")
)

// Database is the persistence gateway. Upserts are last-write-wins: storage
// ordering only needs to preserve "most recent call wins", never re-merge.
type Database interface {
	// Close closes the database.
	Close() error

	// FindSnapshotInfo returns the latest stored snapshot of the document.
	// It returns ErrSnapshotNotFound if the document was never saved.
	FindSnapshotInfo(ctx context.Context, docKey document.Key) (*SnapshotInfo, error)

	// UpsertSnapshotInfo overwrites the snapshot of the document, creating
	// the record on first save. A failed save must surface as an error; a
	// silently dropped snapshot is unrecoverable data loss.
	UpsertSnapshotInfo(
		ctx context.Context,
		docKey document.Key,
		state []byte,
		updatedAt time.Time,
	) (*SnapshotInfo, error)

	// ListSnapshotInfos returns all stored snapshots, states included.
	ListSnapshotInfos(ctx context.Context) ([]*SnapshotInfo, error)

	// DeleteSnapshotInfo removes the snapshot of the document. Deleting a
	// document that was never saved is not an error.
	DeleteSnapshotInfo(ctx context.Context, docKey document.Key) error

	// CreateUpdateInfo appends a binary update message to the document's log.
	CreateUpdateInfo(
		ctx context.Context,
		docKey document.Key,
		clientID string,
		update []byte,
	) (*UpdateInfo, error)

	// FindUpdateInfos returns the update-log rows of the document strictly
	// after the given id, oldest first. An empty id returns the whole log.
	FindUpdateInfos(
		ctx context.Context,
		docKey document.Key,
		after types.ID,
	) ([]*UpdateInfo, error)

	// PurgeUpdateInfos removes update-log rows of the document created
	// before the given time and returns how many were removed.
	PurgeUpdateInfos(
		ctx context.Context,
		docKey document.Key,
		before time.Time,
	) (int64, error)

	// UpsertPresenceInfo stores the presence heartbeat of a session, keyed
	// by (document, client id).
	UpsertPresenceInfo(
		ctx context.Context,
		docKey document.Key,
		entry types.PresenceEntry,
		seenAt time.Time,
	) (*PresenceInfo, error)

	// FindPresenceInfos returns the presence entries of the document seen
	// after the given time.
	FindPresenceInfos(
		ctx context.Context,
		docKey document.Key,
		seenAfter time.Time,
	) ([]*PresenceInfo, error)

	// DeletePresenceInfo removes the presence entry of the given session.
	// It returns ErrPresenceNotFound if no such entry exists.
	DeletePresenceInfo(ctx context.Context, docKey document.Key, clientID string) error

	// PurgeStalePresenceInfos removes presence entries not seen since the
	// given time, across all documents, and returns how many were removed.
	PurgeStalePresenceInfos(ctx context.Context, seenBefore time.Time) (int64, error)
}
