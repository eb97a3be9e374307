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

// Package documents provides the operations of the sync gateway on stored
// documents: snapshot load/save, the update log, and the admin listing.
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/server/backend"
	"github.com/alepanel/colab/server/backend/database"
)

// ErrEmptyUpdate is returned when a pushed update carries no bytes.
var ErrEmptyUpdate = errors.New("update is empty")

// ErrEmptySnapshot is returned when a saved snapshot carries no bytes.
var ErrEmptySnapshot = errors.New("snapshot is empty")

// snapshotLockKey returns the locker key serializing saves of the document.
func snapshotLockKey(docKey document.Key) string {
	return fmt.Sprintf("documents/%s", docKey)
}

// LoadSnapshot returns the latest stored snapshot of the document. It returns
// database.ErrSnapshotNotFound if the document was never saved; a brand-new
// session starts from an empty replica in that case.
func LoadSnapshot(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
) (*database.SnapshotInfo, error) {
	if err := docKey.Validate(); err != nil {
		return nil, err
	}

	if info, ok := be.SnapshotCache.Get(docKey.String()); ok {
		be.Metrics.AddSnapshotCacheHit()
		return info.DeepCopy(), nil
	}
	be.Metrics.AddSnapshotCacheMiss()

	info, err := be.DB.FindSnapshotInfo(ctx, docKey)
	if err != nil {
		return nil, err
	}

	be.SnapshotCache.Add(docKey.String(), info.DeepCopy())
	return info, nil
}

// SaveSnapshot overwrites the stored snapshot of the document with the given
// state and compacts the update log. Saves of the same document are
// serialized; concurrent savers are last-write-wins, which is safe because
// every saver holds a fully merged replica. Only log rows older than the
// retention window are compacted away: a row is not provably covered by this
// snapshot just because it exists, the saver may not have pulled it yet.
func SaveSnapshot(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
	state []byte,
) (*database.SnapshotInfo, error) {
	if err := docKey.Validate(); err != nil {
		return nil, err
	}
	if len(state) == 0 {
		return nil, ErrEmptySnapshot
	}

	unlock := be.Lockers.Lock(snapshotLockKey(docKey))
	defer unlock()

	now := time.Now()
	info, err := be.DB.UpsertSnapshotInfo(ctx, docKey, state, now)
	if err != nil {
		return nil, err
	}
	be.SnapshotCache.Add(docKey.String(), info.DeepCopy())
	be.Metrics.AddSnapshotSave(docKey.String(), len(state))

	purged, err := be.DB.PurgeUpdateInfos(ctx, docKey, now.Add(-be.UpdateRetention))
	if err != nil {
		return nil, err
	}
	be.Metrics.AddPurgedUpdates(purged)

	return info, nil
}

// PushUpdate appends a binary update message to the document's log so other
// sessions can pull and merge it.
func PushUpdate(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
	clientID string,
	update []byte,
) (*database.UpdateInfo, error) {
	if err := docKey.Validate(); err != nil {
		return nil, err
	}
	if len(update) == 0 {
		return nil, ErrEmptyUpdate
	}

	info, err := be.DB.CreateUpdateInfo(ctx, docKey, clientID, update)
	if err != nil {
		return nil, err
	}
	be.Metrics.AddPushedUpdates(docKey.String(), 1, len(update))

	return info, nil
}

// PullUpdates returns the update-log rows of the document strictly after the
// given id, oldest first, excluding rows pushed by the requesting client.
func PullUpdates(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
	after types.ID,
	excludeClientID string,
) ([]*database.UpdateInfo, error) {
	if err := docKey.Validate(); err != nil {
		return nil, err
	}

	infos, err := be.DB.FindUpdateInfos(ctx, docKey, after)
	if err != nil {
		return nil, err
	}

	var pulled []*database.UpdateInfo
	for _, info := range infos {
		if excludeClientID != "" && info.ClientID == excludeClientID {
			continue
		}
		pulled = append(pulled, info)
	}
	be.Metrics.AddPulledUpdates(docKey.String(), len(pulled))

	return pulled, nil
}

// ListDocumentSummaries returns a list of document summaries.
func ListDocumentSummaries(
	ctx context.Context,
	be *backend.Backend,
) ([]types.DocumentSummary, error) {
	infos, err := be.DB.ListSnapshotInfos(ctx)
	if err != nil {
		return nil, err
	}

	var summaries []types.DocumentSummary
	for _, info := range infos {
		summaries = append(summaries, info.Summary())
	}

	return summaries, nil
}

// RemoveDocument removes the stored snapshot, the update log and the presence
// entries of the document. Removing a document that was never saved is not an
// error.
func RemoveDocument(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
) error {
	if err := docKey.Validate(); err != nil {
		return err
	}

	unlock := be.Lockers.Lock(snapshotLockKey(docKey))
	defer unlock()

	be.SnapshotCache.Remove(docKey.String())

	if err := be.DB.DeleteSnapshotInfo(ctx, docKey); err != nil {
		return err
	}
	if _, err := be.DB.PurgeUpdateInfos(ctx, docKey, time.Now()); err != nil {
		return err
	}

	presences, err := be.DB.FindPresenceInfos(ctx, docKey, time.Time{})
	if err != nil {
		return err
	}
	for _, presence := range presences {
		if err := be.DB.DeletePresenceInfo(ctx, docKey, presence.ClientID); err != nil &&
			!errors.Is(err, database.ErrPresenceNotFound) {
			return err
		}
	}

	return nil
}
