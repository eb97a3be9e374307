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

// Package presences provides the presence operations of the sync gateway.
// Presence is heartbeat-driven: a session stays visible as long as it keeps
// refreshing, and disappears either by an explicit leave or by aging out of
// the activity window.
package presences

import (
	"context"
	"errors"
	"time"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/server/backend"
	"github.com/alepanel/colab/server/backend/database"
)

// Refresh stores the presence heartbeat of a session. The same call carries
// both pure heartbeats and payload changes; storage cannot tell them apart
// and does not need to.
func Refresh(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
	entry types.PresenceEntry,
) (*database.PresenceInfo, error) {
	if err := docKey.Validate(); err != nil {
		return nil, err
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	info, err := be.DB.UpsertPresenceInfo(ctx, docKey, entry, time.Now())
	if err != nil {
		return nil, err
	}
	be.Metrics.AddPresenceHeartbeat(docKey.String())

	return info, nil
}

// List returns the presence entries of the document seen within the activity
// window, excluding the requesting client's own entry.
func List(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
	excludeClientID string,
) ([]types.PresenceEntry, error) {
	if err := docKey.Validate(); err != nil {
		return nil, err
	}

	infos, err := be.DB.FindPresenceInfos(ctx, docKey, time.Now().Add(-be.PresenceTTL))
	if err != nil {
		return nil, err
	}

	var entries []types.PresenceEntry
	for _, info := range infos {
		if excludeClientID != "" && info.ClientID == excludeClientID {
			continue
		}
		entries = append(entries, info.Entry())
	}

	return entries, nil
}

// Leave removes the presence entry of the session. Leaving twice, or leaving
// after housekeeping already purged the entry, is not an error.
func Leave(
	ctx context.Context,
	be *backend.Backend,
	docKey document.Key,
	clientID string,
) error {
	if err := docKey.Validate(); err != nil {
		return err
	}

	if err := be.DB.DeletePresenceInfo(ctx, docKey, clientID); err != nil {
		if errors.Is(err, database.ErrPresenceNotFound) {
			return nil
		}
		return err
	}

	return nil
}
