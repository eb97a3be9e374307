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

package database

import (
	"time"

	"github.com/alepanel/colab/api/types"
)

// PresenceInfo is the stored heartbeat of one session watching one document.
// Entries are ephemeral: sessions refresh them periodically and housekeeping
// purges the ones that stopped heartbeating. Absence from a snapshot of this
// table is how peers learn about departure.
type PresenceInfo struct {
	// DocumentName is the document the session is watching.
	DocumentName string `bson:"document_name"`

	// ClientID is the opaque string id of the session. Unique per document.
	ClientID string `bson:"client_id"`

	// UserID identifies the user behind the session.
	UserID string `bson:"user_id,omitempty"`

	// UserName is the display name of the user.
	UserName string `bson:"user_name,omitempty"`

	// UserColor is the display color of the user's cursor.
	UserColor string `bson:"user_color,omitempty"`

	// Cursor is the last published selection, if any.
	Cursor *types.Cursor `bson:"cursor,omitempty"`

	// SeenAt is the time of the last heartbeat.
	SeenAt time.Time `bson:"seen_at"`
}

// DeepCopy returns a deep copy of the PresenceInfo.
func (i *PresenceInfo) DeepCopy() *PresenceInfo {
	if i == nil {
		return nil
	}

	cp := *i
	if i.Cursor != nil {
		cursor := *i.Cursor
		cp.Cursor = &cursor
	}
	return &cp
}

// Entry converts this info to the wire payload consumed by presence bridges.
func (i *PresenceInfo) Entry() types.PresenceEntry {
	entry := types.PresenceEntry{
		ClientID:  i.ClientID,
		UserID:    i.UserID,
		UserName:  i.UserName,
		UserColor: i.UserColor,
	}
	if i.Cursor != nil {
		cursor := *i.Cursor
		entry.Cursor = &cursor
	}
	return entry
}
