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

// UpdateInfo is one row of a document's append-only update log: a binary
// update message tagged with the session that produced it. IDs are
// time-ordered, so "strictly after id X" pulls work by id comparison.
type UpdateInfo struct {
	// ID is the unique, time-ordered id of the row.
	ID types.ID `bson:"_id"`

	// DocumentName is the document the update belongs to.
	DocumentName string `bson:"document_name"`

	// ClientID is the opaque string id of the producing session. Sessions
	// use it to skip their own updates when polling.
	ClientID string `bson:"client_id"`

	// Update is the opaque binary update message.
	Update []byte `bson:"update_data"`

	// CreatedAt is the time the row was appended. Compaction removes rows
	// older than the latest full snapshot.
	CreatedAt time.Time `bson:"created_at"`
}

// DeepCopy returns a deep copy of the UpdateInfo.
func (i *UpdateInfo) DeepCopy() *UpdateInfo {
	if i == nil {
		return nil
	}

	update := make([]byte, len(i.Update))
	copy(update, i.Update)

	return &UpdateInfo{
		ID:           i.ID,
		DocumentName: i.DocumentName,
		ClientID:     i.ClientID,
		Update:       update,
		CreatedAt:    i.CreatedAt,
	}
}
