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

// SnapshotInfo is the stored form of a document's replicated state. There is
// exactly one record per document name, overwritten on every save.
type SnapshotInfo struct {
	// DocumentName is the identity of the document. Unique.
	DocumentName string `bson:"document_name"`

	// State is the opaque binary snapshot produced by the replicated-state
	// runtime.
	State []byte `bson:"state"`

	// UpdatedAt is the time of the last overwrite.
	UpdatedAt time.Time `bson:"updated_at"`
}

// DeepCopy returns a deep copy of the SnapshotInfo.
func (i *SnapshotInfo) DeepCopy() *SnapshotInfo {
	if i == nil {
		return nil
	}

	state := make([]byte, len(i.State))
	copy(state, i.State)

	return &SnapshotInfo{
		DocumentName: i.DocumentName,
		State:        state,
		UpdatedAt:    i.UpdatedAt,
	}
}

// Summary converts this info to a DocumentSummary for the admin surface.
func (i *SnapshotInfo) Summary() types.DocumentSummary {
	return types.DocumentSummary{
		DocumentName: i.DocumentName,
		SnapshotSize: len(i.State),
		UpdatedAt:    i.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
