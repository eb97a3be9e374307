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
	"github.com/alepanel/colab/internal/validation"
)

// Cursor represents the selection range of a participant in a document. Anchor
// is where the selection started and Head is where it currently ends. A
// collapsed cursor has Anchor == Head.
type Cursor struct {
	Anchor int `json:"anchor" bson:"anchor"`
	Head   int `json:"head" bson:"head"`
}

// PresenceEntry is the ephemeral per-participant payload exchanged through the
// sync gateway. It exists only while the originating session keeps
// heartbeating; it is never persisted beyond the activity window.
type PresenceEntry struct {
	// ClientID is the opaque string id of the originating session.
	ClientID string `json:"clientId" bson:"client_id" validate:"required,min=1,max=64"`

	// UserID identifies the user behind the session. Optional.
	UserID string `json:"userId,omitempty" bson:"user_id,omitempty" validate:"omitempty,max=64"`

	// UserName is the display name rendered next to the remote cursor.
	UserName string `json:"userName,omitempty" bson:"user_name,omitempty" validate:"omitempty,max=64"`

	// UserColor is the display color of the remote cursor.
	UserColor string `json:"userColor,omitempty" bson:"user_color,omitempty" validate:"omitempty,hexcolor"`

	// Cursor is the current selection of the participant, if any.
	Cursor *Cursor `json:"cursor,omitempty" bson:"cursor,omitempty"`
}

// Validate validates the PresenceEntry.
func (p *PresenceEntry) Validate() error {
	return validation.ValidateStruct(p)
}

// DocumentSummary represents a summary of a stored document snapshot. It is
// used by the admin surface to list documents without transferring states.
type DocumentSummary struct {
	// DocumentName is the identity of the document.
	DocumentName string `json:"documentName" yaml:"documentName"`

	// SnapshotSize is the size of the stored snapshot in bytes.
	SnapshotSize int `json:"snapshotSize" yaml:"snapshotSize"`

	// UpdatedAt is the time the snapshot was last overwritten.
	UpdatedAt string `json:"updatedAt" yaml:"updatedAt"`
}
