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

// Package document provides the replicated document handle. The handle wraps
// an automerge document: local edits mutate it synchronously in process,
// remote peers are reconciled by exchanging the binary update messages it
// produces, and durable persistence moves its snapshots as opaque blobs. The
// merge semantics live entirely inside automerge; this package never
// interprets the binary formats it moves around.
package document

import (
	"fmt"
	"sync"

	"github.com/automerge/automerge-go"

	"github.com/alepanel/colab/internal/validation"
)

// ContentField is the root map field holding the document body.
const ContentField = "content"

// ErrInvalidKey is returned when a document key cannot identify a document.
var ErrInvalidKey = fmt.Errorf("invalid document key")

// Key is the identity of a document. It keys snapshots, update-log rows and
// presence entries across the whole system.
type Key string

// Validate returns an error if the key cannot identify a document.
func (k Key) Validate() error {
	if err := validation.ValidateValue(
		k.String(),
		"required,min=1,max=120,case_sensitive_slug",
	); err != nil {
		return fmt.Errorf("%s: %w", k, ErrInvalidKey)
	}
	return nil
}

// String returns a string representation of this key.
func (k Key) String() string {
	return string(k)
}

// Document is the in-memory live instance of a shared document. It is owned
// by exactly one session and must not be used after the session closes.
type Document struct {
	mu  sync.Mutex
	key Key
	doc *automerge.Doc
}

// New creates an empty replicated document for the given key.
func New(key Key) (*Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	return &Document{
		key: key,
		doc: automerge.New(),
	}, nil
}

// FromSnapshot restores a replicated document from a stored snapshot. An
// empty snapshot yields a fresh document.
func FromSnapshot(key Key, snapshot []byte) (*Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return New(key)
	}

	doc, err := automerge.Load(snapshot)
	if err != nil {
		return nil, fmt.Errorf("load snapshot of %s: %w", key, err)
	}

	return &Document{
		key: key,
		doc: doc,
	}, nil
}

// Key returns the key of this document.
func (d *Document) Key() Key {
	return d.key
}

// Doc exposes the underlying automerge document for editor bindings. Callers
// share the session's single-writer discipline.
func (d *Document) Doc() *automerge.Doc {
	return d.doc
}

// Snapshot serializes the current merged state as an opaque binary blob.
func (d *Document) Snapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.doc.Save()
}

// ApplyUpdate merges a binary update message produced by a remote replica.
// Updates commute: replicas that received the same set of updates converge
// regardless of arrival order.
func (d *Document) ApplyUpdate(update []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.doc.LoadIncremental(update); err != nil {
		return fmt.Errorf("apply update to %s: %w", d.key, err)
	}
	return nil
}

// FlushUpdates drains the local changes made since the last flush or snapshot
// as one binary update message, or nil if there are none.
func (d *Document) FlushUpdates() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	update := d.doc.SaveIncremental()
	if len(update) == 0 {
		return nil
	}
	return update
}

// Checkpoint drains the pending local update and serializes a full snapshot
// in one step. Serializing resets the incremental baseline, so the two must
// not be observed separately: an edit landing in between would end up in the
// snapshot but never in an update message, and remote replicas would miss it.
func (d *Document) Checkpoint() (update []byte, snapshot []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	update = d.doc.SaveIncremental()
	if len(update) == 0 {
		update = nil
	}
	snapshot = d.doc.Save()
	return update, snapshot
}

// SetContent replaces the document body. It is the seeding entry point for
// documents that have no snapshot yet; regular editing goes through the
// editor's own bindings on Doc.
func (d *Document) SetContent(content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.doc.Path(ContentField).Set(content); err != nil {
		return fmt.Errorf("set content of %s: %w", d.key, err)
	}
	return nil
}

// Content returns the document body, or the empty string if none was set.
func (d *Document) Content() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	value, err := d.doc.Path(ContentField).Get()
	if err != nil {
		return "", fmt.Errorf("get content of %s: %w", d.key, err)
	}
	if value.Kind() != automerge.KindStr {
		return "", nil
	}
	return value.Str(), nil
}
