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

// Package memory implements the database interface using an in-memory
// database. It backs tests and single-process deployments without MongoDB.
package memory

import (
	"context"
	"fmt"
	"sort"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// FindSnapshotInfo returns the latest stored snapshot of the document.
func (d *DB) FindSnapshotInfo(
	_ context.Context,
	docKey document.Key,
) (*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", docKey.String())
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docKey, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", docKey, database.ErrSnapshotNotFound)
	}

	// NOTE: go-memdb hands out references to the stored objects, so copies
	// must cross the transaction boundary, never the originals.
	return raw.(*database.SnapshotInfo).DeepCopy(), nil
}

// UpsertSnapshotInfo overwrites the snapshot of the document.
func (d *DB) UpsertSnapshotInfo(
	_ context.Context,
	docKey document.Key,
	state []byte,
	updatedAt gotime.Time,
) (*database.SnapshotInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info := &database.SnapshotInfo{
		DocumentName: docKey.String(),
		State:        state,
		UpdatedAt:    updatedAt,
	}

	if err := txn.Insert(tblSnapshots, info.DeepCopy()); err != nil {
		return nil, fmt.Errorf("upsert snapshot of %s: %w", docKey, err)
	}
	txn.Commit()

	return info, nil
}

// ListSnapshotInfos returns all stored snapshots ordered by document name.
func (d *DB) ListSnapshotInfos(_ context.Context) ([]*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblSnapshots, "id")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var infos []*database.SnapshotInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		infos = append(infos, raw.(*database.SnapshotInfo).DeepCopy())
	}
	return infos, nil
}

// DeleteSnapshotInfo removes the snapshot of the document.
func (d *DB) DeleteSnapshotInfo(_ context.Context, docKey document.Key) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", docKey.String())
	if err != nil {
		return fmt.Errorf("find snapshot of %s: %w", docKey, err)
	}
	if raw == nil {
		return nil
	}

	if err := txn.Delete(tblSnapshots, raw); err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docKey, err)
	}
	txn.Commit()
	return nil
}

// CreateUpdateInfo appends a binary update message to the document's log.
func (d *DB) CreateUpdateInfo(
	_ context.Context,
	docKey document.Key,
	clientID string,
	update []byte,
) (*database.UpdateInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info := &database.UpdateInfo{
		ID:           types.NewID(),
		DocumentName: docKey.String(),
		ClientID:     clientID,
		Update:       update,
		CreatedAt:    gotime.Now(),
	}

	if err := txn.Insert(tblUpdates, info.DeepCopy()); err != nil {
		return nil, fmt.Errorf("create update of %s: %w", docKey, err)
	}
	txn.Commit()

	return info, nil
}

// FindUpdateInfos returns the update-log rows of the document strictly after
// the given id, oldest first.
func (d *DB) FindUpdateInfos(
	_ context.Context,
	docKey document.Key,
	after types.ID,
) ([]*database.UpdateInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblUpdates, "document_name", docKey.String())
	if err != nil {
		return nil, fmt.Errorf("find updates of %s: %w", docKey, err)
	}

	var infos []*database.UpdateInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		info := raw.(*database.UpdateInfo)
		if info.ID <= after {
			continue
		}
		infos = append(infos, info.DeepCopy())
	}

	// IDs are time-ordered, so id order is creation order.
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// PurgeUpdateInfos removes update-log rows created before the given time.
func (d *DB) PurgeUpdateInfos(
	_ context.Context,
	docKey document.Key,
	before gotime.Time,
) (int64, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tblUpdates, "document_name", docKey.String())
	if err != nil {
		return 0, fmt.Errorf("find updates of %s: %w", docKey, err)
	}

	// Gather first: deleting while iterating invalidates the iterator.
	var stale []interface{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		if raw.(*database.UpdateInfo).CreatedAt.Before(before) {
			stale = append(stale, raw)
		}
	}

	for _, raw := range stale {
		if err := txn.Delete(tblUpdates, raw); err != nil {
			return 0, fmt.Errorf("purge updates of %s: %w", docKey, err)
		}
	}
	txn.Commit()

	return int64(len(stale)), nil
}

// UpsertPresenceInfo stores the presence heartbeat of a session.
func (d *DB) UpsertPresenceInfo(
	_ context.Context,
	docKey document.Key,
	entry types.PresenceEntry,
	seenAt gotime.Time,
) (*database.PresenceInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info := &database.PresenceInfo{
		DocumentName: docKey.String(),
		ClientID:     entry.ClientID,
		UserID:       entry.UserID,
		UserName:     entry.UserName,
		UserColor:    entry.UserColor,
		Cursor:       entry.Cursor,
		SeenAt:       seenAt,
	}

	if err := txn.Insert(tblPresences, info.DeepCopy()); err != nil {
		return nil, fmt.Errorf("upsert presence of %s: %w", docKey, err)
	}
	txn.Commit()

	return info, nil
}

// FindPresenceInfos returns the presence entries seen after the given time.
func (d *DB) FindPresenceInfos(
	_ context.Context,
	docKey document.Key,
	seenAfter gotime.Time,
) ([]*database.PresenceInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblPresences, "document_name", docKey.String())
	if err != nil {
		return nil, fmt.Errorf("find presences of %s: %w", docKey, err)
	}

	var infos []*database.PresenceInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		info := raw.(*database.PresenceInfo)
		if !info.SeenAt.After(seenAfter) {
			continue
		}
		infos = append(infos, info.DeepCopy())
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ClientID < infos[j].ClientID })
	return infos, nil
}

// DeletePresenceInfo removes the presence entry of the given session.
func (d *DB) DeletePresenceInfo(
	_ context.Context,
	docKey document.Key,
	clientID string,
) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblPresences, "id", docKey.String(), clientID)
	if err != nil {
		return fmt.Errorf("find presence of %s: %w", docKey, err)
	}
	if raw == nil {
		return fmt.Errorf("%s in %s: %w", clientID, docKey, database.ErrPresenceNotFound)
	}

	if err := txn.Delete(tblPresences, raw); err != nil {
		return fmt.Errorf("delete presence of %s: %w", docKey, err)
	}
	txn.Commit()
	return nil
}

// PurgeStalePresenceInfos removes presence entries not seen since the given
// time, across all documents.
func (d *DB) PurgeStalePresenceInfos(
	_ context.Context,
	seenBefore gotime.Time,
) (int64, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tblPresences, "id")
	if err != nil {
		return 0, fmt.Errorf("list presences: %w", err)
	}

	var stale []interface{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		if raw.(*database.PresenceInfo).SeenAt.Before(seenBefore) {
			stale = append(stale, raw)
		}
	}

	for _, raw := range stale {
		if err := txn.Delete(tblPresences, raw); err != nil {
			return 0, fmt.Errorf("purge presences: %w", err)
		}
	}
	txn.Commit()

	return int64(len(stale)), nil
}
