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
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alepanel/colab/pkg/document"
)

// updateBuffer persists update messages that have not reached the gateway
// yet. Edits made while the gateway is unreachable survive a process restart
// and are replayed on the next attach. One bucket per document, keyed by an
// insertion counter so replay order matches production order.
type updateBuffer struct {
	db     *bbolt.DB
	docKey document.Key
}

func openUpdateBuffer(path string, docKey document.Key) (*updateBuffer, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open update buffer %s: %w", path, err)
	}

	buffer := &updateBuffer{db: db, docKey: docKey}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(buffer.bucketName())
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create update buffer bucket: %w", err)
	}

	return buffer, nil
}

func (b *updateBuffer) bucketName() []byte {
	return []byte("updates/" + b.docKey.String())
}

// Append stores one update message at the tail of the buffer.
func (b *updateBuffer) Append(update []byte) error {
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucketName())
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, update)
	}); err != nil {
		return fmt.Errorf("append to update buffer: %w", err)
	}

	return nil
}

// Pending returns the buffered update messages in insertion order.
func (b *updateBuffer) Pending() ([][]byte, error) {
	var updates [][]byte
	if err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b.bucketName()).ForEach(func(_, value []byte) error {
			update := make([]byte, len(value))
			copy(update, value)
			updates = append(updates, update)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("read update buffer: %w", err)
	}

	return updates, nil
}

// Clear drops all buffered update messages. It is called after the gateway
// acknowledged them.
func (b *updateBuffer) Clear() error {
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(b.bucketName()); err != nil {
			return err
		}
		_, err := tx.CreateBucket(b.bucketName())
		return err
	}); err != nil {
		return fmt.Errorf("clear update buffer: %w", err)
	}

	return nil
}

// Close closes the buffer.
func (b *updateBuffer) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close update buffer: %w", err)
	}
	return nil
}
