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

package documents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/server/backend"
	"github.com/alepanel/colab/server/backend/database"
	"github.com/alepanel/colab/server/backend/housekeeping"
	"github.com/alepanel/colab/server/documents"
	"github.com/alepanel/colab/server/profiling/prometheus"
)

func setUpBackend(t *testing.T, updateRetention string) *backend.Backend {
	t.Helper()

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(&backend.Config{
		PresenceTTL:       "30s",
		UpdateRetention:   updateRetention,
		SnapshotCacheSize: 16,
	}, nil, &housekeeping.Config{
		Interval: "1m",
	}, metrics)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, be.Shutdown())
	})

	return be
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("load missing snapshot test", func(t *testing.T) {
		be := setUpBackend(t, "5m")

		_, err := documents.LoadSnapshot(ctx, be, "doc-missing")
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})

	t.Run("save and load snapshot test", func(t *testing.T) {
		be := setUpBackend(t, "5m")
		docKey := document.Key("doc-save")

		doc, err := document.New(docKey)
		require.NoError(t, err)
		require.NoError(t, doc.SetContent("hello"))

		saved, err := documents.SaveSnapshot(ctx, be, docKey, doc.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, docKey.String(), saved.DocumentName)

		// First load is served from the cache populated by the save.
		loaded, err := documents.LoadSnapshot(ctx, be, docKey)
		require.NoError(t, err)

		restored, err := document.FromSnapshot(docKey, loaded.State)
		require.NoError(t, err)
		content, err := restored.Content()
		require.NoError(t, err)
		assert.Equal(t, "hello", content)
	})

	t.Run("load falls back to database on cache miss test", func(t *testing.T) {
		be := setUpBackend(t, "5m")
		docKey := document.Key("doc-cache")

		doc, err := document.New(docKey)
		require.NoError(t, err)
		require.NoError(t, doc.SetContent("cached"))

		_, err = documents.SaveSnapshot(ctx, be, docKey, doc.Snapshot())
		require.NoError(t, err)

		be.SnapshotCache.Purge()

		loaded, err := documents.LoadSnapshot(ctx, be, docKey)
		require.NoError(t, err)
		assert.NotEmpty(t, loaded.State)

		// The miss repopulates the cache.
		_, ok := be.SnapshotCache.Get(docKey.String())
		assert.True(t, ok)
	})

	t.Run("empty snapshot and update are rejected test", func(t *testing.T) {
		be := setUpBackend(t, "5m")

		_, err := documents.SaveSnapshot(ctx, be, "doc-empty", nil)
		assert.ErrorIs(t, err, documents.ErrEmptySnapshot)

		_, err = documents.PushUpdate(ctx, be, "doc-empty", "client-a", nil)
		assert.ErrorIs(t, err, documents.ErrEmptyUpdate)
	})

	t.Run("push and pull updates test", func(t *testing.T) {
		be := setUpBackend(t, "5m")
		docKey := document.Key("doc-updates")

		first, err := documents.PushUpdate(ctx, be, docKey, "client-a", []byte{0x01})
		require.NoError(t, err)
		_, err = documents.PushUpdate(ctx, be, docKey, "client-b", []byte{0x02})
		require.NoError(t, err)
		_, err = documents.PushUpdate(ctx, be, docKey, "client-a", []byte{0x03})
		require.NoError(t, err)

		// client-b pulls everything but its own row.
		pulled, err := documents.PullUpdates(ctx, be, docKey, types.ID(""), "client-b")
		require.NoError(t, err)
		require.Len(t, pulled, 2)
		assert.Equal(t, []byte{0x01}, pulled[0].Update)
		assert.Equal(t, []byte{0x03}, pulled[1].Update)

		// Pulling after the first row skips it.
		pulled, err = documents.PullUpdates(ctx, be, docKey, first.ID, "client-b")
		require.NoError(t, err)
		require.Len(t, pulled, 1)
		assert.Equal(t, []byte{0x03}, pulled[0].Update)
	})

	t.Run("snapshot save compacts aged update log test", func(t *testing.T) {
		be := setUpBackend(t, "0s")
		docKey := document.Key("doc-compact")

		doc, err := document.New(docKey)
		require.NoError(t, err)
		require.NoError(t, doc.SetContent("compacted"))

		_, err = documents.PushUpdate(ctx, be, docKey, "client-a", []byte{0x01})
		require.NoError(t, err)
		_, err = documents.PushUpdate(ctx, be, docKey, "client-a", []byte{0x02})
		require.NoError(t, err)

		_, err = documents.SaveSnapshot(ctx, be, docKey, doc.Snapshot())
		require.NoError(t, err)

		pulled, err := documents.PullUpdates(ctx, be, docKey, types.ID(""), "")
		require.NoError(t, err)
		assert.Empty(t, pulled)
	})

	t.Run("list document summaries test", func(t *testing.T) {
		be := setUpBackend(t, "5m")

		for _, docKey := range []document.Key{"doc-list-a", "doc-list-b"} {
			doc, err := document.New(docKey)
			require.NoError(t, err)
			require.NoError(t, doc.SetContent("listed"))
			_, err = documents.SaveSnapshot(ctx, be, docKey, doc.Snapshot())
			require.NoError(t, err)
		}

		summaries, err := documents.ListDocumentSummaries(ctx, be)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "doc-list-a", summaries[0].DocumentName)
		assert.Equal(t, "doc-list-b", summaries[1].DocumentName)
		assert.Positive(t, summaries[0].SnapshotSize)
	})

	t.Run("remove document test", func(t *testing.T) {
		be := setUpBackend(t, "5m")
		docKey := document.Key("doc-remove")

		doc, err := document.New(docKey)
		require.NoError(t, err)
		require.NoError(t, doc.SetContent("removed"))

		_, err = documents.SaveSnapshot(ctx, be, docKey, doc.Snapshot())
		require.NoError(t, err)
		_, err = documents.PushUpdate(ctx, be, docKey, "client-a", []byte{0x01})
		require.NoError(t, err)

		require.NoError(t, documents.RemoveDocument(ctx, be, docKey))

		_, err = documents.LoadSnapshot(ctx, be, docKey)
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)

		pulled, err := documents.PullUpdates(ctx, be, docKey, types.ID(""), "")
		require.NoError(t, err)
		assert.Empty(t, pulled)

		// Removing again is not an error.
		assert.NoError(t, documents.RemoveDocument(ctx, be, docKey))
	})
}
