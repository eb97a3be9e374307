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

package presences_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/server/backend"
	"github.com/alepanel/colab/server/backend/housekeeping"
	"github.com/alepanel/colab/server/presences"
	"github.com/alepanel/colab/server/profiling/prometheus"
)

func setUpBackend(t *testing.T) *backend.Backend {
	t.Helper()

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(&backend.Config{
		PresenceTTL:       "30s",
		UpdateRetention:   "5m",
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

func TestPresences(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh and list test", func(t *testing.T) {
		be := setUpBackend(t)

		_, err := presences.Refresh(ctx, be, "doc-presence", types.PresenceEntry{
			ClientID:  "client-a",
			UserName:  "alice",
			UserColor: "#30bced",
			Cursor:    &types.Cursor{Anchor: 1, Head: 4},
		})
		require.NoError(t, err)
		_, err = presences.Refresh(ctx, be, "doc-presence", types.PresenceEntry{
			ClientID: "client-b",
			UserName: "bob",
		})
		require.NoError(t, err)

		// client-a sees everyone but itself.
		entries, err := presences.List(ctx, be, "doc-presence", "client-a")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "client-b", entries[0].ClientID)
		assert.Equal(t, "bob", entries[0].UserName)

		entries, err = presences.List(ctx, be, "doc-presence", "")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("refresh rejects invalid entries test", func(t *testing.T) {
		be := setUpBackend(t)

		_, err := presences.Refresh(ctx, be, "doc-presence", types.PresenceEntry{
			UserName: "ghost",
		})
		assert.Error(t, err)

		_, err = presences.Refresh(ctx, be, "doc-presence", types.PresenceEntry{
			ClientID:  "client-a",
			UserColor: "blue",
		})
		assert.Error(t, err)
	})

	t.Run("leave test", func(t *testing.T) {
		be := setUpBackend(t)

		_, err := presences.Refresh(ctx, be, "doc-leave", types.PresenceEntry{
			ClientID: "client-a",
		})
		require.NoError(t, err)

		require.NoError(t, presences.Leave(ctx, be, "doc-leave", "client-a"))

		entries, err := presences.List(ctx, be, "doc-leave", "")
		require.NoError(t, err)
		assert.Empty(t, entries)

		// Leaving twice is not an error.
		assert.NoError(t, presences.Leave(ctx, be, "doc-leave", "client-a"))
	})
}
