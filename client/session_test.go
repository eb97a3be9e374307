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

package client_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/client"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/pkg/hash"
	"github.com/alepanel/colab/server/backend"
	"github.com/alepanel/colab/server/backend/housekeeping"
	"github.com/alepanel/colab/server/profiling/prometheus"
	"github.com/alepanel/colab/server/rpc"
)

const waitTimeout = 5 * time.Second

func setUpGateway(t *testing.T) *httptest.Server {
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

	server, err := rpc.NewServer(&rpc.Config{Port: 0}, be)
	require.NoError(t, err)

	testServer := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		testServer.Close()
		assert.NoError(t, be.Shutdown())
	})

	return testServer
}

func attach(
	t *testing.T,
	gateway *httptest.Server,
	docKey document.Key,
	opts ...client.Option,
) *client.Session {
	t.Helper()

	channel := client.NewRPCChannel(gateway.URL)
	session, err := client.Attach(context.Background(), channel, docKey, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, session.Close())
	})

	return session
}

func waitConnected(t *testing.T, session *client.Session) {
	t.Helper()

	require.Eventually(t, session.IsConnected, waitTimeout, 10*time.Millisecond)
	require.False(t, session.IsSyncing())
}

func TestSession(t *testing.T) {
	t.Run("seed and converge test", func(t *testing.T) {
		gateway := setUpGateway(t)
		docKey := document.Key("session-converge")
		ctx := context.Background()

		loader := client.LoaderFunc(func(
			ctx context.Context,
			docKey document.Key,
		) (string, error) {
			return "hello", nil
		})

		alice := attach(t, gateway, docKey,
			client.WithClientID("alice"),
			client.WithLoader(loader),
		)
		waitConnected(t, alice)

		content, err := alice.Document().Content()
		require.NoError(t, err)
		assert.Equal(t, "hello", content)
		require.NoError(t, alice.Save(ctx))

		bob := attach(t, gateway, docKey, client.WithClientID("bob"))
		waitConnected(t, bob)

		content, err = bob.Document().Content()
		require.NoError(t, err)
		assert.Equal(t, "hello", content)

		require.NoError(t, alice.Document().SetContent("hello, world"))
		require.NoError(t, alice.Sync(ctx))
		require.NoError(t, bob.Sync(ctx))

		content, err = bob.Document().Content()
		require.NoError(t, err)
		assert.Equal(t, "hello, world", content)
	})

	t.Run("presence visibility test", func(t *testing.T) {
		gateway := setUpGateway(t)
		docKey := document.Key("session-presence")
		ctx := context.Background()

		alice := attach(t, gateway, docKey,
			client.WithClientID("alice"),
			client.WithUserName("Alice"),
			client.WithUserColor("#30bced"),
		)
		waitConnected(t, alice)

		bob := attach(t, gateway, docKey, client.WithClientID("bob"))
		waitConnected(t, bob)
		require.NoError(t, bob.Sync(ctx))

		states := bob.Presences()
		aliceEntry, ok := states[hash.ClientID("alice")]
		require.True(t, ok)
		assert.Equal(t, "Alice", aliceEntry.UserName)
		assert.Equal(t, "#30bced", aliceEntry.UserColor)

		alice.UpdateCursor(types.Cursor{Anchor: 3, Head: 7})
		require.NoError(t, bob.Sync(ctx))

		aliceEntry = bob.Presences()[hash.ClientID("alice")]
		require.NotNil(t, aliceEntry.Cursor)
		assert.Equal(t, 3, aliceEntry.Cursor.Anchor)
		assert.Equal(t, 7, aliceEntry.Cursor.Head)
	})

	t.Run("debounced selection test", func(t *testing.T) {
		gateway := setUpGateway(t)
		docKey := document.Key("session-debounce")
		ctx := context.Background()

		alice := attach(t, gateway, docKey,
			client.WithClientID("alice"),
			client.WithDebounceInterval(50*time.Millisecond),
		)
		waitConnected(t, alice)

		bob := attach(t, gateway, docKey, client.WithClientID("bob"))
		waitConnected(t, bob)

		// Only the last position of a burst survives the quiet window.
		for head := 1; head <= 5; head++ {
			alice.OnSelectionChange(types.Cursor{Anchor: 0, Head: head})
		}

		require.Eventually(t, func() bool {
			if err := bob.Sync(ctx); err != nil {
				return false
			}
			entry, ok := bob.Presences()[hash.ClientID("alice")]
			return ok && entry.Cursor != nil && entry.Cursor.Head == 5
		}, waitTimeout, 20*time.Millisecond)
	})

	t.Run("default color assignment test", func(t *testing.T) {
		gateway := setUpGateway(t)
		docKey := document.Key("session-color")

		alice := attach(t, gateway, docKey,
			client.WithClientID("alice"),
			client.WithUserID("user-a"),
		)
		waitConnected(t, alice)

		bob := attach(t, gateway, docKey, client.WithClientID("bob"))
		waitConnected(t, bob)
		require.NoError(t, bob.Sync(context.Background()))

		entry := bob.Presences()[hash.ClientID("alice")]
		assert.Equal(t, client.ColorFor("user-a"), entry.UserColor)
	})

	t.Run("offline buffer replay test", func(t *testing.T) {
		gateway := setUpGateway(t)
		docKey := document.Key("session-buffer")
		ctx := context.Background()
		bufferPath := filepath.Join(t.TempDir(), "pending.db")

		// First lifetime: the gateway is unreachable, edits stay local.
		deadChannel := client.NewRPCChannel("127.0.0.1:1")
		offline, err := client.Attach(ctx, deadChannel, docKey,
			client.WithClientID("alice"),
			client.WithBufferPath(bufferPath),
		)
		require.NoError(t, err)
		assert.False(t, offline.IsConnected())
		assert.True(t, offline.IsSyncing())

		require.NoError(t, offline.Document().SetContent("written offline"))
		require.NoError(t, offline.Close())

		// Second lifetime: the buffered edit reaches the gateway.
		alice := attach(t, gateway, docKey,
			client.WithClientID("alice"),
			client.WithBufferPath(bufferPath),
		)
		waitConnected(t, alice)

		content, err := alice.Document().Content()
		require.NoError(t, err)
		assert.Equal(t, "written offline", content)

		bob := attach(t, gateway, docKey, client.WithClientID("bob"))
		waitConnected(t, bob)

		content, err = bob.Document().Content()
		require.NoError(t, err)
		assert.Equal(t, "written offline", content)
	})

	t.Run("concurrent sync pushes each update once test", func(t *testing.T) {
		ctx := context.Background()
		channel := &recordingChannel{pushDelay: 50 * time.Millisecond}

		session, err := client.Attach(ctx, channel, "session-concurrent-sync",
			client.WithClientID("alice"),
			client.WithSyncInterval(time.Hour),
			client.WithSaveInterval(time.Hour),
			client.WithPresenceInterval(time.Hour),
		)
		require.NoError(t, err)
		waitConnected(t, session)

		require.NoError(t, session.Document().SetContent("first"))

		errCh := make(chan error, 2)
		go func() { errCh <- session.Sync(ctx) }()

		// Let the first drain enter its network push before the second
		// edit lands behind it in the queue.
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, session.Document().SetContent("second"))
		go func() { errCh <- session.Sync(ctx) }()

		require.NoError(t, <-errCh)
		require.NoError(t, <-errCh)
		require.NoError(t, session.Close())

		pushed := channel.pushedUpdates()
		require.Len(t, pushed, 2)
		assert.NotEqual(t, pushed[0], pushed[1])
	})

	t.Run("close sends no final presence update test", func(t *testing.T) {
		ctx := context.Background()
		channel := &recordingChannel{}

		session, err := client.Attach(ctx, channel, "session-close-presence",
			client.WithClientID("alice"),
			client.WithSyncInterval(time.Hour),
			client.WithSaveInterval(time.Hour),
			client.WithPresenceInterval(time.Hour),
		)
		require.NoError(t, err)
		waitConnected(t, session)

		refreshesBefore, _ := channel.presenceCalls()
		require.NoError(t, session.Close())

		refreshes, leaves := channel.presenceCalls()
		assert.Equal(t, refreshesBefore, refreshes)
		assert.Zero(t, leaves)
	})

	t.Run("reject invalid document key test", func(t *testing.T) {
		gateway := setUpGateway(t)

		channel := client.NewRPCChannel(gateway.URL)
		_, err := client.Attach(context.Background(), channel, "no spaces")
		assert.ErrorIs(t, err, document.ErrInvalidKey)
	})
}

// recordingChannel is an in-process Channel that records pushed updates and
// presence traffic. The gateway side has no state: every document is new.
type recordingChannel struct {
	mu        sync.Mutex
	pushed    [][]byte
	refreshes int
	leaves    int

	pushDelay time.Duration
}

func (c *recordingChannel) LoadSnapshot(
	_ context.Context,
	_ document.Key,
) (*types.SnapshotResponse, error) {
	return nil, client.ErrDocumentNotFound
}

func (c *recordingChannel) SaveSnapshot(_ context.Context, _ document.Key, _ []byte) error {
	return nil
}

func (c *recordingChannel) PushUpdate(
	_ context.Context,
	_ document.Key,
	_ string,
	update []byte,
) (types.ID, error) {
	if c.pushDelay > 0 {
		time.Sleep(c.pushDelay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, append([]byte(nil), update...))
	return types.NewID(), nil
}

func (c *recordingChannel) PullUpdates(
	_ context.Context,
	_ document.Key,
	_ types.ID,
	_ string,
) ([]types.UpdateMessage, error) {
	return nil, nil
}

func (c *recordingChannel) RefreshPresence(
	_ context.Context,
	_ document.Key,
	_ types.PresenceEntry,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	return nil
}

func (c *recordingChannel) ListPresences(
	_ context.Context,
	_ document.Key,
	_ string,
) ([]types.PresenceEntry, error) {
	return nil, nil
}

func (c *recordingChannel) LeavePresence(_ context.Context, _ document.Key, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaves++
	return nil
}

func (c *recordingChannel) Close() error {
	return nil
}

func (c *recordingChannel) pushedUpdates() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.pushed...)
}

func (c *recordingChannel) presenceCalls() (refreshes, leaves int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes, c.leaves
}
