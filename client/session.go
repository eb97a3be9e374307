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

// Package client provides the session side of the sync system. A session
// attaches to a document through a channel, keeps the local replica
// reconciled with remote peers, persists snapshots periodically, and bridges
// presence between the local editor and the gateway.
package client

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/awareness"
	"github.com/alepanel/colab/pkg/debounce"
	"github.com/alepanel/colab/pkg/document"
	"github.com/alepanel/colab/pkg/hash"
	"github.com/alepanel/colab/server/logging"
)

// DocumentLoader seeds a document that has no stored snapshot yet. It is
// consulted exactly once per attach, before the first save.
type DocumentLoader interface {
	Load(ctx context.Context, docKey document.Key) (string, error)
}

// LoaderFunc is a function adapter for DocumentLoader.
type LoaderFunc func(ctx context.Context, docKey document.Key) (string, error)

// Load calls the underlying function.
func (f LoaderFunc) Load(ctx context.Context, docKey document.Key) (string, error) {
	return f(ctx, docKey)
}

// Session is a live attachment of one participant to one document. It owns
// the replicated document handle and the presence bridge, and runs the
// background loops exchanging updates, saving snapshots and heartbeating.
type Session struct {
	channel Channel
	docKey  document.Key
	options Options
	logger  logging.Logger

	clientID string
	doc      *document.Document
	aware    *awareness.Awareness
	debouncer *debounce.Debouncer[types.Cursor]
	buffer   *updateBuffer

	mu         gosync.Mutex
	pushMu     gosync.Mutex
	pending    [][]byte
	lastPulled types.ID
	connected  bool
	syncing    bool
	seeded     bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         gosync.WaitGroup
}

// Attach creates a session for the given document over the given channel.
// Attach never waits for the gateway: when it is unreachable the session
// starts disconnected and keeps retrying in the background with exponential
// backoff while local edits accumulate.
func Attach(
	ctx context.Context,
	channel Channel,
	docKey document.Key,
	opts ...Option,
) (*Session, error) {
	options := Options{
		SyncInterval:     DefaultSyncInterval,
		SaveInterval:     DefaultSaveInterval,
		PresenceInterval: DefaultPresenceInterval,
		DebounceInterval: DefaultDebounceInterval,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.ClientID == "" {
		options.ClientID = uuid.New().String()
	}
	if options.UserColor == "" {
		colorKey := options.UserID
		if colorKey == "" {
			colorKey = options.ClientID
		}
		options.UserColor = ColorFor(colorKey)
	}
	if options.Logger == nil {
		options.Logger = logging.New("session", logging.NewField("doc", docKey.String()))
	}

	doc, err := document.New(docKey)
	if err != nil {
		return nil, err
	}

	var buffer *updateBuffer
	if options.BufferPath != "" {
		buffer, err = openUpdateBuffer(options.BufferPath, docKey)
		if err != nil {
			return nil, err
		}
	}

	sessionCtx, cancelFunc := context.WithCancel(context.Background())
	session := &Session{
		channel: channel,
		docKey:  docKey,
		options: options,
		logger:  options.Logger,

		clientID: options.ClientID,
		doc:      doc,
		aware:    awareness.New(hash.ClientID(options.ClientID)),
		buffer:   buffer,

		syncing: true,

		ctx:        sessionCtx,
		cancelFunc: cancelFunc,
	}
	session.debouncer = debounce.New(options.DebounceInterval, session.UpdateCursor)

	session.aware.SetLocalState(&awareness.Entry{
		UserID:    options.UserID,
		UserName:  options.UserName,
		UserColor: options.UserColor,
	})

	if buffer != nil {
		if err := session.recoverPending(); err != nil {
			_ = buffer.Close()
			cancelFunc()
			return nil, err
		}
	}

	session.wg.Add(1)
	go session.run()

	return session, nil
}

// Document returns the replicated document handle of this session.
func (s *Session) Document() *document.Document {
	return s.doc
}

// Awareness returns the presence bridge of this session.
func (s *Session) Awareness() *awareness.Awareness {
	return s.aware
}

// ClientID returns the string id of this session.
func (s *Session) ClientID() string {
	return s.clientID
}

// IsConnected returns whether the session currently reaches the gateway.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// IsSyncing returns whether the session is still working on its first
// reconciliation with the gateway. Regular flush cycles do not re-raise it.
func (s *Session) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Presences returns the current presence table, own entry included.
func (s *Session) Presences() map[int64]awareness.Entry {
	return s.aware.States()
}

// OnSelectionChange reports a local cursor movement. Movements are debounced:
// only the last position inside a quiet window reaches the gateway.
func (s *Session) OnSelectionChange(cursor types.Cursor) {
	s.debouncer.Trigger(cursor)
}

// UpdateCursor publishes the local cursor position immediately. It is the
// call target of the debouncer; editors should prefer OnSelectionChange.
func (s *Session) UpdateCursor(cursor types.Cursor) {
	s.aware.SetLocalCursor(&types.Cursor{Anchor: cursor.Anchor, Head: cursor.Head})
	s.heartbeat(s.ctx)
}

// Sync runs one update exchange round immediately. The background loop runs
// the same round every sync interval.
func (s *Session) Sync(ctx context.Context) error {
	if err := s.pushPending(ctx); err != nil {
		return err
	}
	if err := s.pullUpdates(ctx); err != nil {
		return err
	}
	s.pullPresences(ctx)
	return nil
}

// Save persists a full snapshot immediately. The background loop does the
// same every save interval.
func (s *Session) Save(ctx context.Context) error {
	update, snapshot := s.doc.Checkpoint()
	if update != nil {
		s.enqueue(update)
	}
	if err := s.pushPending(ctx); err != nil {
		return err
	}
	return s.channel.SaveSnapshot(ctx, s.docKey, snapshot)
}

// Close detaches the session: it cancels the debouncer, stops the background
// loops, parks unpushed updates in the local buffer and destroys the presence
// bridge. No final presence update is sent; the gateway ages the entry out.
func (s *Session) Close() error {
	s.cancelFunc()
	s.debouncer.Stop()
	s.wg.Wait()

	if update := s.doc.FlushUpdates(); update != nil {
		s.enqueue(update)
	}

	var err error
	if s.buffer != nil {
		s.mu.Lock()
		pending := len(s.pending)
		s.mu.Unlock()
		if pending == 0 {
			err = s.buffer.Clear()
		}
		if closeErr := s.buffer.Close(); err == nil {
			err = closeErr
		}
	}

	s.aware.Destroy()
	return err
}

// run drives the session: establish the attachment, then loop until the
// connection drops, then establish again.
func (s *Session) run() {
	defer s.wg.Done()

	for {
		if err := s.establish(); err != nil {
			return
		}
		if !s.loop() {
			return
		}
	}
}

// establish reconciles the local replica with the gateway, retrying with
// exponential backoff until it succeeds or the session closes.
func (s *Session) establish() error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		if err := s.reconcile(s.ctx); err != nil {
			s.logger.Warnf("establish attachment: %v", err)
			return err
		}
		return nil
	}, backoff.WithContext(bo, s.ctx))
}

// reconcile performs one full attachment round: snapshot (or seed), pending
// replay, update catch-up and the first heartbeat.
func (s *Session) reconcile(ctx context.Context) error {
	snapshot, err := s.channel.LoadSnapshot(ctx, s.docKey)
	switch {
	case err == nil:
		if applyErr := s.doc.ApplyUpdate(snapshot.State); applyErr != nil {
			return applyErr
		}
	case errors.Is(err, ErrDocumentNotFound):
		if seedErr := s.seed(ctx); seedErr != nil {
			return seedErr
		}
	default:
		return err
	}

	if err := s.pushPending(ctx); err != nil {
		return err
	}
	if err := s.pullUpdates(ctx); err != nil {
		return err
	}
	if err := s.channel.RefreshPresence(ctx, s.docKey, s.localEntry()); err != nil {
		return err
	}
	s.pullPresences(ctx)

	s.mu.Lock()
	s.connected = true
	s.syncing = false
	s.mu.Unlock()

	return nil
}

// seed fills the fresh replica with initial content. It runs at most once
// per session.
func (s *Session) seed(ctx context.Context) error {
	s.mu.Lock()
	if s.seeded || s.options.Loader == nil {
		s.mu.Unlock()
		return nil
	}
	s.seeded = true
	s.mu.Unlock()

	content, err := s.options.Loader.Load(ctx, s.docKey)
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}

	return s.doc.SetContent(content)
}

// loop exchanges updates, saves snapshots and heartbeats until the session
// closes or the connection drops. It returns true when a reconnect should
// follow.
func (s *Session) loop() bool {
	syncTicker := time.NewTicker(s.options.SyncInterval)
	defer syncTicker.Stop()
	saveTicker := time.NewTicker(s.options.SaveInterval)
	defer saveTicker.Stop()
	presenceTicker := time.NewTicker(s.options.PresenceInterval)
	defer presenceTicker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return false

		case <-syncTicker.C:
			if err := s.Sync(s.ctx); err != nil {
				return s.dropConnection(err)
			}

		case <-saveTicker.C:
			if err := s.Save(s.ctx); err != nil {
				return s.dropConnection(err)
			}

		case <-presenceTicker.C:
			s.heartbeat(s.ctx)
		}
	}
}

func (s *Session) dropConnection(err error) bool {
	if s.ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	s.logger.Warnf("connection lost: %v", err)
	return true
}

// enqueue adds one update message to the unacknowledged queue and mirrors it
// to the local buffer.
func (s *Session) enqueue(update []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, update)
	s.mu.Unlock()

	if s.buffer != nil {
		if err := s.buffer.Append(update); err != nil {
			s.logger.Warnf("buffer update: %v", err)
		}
	}
}

// pushPending flushes new local edits and pushes every unacknowledged update
// message, oldest first. The buffer is cleared only once the gateway has
// acknowledged all of them. Drains are serialized by pushMu: the queue head
// stays pinned across the network push, so a Sync racing the background loop
// can neither push an update twice nor pop one it never pushed.
func (s *Session) pushPending(ctx context.Context) error {
	if update := s.doc.FlushUpdates(); update != nil {
		s.enqueue(update)
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			break
		}
		update := s.pending[0]
		s.mu.Unlock()

		if _, err := s.channel.PushUpdate(ctx, s.docKey, s.clientID, update); err != nil {
			return err
		}

		s.mu.Lock()
		s.pending = s.pending[1:]
		remaining := len(s.pending)
		s.mu.Unlock()

		if remaining == 0 && s.buffer != nil {
			if err := s.buffer.Clear(); err != nil {
				s.logger.Warnf("clear update buffer: %v", err)
			}
		}
	}

	return nil
}

// pullUpdates applies the update messages other sessions pushed since the
// last pull.
func (s *Session) pullUpdates(ctx context.Context) error {
	s.mu.Lock()
	after := s.lastPulled
	s.mu.Unlock()

	messages, err := s.channel.PullUpdates(ctx, s.docKey, after, s.clientID)
	if err != nil {
		return err
	}

	for _, message := range messages {
		if err := s.doc.ApplyUpdate(message.Update); err != nil {
			// A corrupt update message must not wedge the log behind it.
			s.logger.Errorf("apply update %s: %v", message.ID, err)
		}
		s.mu.Lock()
		s.lastPulled = message.ID
		s.mu.Unlock()
	}

	return nil
}

// pullPresences reconciles the presence bridge with the gateway's snapshot.
// Presence is best-effort: failures are logged and absorbed.
func (s *Session) pullPresences(ctx context.Context) {
	entries, err := s.channel.ListPresences(ctx, s.docKey, s.clientID)
	if err != nil {
		s.logger.Warnf("list presences: %v", err)
		return
	}

	s.aware.UpdateRemoteStates(entries)
}

// heartbeat refreshes this session's presence row. Presence is best-effort:
// failures are logged and absorbed.
func (s *Session) heartbeat(ctx context.Context) {
	if err := s.channel.RefreshPresence(ctx, s.docKey, s.localEntry()); err != nil {
		if ctx.Err() == nil {
			s.logger.Warnf("refresh presence: %v", err)
		}
	}
}

// localEntry builds the wire form of this session's presence state.
func (s *Session) localEntry() types.PresenceEntry {
	entry := types.PresenceEntry{
		ClientID:  s.clientID,
		UserID:    s.options.UserID,
		UserName:  s.options.UserName,
		UserColor: s.options.UserColor,
	}
	if local := s.aware.LocalState(); local != nil && local.Cursor != nil {
		cursor := *local.Cursor
		entry.Cursor = &cursor
	}
	return entry
}

// recoverPending reloads update messages a previous process buffered but
// never pushed. They are reapplied locally and queued for push.
func (s *Session) recoverPending() error {
	updates, err := s.buffer.Pending()
	if err != nil {
		return err
	}

	for _, update := range updates {
		if err := s.doc.ApplyUpdate(update); err != nil {
			s.logger.Errorf("recover buffered update: %v", err)
			continue
		}
		s.mu.Lock()
		s.pending = append(s.pending, update)
		s.mu.Unlock()
	}

	return nil
}
