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

// Package awareness provides the presence bridge between the sync gateway and
// the editor. The gateway delivers full presence snapshots keyed by opaque
// string client ids; the editor consumes a numeric-keyed table with
// added/updated/removed change events. One Awareness instance is created per
// session and discarded with it.
package awareness

import (
	"sort"
	"sync"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/hash"
	"github.com/alepanel/colab/server/logging"
)

const (
	// DefaultUserName is used for remote entries that carry no user name.
	DefaultUserName = "Anonymous"

	// DefaultUserColor is used for remote entries that carry no color.
	DefaultUserColor = "#888"
)

// Entry is a single row of the presence table.
type Entry struct {
	UserID    string
	UserName  string
	UserColor string
	Cursor    *types.Cursor
}

func (e *Entry) equal(other *Entry) bool {
	if e.UserID != other.UserID ||
		e.UserName != other.UserName ||
		e.UserColor != other.UserColor {
		return false
	}
	if e.Cursor == nil || other.Cursor == nil {
		return e.Cursor == other.Cursor
	}
	return *e.Cursor == *other.Cursor
}

// Event describes one reconciliation of the presence table. The slices carry
// numeric client ids and are sorted ascending.
type Event struct {
	Added   []int64
	Updated []int64
	Removed []int64
}

// ChangeHandler is invoked with the outcome of each table mutation.
type ChangeHandler func(Event)

// Subscription represents a registered change handler. Registering the same
// function twice yields two distinct subscriptions; each must be unsubscribed
// on its own.
type Subscription struct {
	handler ChangeHandler
}

// Awareness mirrors the presence of all participants of a single document.
// The local entry is authoritative and is never overwritten by remote
// snapshots; remote entries are read-only mirrors garbage-collected when they
// disappear from the latest snapshot.
type Awareness struct {
	mu sync.RWMutex

	clientID int64
	local    *Entry
	states   map[int64]*Entry

	// sources remembers which string id produced each numeric id so that
	// collisions between distinct sessions are at least reported.
	sources map[int64]string

	subs map[*Subscription]struct{}
}

// New creates an Awareness for the session with the given numeric client id.
func New(clientID int64) *Awareness {
	return &Awareness{
		clientID: clientID,
		states:   make(map[int64]*Entry),
		sources:  make(map[int64]string),
		subs:     make(map[*Subscription]struct{}),
	}
}

// ClientID returns the numeric id of the local session.
func (a *Awareness) ClientID() int64 {
	return a.clientID
}

// LocalState returns a copy of the last entry passed to SetLocalState, or nil
// if none was set yet.
func (a *Awareness) LocalState() *Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.local == nil {
		return nil
	}
	cp := *a.local
	return &cp
}

// SetLocalState replaces the local presence entry outright. A nil entry is
// stored as an empty one, matching the behavior of clearing a selection.
func (a *Awareness) SetLocalState(entry *Entry) {
	a.mu.Lock()
	if entry == nil {
		entry = &Entry{}
	}
	cp := *entry
	a.local = &cp
	a.states[a.clientID] = &cp
	subs := a.handlers()
	a.mu.Unlock()

	emit(subs, Event{Added: []int64{}, Updated: []int64{a.clientID}, Removed: []int64{}})
}

// SetLocalCursor merges only the cursor field into the local entry, keeping
// the identity fields as they are.
func (a *Awareness) SetLocalCursor(cursor *types.Cursor) {
	a.mu.Lock()
	if a.local == nil {
		a.local = &Entry{}
	}
	a.local.Cursor = cursor
	a.states[a.clientID] = a.local
	subs := a.handlers()
	a.mu.Unlock()

	emit(subs, Event{Added: []int64{}, Updated: []int64{a.clientID}, Removed: []int64{}})
}

// States returns a copy of the full presence table, local entry included.
func (a *Awareness) States() map[int64]Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[int64]Entry, len(a.states))
	for id, entry := range a.states {
		out[id] = *entry
	}
	return out
}

// UpdateRemoteStates reconciles the table against a fresh presence snapshot
// from the gateway. The snapshot is the full current truth: entries missing
// from it are considered departed and removed. Entries whose hashed id equals
// the local id are skipped so that a remote snapshot can never overwrite
// local state. If nothing changed, no event is emitted.
func (a *Awareness) UpdateRemoteStates(snapshot []types.PresenceEntry) {
	a.mu.Lock()

	var added, updated []int64
	stale := make(map[int64]struct{}, len(a.states))
	for id := range a.states {
		stale[id] = struct{}{}
	}

	for _, remote := range snapshot {
		id := hash.ClientID(remote.ClientID)
		if id == a.clientID {
			delete(stale, id)
			continue
		}

		if src, ok := a.sources[id]; ok && src != remote.ClientID {
			logging.DefaultLogger().Warnf(
				"presence id collision: %q and %q both hash to %d, keeping the latest",
				src, remote.ClientID, id,
			)
		}
		a.sources[id] = remote.ClientID

		entry := &Entry{
			UserID:    remote.UserID,
			UserName:  remote.UserName,
			UserColor: remote.UserColor,
			Cursor:    remote.Cursor,
		}
		if entry.UserName == "" {
			entry.UserName = DefaultUserName
		}
		if entry.UserColor == "" {
			entry.UserColor = DefaultUserColor
		}

		if prev, ok := a.states[id]; ok {
			if !prev.equal(entry) {
				updated = append(updated, id)
			}
		} else {
			added = append(added, id)
		}
		a.states[id] = entry
		delete(stale, id)
	}

	var removed []int64
	for id := range stale {
		if id == a.clientID {
			continue
		}
		delete(a.states, id)
		delete(a.sources, id)
		removed = append(removed, id)
	}

	subs := a.handlers()
	a.mu.Unlock()

	if len(added) == 0 && len(updated) == 0 && len(removed) == 0 {
		return
	}
	sortIDs(added)
	sortIDs(updated)
	sortIDs(removed)
	emit(subs, Event{
		Added:   orEmpty(added),
		Updated: orEmpty(updated),
		Removed: orEmpty(removed),
	})
}

// OnChange registers a handler for table changes and returns its subscription.
func (a *Awareness) OnChange(handler ChangeHandler) *Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	sub := &Subscription{handler: handler}
	a.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the given subscription. Unknown subscriptions are
// ignored.
func (a *Awareness) Unsubscribe(sub *Subscription) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.subs, sub)
}

// Destroy clears all listeners and all presence entries. It is idempotent.
func (a *Awareness) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.local = nil
	a.states = make(map[int64]*Entry)
	a.sources = make(map[int64]string)
	a.subs = make(map[*Subscription]struct{})
}

// handlers snapshots the registered handlers. Callers must hold a.mu.
func (a *Awareness) handlers() []ChangeHandler {
	out := make([]ChangeHandler, 0, len(a.subs))
	for sub := range a.subs {
		out = append(out, sub.handler)
	}
	return out
}

func emit(handlers []ChangeHandler, event Event) {
	for _, handler := range handlers {
		handler(event)
	}
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func orEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
