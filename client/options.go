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
	"time"

	"github.com/alepanel/colab/server/logging"
)

// Below are the default intervals of a session. They match the cadence of the
// editor frontends this gateway was built for: a fast update exchange, a slow
// durable save, and heartbeats that keep the presence row inside the activity
// window.
const (
	DefaultSyncInterval     = 2 * time.Second
	DefaultSaveInterval     = 30 * time.Second
	DefaultPresenceInterval = 15 * time.Second
	DefaultDebounceInterval = 100 * time.Millisecond
)

// Option configures Options.
type Option func(*Options)

// Options configures how we set up a session.
type Options struct {
	// ClientID is the string id of this session. A random id is generated
	// when not given.
	ClientID string

	// UserID identifies the user behind the session.
	UserID string

	// UserName is the display name rendered next to this session's cursor.
	UserName string

	// UserColor is the display color of this session's cursor. When not
	// given, a palette color derived from UserID is used.
	UserColor string

	// SyncInterval is the time between update exchange rounds.
	SyncInterval time.Duration

	// SaveInterval is the time between durable snapshot saves.
	SaveInterval time.Duration

	// PresenceInterval is the time between presence heartbeats.
	PresenceInterval time.Duration

	// DebounceInterval is the quiet window of the cursor debouncer.
	DebounceInterval time.Duration

	// BufferPath is the path of the local pending-update buffer. The buffer
	// is disabled when empty: updates not yet pushed are lost on restart.
	BufferPath string

	// Loader seeds a document that has no stored snapshot yet.
	Loader DocumentLoader

	// Logger is the logger of the session.
	Logger logging.Logger
}

// WithClientID configures the string id of the session.
func WithClientID(clientID string) Option {
	return func(o *Options) { o.ClientID = clientID }
}

// WithUserID configures the user id of the session.
func WithUserID(userID string) Option {
	return func(o *Options) { o.UserID = userID }
}

// WithUserName configures the display name of the session.
func WithUserName(userName string) Option {
	return func(o *Options) { o.UserName = userName }
}

// WithUserColor configures the display color of the session.
func WithUserColor(userColor string) Option {
	return func(o *Options) { o.UserColor = userColor }
}

// WithSyncInterval configures the time between update exchange rounds.
func WithSyncInterval(interval time.Duration) Option {
	return func(o *Options) { o.SyncInterval = interval }
}

// WithSaveInterval configures the time between durable snapshot saves.
func WithSaveInterval(interval time.Duration) Option {
	return func(o *Options) { o.SaveInterval = interval }
}

// WithPresenceInterval configures the time between presence heartbeats.
func WithPresenceInterval(interval time.Duration) Option {
	return func(o *Options) { o.PresenceInterval = interval }
}

// WithDebounceInterval configures the quiet window of the cursor debouncer.
func WithDebounceInterval(interval time.Duration) Option {
	return func(o *Options) { o.DebounceInterval = interval }
}

// WithBufferPath configures the path of the local pending-update buffer.
func WithBufferPath(path string) Option {
	return func(o *Options) { o.BufferPath = path }
}

// WithLoader configures the loader seeding documents without snapshots.
func WithLoader(loader DocumentLoader) Option {
	return func(o *Options) { o.Loader = loader }
}

// WithLogger configures the logger of the session.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
