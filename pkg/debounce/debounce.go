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

// Package debounce provides coalescing of high-frequency calls into a single
// invocation after a quiet interval.
package debounce

import (
	"sync"
	"time"
)

// Debouncer invokes its callback with the last triggered value once no new
// trigger arrived for the configured interval. It carries no other policy.
type Debouncer[T any] struct {
	mu       sync.Mutex
	interval time.Duration
	callback func(T)
	timer    *time.Timer
	stopped  bool
}

// New creates a Debouncer that fires callback after interval of quiet.
func New[T any](interval time.Duration, callback func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		interval: interval,
		callback: callback,
	}
}

// Trigger records the value and rearms the quiet-interval timer, cancelling
// any pending invocation.
func (d *Debouncer[T]) Trigger(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.callback(value)
	})
}

// Stop cancels any pending invocation and rejects further triggers. It must
// be called on teardown so that a late timer cannot fire against a destroyed
// session.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
