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
 *
 * This file was written with reference to moby/locker.
 *   https://github.com/moby/locker
 */

// Package locker provides named locks so that operations on one document do
// not block operations on another. Lock entries are cleaned up on unlock when
// nothing else is waiting for them.
package locker

import (
	"sync"
	"sync/atomic"
)

// Locker hands out one mutex per name.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockCtr
}

type lockCtr struct {
	mu      sync.Mutex
	waiters int32
}

func (l *lockCtr) inc() {
	atomic.AddInt32(&l.waiters, 1)
}

func (l *lockCtr) dec() {
	atomic.AddInt32(&l.waiters, -1)
}

func (l *lockCtr) count() int32 {
	return atomic.LoadInt32(&l.waiters)
}

// New creates a new Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]*lockCtr),
	}
}

// Lock locks the mutex with the given name, creating it if it does not exist,
// and returns the matching unlock function.
func (l *Locker) Lock(name string) func() {
	l.mu.Lock()
	nameLock, exists := l.locks[name]
	if !exists {
		nameLock = &lockCtr{}
		l.locks[name] = nameLock
	}

	// Count the waiter inside the main mutex so a concurrent unlock cannot
	// delete the entry out from under us.
	nameLock.inc()
	l.mu.Unlock()

	nameLock.mu.Lock()
	nameLock.dec()

	return func() {
		l.mu.Lock()
		if nameLock.count() == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()

		nameLock.mu.Unlock()
	}
}
