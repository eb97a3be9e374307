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

package locker_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alepanel/colab/pkg/locker"
)

func TestLocker(t *testing.T) {
	t.Run("serializes by name", func(t *testing.T) {
		locks := locker.New()

		var counter int
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.Lock("doc-1")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, counter)
	})

	t.Run("different names do not block each other", func(t *testing.T) {
		locks := locker.New()

		unlockA := locks.Lock("doc-a")
		done := make(chan struct{})
		go func() {
			unlockB := locks.Lock("doc-b")
			unlockB()
			close(done)
		}()

		<-done
		unlockA()
	})
}
