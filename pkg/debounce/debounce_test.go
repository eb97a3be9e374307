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

package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alepanel/colab/pkg/debounce"
)

func TestDebouncer(t *testing.T) {
	t.Run("rapid triggers coalesce into the last value", func(t *testing.T) {
		var mu sync.Mutex
		var fired []int

		d := debounce.New(20*time.Millisecond, func(v int) {
			mu.Lock()
			defer mu.Unlock()
			fired = append(fired, v)
		})
		defer d.Stop()

		for i := 1; i <= 10; i++ {
			d.Trigger(i)
		}

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(fired) == 1 && fired[0] == 10
		}, time.Second, 5*time.Millisecond)

		// No further invocation after the quiet window.
		time.Sleep(60 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []int{10}, fired)
	})

	t.Run("stop cancels the pending invocation", func(t *testing.T) {
		var mu sync.Mutex
		var count int

		d := debounce.New(20*time.Millisecond, func(int) {
			mu.Lock()
			defer mu.Unlock()
			count++
		})

		d.Trigger(1)
		d.Stop()

		time.Sleep(60 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, count)
	})

	t.Run("trigger after stop is ignored", func(t *testing.T) {
		var mu sync.Mutex
		var count int

		d := debounce.New(time.Millisecond, func(int) {
			mu.Lock()
			defer mu.Unlock()
			count++
		})

		d.Stop()
		d.Trigger(1)

		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, count)
	})
}
