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

package hash_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alepanel/colab/pkg/hash"
)

func TestClientID(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		assert.Equal(t, int64(0), hash.ClientID(""))
		assert.Equal(t, int64(97), hash.ClientID("a"))
		assert.Equal(t, int64(3105), hash.ClientID("ab"))
	})

	t.Run("deterministic", func(t *testing.T) {
		inputs := []string{
			"",
			"a",
			"1756400000000-k3j9xq2",
			"ной-клиент",
			"クライアント",
			"🙂🙃",
		}
		for _, in := range inputs {
			t.Run(fmt.Sprintf("input %q", in), func(t *testing.T) {
				assert.Equal(t, hash.ClientID(in), hash.ClientID(in))
			})
		}
	})

	t.Run("non-negative", func(t *testing.T) {
		// Long inputs overflow the 32-bit accumulator and go through the
		// absolute-value step.
		inputs := []string{
			"xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
			"1756400000000-abcdefg",
			"zzzzzzzzzzzzzzzz-qqqqqqqqqqqqqqq",
		}
		for _, in := range inputs {
			assert.GreaterOrEqual(t, hash.ClientID(in), int64(0))
		}
	})
}
