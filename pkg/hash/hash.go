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

// Package hash provides the derivation of numeric client identifiers from
// opaque string session ids. The editor-facing presence table keys entries by
// numeric id, while the sync gateway identifies sessions by string id; this
// package bridges the two.
package hash

import "unicode/utf16"

// ClientID derives a compact numeric identifier from an opaque string id.
// The result is deterministic across processes and always non-negative. The
// accumulation runs over the UTF-16 code units of the input so that ids agree
// with peers that hash in UTF-16 space.
func ClientID(id string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(id)) {
		h = (h << 5) - h + int32(unit)
	}

	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}
