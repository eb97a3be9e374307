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
	"github.com/alepanel/colab/pkg/hash"
)

// palette is the set of cursor colors assigned to users. Distinct enough to
// tell collaborators apart on a white editor background.
var palette = []string{
	"#30bced",
	"#6eeb83",
	"#ffbc42",
	"#ecd444",
	"#ee6352",
	"#9ac2c9",
	"#8acb88",
	"#1be7ff",
}

// ColorFor returns the stable palette color of the given user id. The same
// id maps to the same color on every client.
func ColorFor(userID string) string {
	return palette[hash.ClientID(userID)%int64(len(palette))]
}
