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

// Package types provides the types shared by the sync gateway and the client.
package types

import "github.com/rs/xid"

// ID represents ID of entity.
type ID string

// NewID creates a new ID.
func NewID() ID {
	return ID(xid.New().String())
}

// String returns a string representation of this ID.
func (id ID) String() string {
	return string(id)
}
