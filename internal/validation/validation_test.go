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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Run("case sensitive slug test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("deal-room-42", "case_sensitive_slug"))
		assert.NoError(t, ValidateValue("Deal.Room_42~x", "case_sensitive_slug"))
		assert.Error(t, ValidateValue("deal room", "case_sensitive_slug"))
		assert.Error(t, ValidateValue("deal/room", "case_sensitive_slug"))
	})

	t.Run("slug test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("deal-room-42", "slug"))
		assert.Error(t, ValidateValue("DealRoom", "slug"))
	})

	t.Run("struct test", func(t *testing.T) {
		type fields struct {
			Name  string `validate:"required,min=1,max=10"`
			Color string `validate:"omitempty,hexcolor"`
		}

		assert.NoError(t, ValidateStruct(&fields{Name: "alice", Color: "#30bced"}))
		assert.NoError(t, ValidateStruct(&fields{Name: "alice"}))

		err := ValidateStruct(&fields{Name: "", Color: "blue"})
		assert.Error(t, err)
		structErr := &StructError{}
		assert.ErrorAs(t, err, &structErr)
		assert.Len(t, structErr.Violations, 2)
	})
}
