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

package awareness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alepanel/colab/api/types"
	"github.com/alepanel/colab/pkg/awareness"
	"github.com/alepanel/colab/pkg/hash"
)

func TestAwareness(t *testing.T) {
	t.Run("add then update then remove", func(t *testing.T) {
		a := awareness.New(42)
		var events []awareness.Event
		a.OnChange(func(event awareness.Event) {
			events = append(events, event)
		})

		a.UpdateRemoteStates([]types.PresenceEntry{
			{ClientID: "a", UserName: "Alice"},
			{ClientID: "b", UserName: "Bob"},
		})

		idA := hash.ClientID("a")
		idB := hash.ClientID("b")

		assert.Len(t, events, 1)
		assert.ElementsMatch(t, []int64{idA, idB}, events[0].Added)
		assert.Empty(t, events[0].Updated)
		assert.Empty(t, events[0].Removed)

		a.UpdateRemoteStates([]types.PresenceEntry{
			{ClientID: "a", UserName: "Alice2"},
		})

		assert.Len(t, events, 2)
		assert.Empty(t, events[1].Added)
		assert.Equal(t, []int64{idA}, events[1].Updated)
		assert.Equal(t, []int64{idB}, events[1].Removed)

		states := a.States()
		assert.Len(t, states, 1)
		assert.Equal(t, "Alice2", states[idA].UserName)
	})

	t.Run("self is never overwritten by remote snapshots", func(t *testing.T) {
		selfID := hash.ClientID("self")
		a := awareness.New(selfID)
		a.SetLocalState(&awareness.Entry{UserName: "Me", UserColor: "#123456"})

		var events []awareness.Event
		a.OnChange(func(event awareness.Event) {
			events = append(events, event)
		})

		a.UpdateRemoteStates([]types.PresenceEntry{
			{ClientID: "self", UserName: "Impostor"},
		})

		assert.Empty(t, events)
		assert.Equal(t, "Me", a.States()[selfID].UserName)
	})

	t.Run("identical snapshot emits nothing", func(t *testing.T) {
		a := awareness.New(42)
		a.UpdateRemoteStates([]types.PresenceEntry{{ClientID: "a", UserName: "Alice"}})

		var count int
		a.OnChange(func(awareness.Event) { count++ })

		a.UpdateRemoteStates([]types.PresenceEntry{{ClientID: "a", UserName: "Alice"}})
		assert.Equal(t, 0, count)

		a.UpdateRemoteStates(nil)
		assert.Equal(t, 1, count)

		// Table already empty; an empty snapshot is a no-op.
		a.UpdateRemoteStates(nil)
		assert.Equal(t, 1, count)
	})

	t.Run("missing fields are defaulted", func(t *testing.T) {
		a := awareness.New(42)
		a.UpdateRemoteStates([]types.PresenceEntry{{ClientID: "a"}})

		entry := a.States()[hash.ClientID("a")]
		assert.Equal(t, awareness.DefaultUserName, entry.UserName)
		assert.Equal(t, awareness.DefaultUserColor, entry.UserColor)
		assert.Nil(t, entry.Cursor)
	})

	t.Run("local state and cursor merge", func(t *testing.T) {
		a := awareness.New(7)
		assert.Nil(t, a.LocalState())

		var events []awareness.Event
		a.OnChange(func(event awareness.Event) {
			events = append(events, event)
		})

		a.SetLocalState(&awareness.Entry{UserName: "Me", UserColor: "#FF6B6B"})
		a.SetLocalCursor(&types.Cursor{Anchor: 3, Head: 9})

		assert.Len(t, events, 2)
		assert.Equal(t, []int64{7}, events[0].Updated)
		assert.Equal(t, []int64{7}, events[1].Updated)

		local := a.LocalState()
		assert.Equal(t, "Me", local.UserName)
		assert.Equal(t, &types.Cursor{Anchor: 3, Head: 9}, local.Cursor)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		a := awareness.New(42)
		var count int
		sub := a.OnChange(func(awareness.Event) { count++ })

		a.SetLocalState(&awareness.Entry{UserName: "Me"})
		assert.Equal(t, 1, count)

		a.Unsubscribe(sub)
		a.SetLocalState(&awareness.Entry{UserName: "Me again"})
		assert.Equal(t, 1, count)
	})

	t.Run("colliding string ids keep the latest entry", func(t *testing.T) {
		// "Aa" and "BB" hash to the same numeric id under the 31-based
		// accumulation.
		assert.Equal(t, hash.ClientID("Aa"), hash.ClientID("BB"))
		collidedID := hash.ClientID("Aa")

		a := awareness.New(42)
		a.UpdateRemoteStates([]types.PresenceEntry{
			{ClientID: "Aa", UserName: "First"},
			{ClientID: "BB", UserName: "Second"},
		})

		states := a.States()
		assert.Len(t, states, 1)
		assert.Equal(t, "Second", states[collidedID].UserName)

		a.UpdateRemoteStates([]types.PresenceEntry{
			{ClientID: "BB", UserName: "Second"},
			{ClientID: "Aa", UserName: "First"},
		})
		assert.Equal(t, "First", a.States()[collidedID].UserName)
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		a := awareness.New(42)
		a.SetLocalState(&awareness.Entry{UserName: "Me"})
		a.UpdateRemoteStates([]types.PresenceEntry{{ClientID: "a"}})

		a.Destroy()
		assert.Empty(t, a.States())

		a.Destroy()
		assert.Empty(t, a.States())
	})
}
