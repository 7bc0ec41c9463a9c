/*
 * Copyright 2025 tomoncle.
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

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type base struct {
	Tenant string
}

type account struct {
	base
	ID      string
	Name    string
	Balance int64
	Rate    float64
	Note    *string
	hidden  string
}

func TestMergeSkipsIdentity(t *testing.T) {
	target := &account{ID: "a1", Name: "old", Balance: 10, hidden: "h"}
	source := account{ID: "b2", Name: "new", Balance: 20, Rate: 1.5}

	require.NoError(t, Merge(target, source))

	assert.Equal(t, "a1", target.ID)
	assert.Equal(t, "new", target.Name)
	assert.Equal(t, int64(20), target.Balance)
	assert.Equal(t, 1.5, target.Rate)
	assert.Equal(t, "h", target.hidden)
}

func TestMergeSkipsEmbedded(t *testing.T) {
	target := &account{base: base{Tenant: "t1"}}
	source := &account{base: base{Tenant: "t2"}}

	require.NoError(t, Merge(target, source))
	assert.Equal(t, "t1", target.Tenant)
}

func TestMergeValues(t *testing.T) {
	target := &account{ID: "a1", Name: "old", Balance: 10}

	err := MergeValues(target, map[string]any{
		"id":      "x",
		"NAME":    "y",
		"balance": 42,
		"unknown": true,
	})
	require.NoError(t, err)

	assert.Equal(t, "a1", target.ID)
	assert.Equal(t, "y", target.Name)
	assert.Equal(t, int64(42), target.Balance)
}

func TestMergeValuesPointerAndNil(t *testing.T) {
	note := "n"
	target := &account{Note: &note, Name: "keep"}

	require.NoError(t, MergeValues(target, map[string]any{"Note": nil}))
	assert.Nil(t, target.Note)

	require.NoError(t, MergeValues(target, map[string]any{"Note": "fresh"}))
	require.NotNil(t, target.Note)
	assert.Equal(t, "fresh", *target.Note)
	assert.Equal(t, "keep", target.Name)
}

func TestMergeErrors(t *testing.T) {
	assert.Error(t, Merge(account{}, account{}))
	assert.Error(t, Merge(&account{}, 3))
	assert.Error(t, MergeValues(&account{}, map[string]any{"Name": 3}))
}

func TestIdentity(t *testing.T) {
	a := &account{}
	assert.True(t, EnsureID(a))
	assert.Len(t, a.ID, 36)

	id := a.ID
	assert.False(t, EnsureID(a))
	assert.Equal(t, id, a.ID)

	got, ok := IdentityOf(a)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = IdentityOf(struct{ Name string }{})
	assert.False(t, ok)
}

func TestReadable(t *testing.T) {
	assert.Equal(t, `{ "a": 1, "b": x }`, Readable(map[string]any{"b": "x", "a": 1}))
	assert.Equal(t, "{ }", Readable(nil))
}

func TestMergeValuesRejectsLossyNumbers(t *testing.T) {
	type profile struct {
		Level int8
		Age   int
		Count uint16
		Ratio float32
	}

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"int overflow", map[string]any{"Level": 300}},
		{"negative into unsigned", map[string]any{"Count": -1}},
		{"fraction into int", map[string]any{"Age": 22.7}},
		{"float overflow into int", map[string]any{"Level": 1e6}},
		{"float32 overflow", map[string]any{"Ratio": 1e300}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &profile{Level: 1, Age: 2, Count: 3, Ratio: 0.5}
			assert.Error(t, MergeValues(p, tt.values))
			assert.Equal(t, &profile{Level: 1, Age: 2, Count: 3, Ratio: 0.5}, p)
		})
	}

	p := &profile{}
	require.NoError(t, MergeValues(p, map[string]any{"Level": float64(-128), "Age": 22.0, "Count": uint64(65535), "Ratio": 0.25}))
	assert.Equal(t, &profile{Level: -128, Age: 22, Count: 65535, Ratio: 0.25}, p)
}
