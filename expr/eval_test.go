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

package expr

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owner struct {
	Email string
}

type person struct {
	ID        string
	Name      string
	Age       int
	Score     float64
	Active    bool
	Nickname  *string
	CreatedAt time.Time
	Owner     *owner
}

func TestMatch(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &person{ID: "1", Name: "ann", Age: 30, Score: 4.5, Active: true, CreatedAt: created,
		Owner: &owner{Email: "a@b.c"}}

	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{"nil filter", nil, true},
		{"int vs int", FieldGreaterThan("Age", 18), true},
		{"int vs float", FieldLessThan("Age", 30.5), true},
		{"case insensitive field", FieldEquals("name", "ann"), true},
		{"string ordering", FieldLessThan("Name", "bob"), true},
		{"bool", FieldEquals("Active", false), false},
		{"nil pointer is null", FieldIsNull("Nickname"), true},
		{"time", FieldGreaterThan("CreatedAt", created.Add(-time.Hour)), true},
		{"not", Not(FieldEquals("Name", "ann")), false},
		{"and short circuit", And(FieldEquals("Age", 1), FieldEquals("Missing", 1)), false},
		{"or", Or(FieldEquals("Age", 1), FieldGreaterOrEqual("Score", 4.5)), true},
		{"nested member", Eq(&Member{Object: Field("Owner"), Name: "Email"}, Value("a@b.c")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.expr, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchErrors(t *testing.T) {
	p := person{Name: "ann"}

	_, err := Match(FieldEquals("Missing", 1), p)
	assert.Error(t, err)

	_, err = Match(FieldGreaterThan("Name", 3), p)
	assert.Error(t, err)

	_, err = Match(&Binary{Op: KindAdd, Left: Field("Age"), Right: Value(1)}, p)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	_, err = Match(Field("Name"), p)
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	c, err := Compare(int64(3), uint8(3))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	c, err = Compare(nil, "a")
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	s := "b"
	c, err = Compare(&s, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	_, err = Compare("a", 1)
	assert.Error(t, err)
}

func TestCompareLargeIntegers(t *testing.T) {
	c, err := Compare(int64(9007199254740993), int64(9007199254740992))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(uint64(math.MaxUint64), int64(math.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(int8(-1), uint64(0))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	ok, err := Match(FieldEquals("N", int64(9007199254740992)), struct{ N int64 }{N: 9007199254740993})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFieldValueMap(t *testing.T) {
	v, err := FieldValue(map[string]any{"Name": "ann"}, "name")
	require.NoError(t, err)
	assert.Equal(t, "ann", v)
}
