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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"nil", nil, "<none>"},
		{"greater than", FieldGreaterThan("Age", 18), "(Age > 18) "},
		{"not equals string", Not(FieldEquals("Name", "x")), "!(Name == \"x\") "},
		{"null literal", FieldIsNull("DeletedAt"), "(DeletedAt == null) "},
		{"not equal", FieldNotEquals("Status", "done"), "(Status != \"done\") "},
		{"bool constant", FieldEquals("Active", true), "(Active == true) "},
		{"float constant", FieldLessOrEqual("Score", 2.5), "(Score <= 2.5) "},
		{
			"and",
			And(FieldGreaterOrEqual("Age", 18), FieldLessThan("Age", 65)),
			"((Age >= 18)  && (Age < 65) ) ",
		},
		{
			"or folds left",
			Or(FieldEquals("A", 1), FieldEquals("B", 2), FieldEquals("C", 3)),
			"(((A == 1)  || (B == 2) )  || (C == 3) ) ",
		},
		{"parameter elided", Entity(), ""},
		{"record", Fields("Name", "Age"), "{Name, Age}"},
		{"nested member drops receiver", &Member{Object: Field("Owner"), Name: "Email"}, "Email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Describe(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeUnsupportedOperator(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"add", &Binary{Op: KindAdd, Left: Field("A"), Right: Value(1)}, "binary operator 'Add' is not supported"},
		{"negate", &Unary{Op: KindNegate, Operand: Field("A")}, "unary operator 'Negate' is not supported"},
		{"nested", Not(&Binary{Op: KindMultiply, Left: Field("A"), Right: Value(2)}), "binary operator 'Multiply' is not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Describe(tt.expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedOperator))

			var opErr *UnsupportedOperatorError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, tt.want, opErr.Error())
		})
	}
}

func TestReadable(t *testing.T) {
	assert.Equal(t, "(Age > 18) ", Readable(FieldGreaterThan("Age", 18)))
	assert.Equal(t, "<invalid: binary operator 'Divide' is not supported>",
		Readable(&Binary{Op: KindDivide, Left: Field("A"), Right: Value(2)}))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "AndAlso", KindAndAlso.String())
	assert.Equal(t, "MemberAccess", KindMember.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestDescribeNilNode(t *testing.T) {
	var filter *Binary
	got, err := Describe(filter)
	require.NoError(t, err)
	assert.Equal(t, None, got)

	ok, err := Match((*Unary)(nil), struct{ Age int }{Age: 3})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, IsNil(filter))
	assert.False(t, IsNil(Field("Age")))
}
