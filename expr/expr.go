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
	"fmt"
	"reflect"
)

// Kind identifies the node type of an expression.
type Kind int

const (
	KindNot Kind = iota
	KindAndAlso
	KindOrElse
	KindEqual
	KindNotEqual
	KindGreaterThan
	KindGreaterThanOrEqual
	KindLessThan
	KindLessThanOrEqual
	KindMember
	KindConstant
	KindParameter
	KindRecord

	// Arithmetic kinds can be represented but are not rendered or executed.
	KindNegate
	KindAdd
	KindSubtract
	KindMultiply
	KindDivide
)

var kindNames = map[Kind]string{
	KindNot:                "Not",
	KindAndAlso:            "AndAlso",
	KindOrElse:             "OrElse",
	KindEqual:              "Equal",
	KindNotEqual:           "NotEqual",
	KindGreaterThan:        "GreaterThan",
	KindGreaterThanOrEqual: "GreaterThanOrEqual",
	KindLessThan:           "LessThan",
	KindLessThanOrEqual:    "LessThanOrEqual",
	KindMember:             "MemberAccess",
	KindConstant:           "Constant",
	KindParameter:          "Parameter",
	KindRecord:             "Record",
	KindNegate:             "Negate",
	KindAdd:                "Add",
	KindSubtract:           "Subtract",
	KindMultiply:           "Multiply",
	KindDivide:             "Divide",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token returns the operator token for supported binary kinds.
func (k Kind) Token() (string, bool) {
	switch k {
	case KindAndAlso:
		return "&&", true
	case KindOrElse:
		return "||", true
	case KindEqual:
		return "==", true
	case KindNotEqual:
		return "!=", true
	case KindGreaterThan:
		return ">", true
	case KindGreaterThanOrEqual:
		return ">=", true
	case KindLessThan:
		return "<", true
	case KindLessThanOrEqual:
		return "<=", true
	default:
		return "", false
	}
}

// IsLogical reports whether k combines two boolean operands.
func (k Kind) IsLogical() bool { return k == KindAndAlso || k == KindOrElse }

// IsComparison reports whether k compares two operands.
func (k Kind) IsComparison() bool { return k >= KindEqual && k <= KindLessThanOrEqual }

// Expr is a node of an immutable filter or projection tree.
type Expr interface {
	Kind() Kind
}

// Unary is a single-operand node such as logical negation.
type Unary struct {
	Op      Kind
	Operand Expr
}

func (u *Unary) Kind() Kind { return u.Op }

// Binary is a two-operand comparison or logical node.
type Binary struct {
	Op    Kind
	Left  Expr
	Right Expr
}

func (b *Binary) Kind() Kind { return b.Op }

// Member accesses a named field on Object. A nil Object means the implicit
// entity parameter.
type Member struct {
	Object Expr
	Name   string
}

func (m *Member) Kind() Kind { return KindMember }

// Constant holds a literal value; a nil Value is the null literal.
type Constant struct {
	Value any
}

func (c *Constant) Kind() Kind { return KindConstant }

// Parameter is the entity the expression is evaluated against.
type Parameter struct {
	Name string
}

func (p *Parameter) Kind() Kind { return KindParameter }

// Record is a projection shape made of several member selections.
type Record struct {
	Fields []Expr
}

func (r *Record) Kind() Kind { return KindRecord }

// Names returns the member names selected by the record, in order.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		if m, ok := f.(*Member); ok {
			names = append(names, m.Name)
		}
	}
	return names
}

var entity = &Parameter{Name: "x"}

// Entity returns the implicit entity parameter.
func Entity() *Parameter { return entity }

// Field selects a field of the current entity.
func Field(name string) *Member { return &Member{Object: entity, Name: name} }

// Value wraps a literal.
func Value(v any) *Constant { return &Constant{Value: v} }

// Null is the null literal.
func Null() *Constant { return &Constant{} }

func Eq(left, right Expr) *Binary { return &Binary{Op: KindEqual, Left: left, Right: right} }
func Ne(left, right Expr) *Binary { return &Binary{Op: KindNotEqual, Left: left, Right: right} }
func Gt(left, right Expr) *Binary { return &Binary{Op: KindGreaterThan, Left: left, Right: right} }
func Ge(left, right Expr) *Binary {
	return &Binary{Op: KindGreaterThanOrEqual, Left: left, Right: right}
}
func Lt(left, right Expr) *Binary { return &Binary{Op: KindLessThan, Left: left, Right: right} }
func Le(left, right Expr) *Binary {
	return &Binary{Op: KindLessThanOrEqual, Left: left, Right: right}
}

// Not negates e.
func Not(e Expr) *Unary { return &Unary{Op: KindNot, Operand: e} }

// And folds the operands left to right with &&.
func And(left, right Expr, more ...Expr) Expr { return fold(KindAndAlso, left, right, more) }

// Or folds the operands left to right with ||.
func Or(left, right Expr, more ...Expr) Expr { return fold(KindOrElse, left, right, more) }

func fold(op Kind, left, right Expr, more []Expr) Expr {
	out := &Binary{Op: op, Left: left, Right: right}
	for _, e := range more {
		out = &Binary{Op: op, Left: out, Right: e}
	}
	return out
}

func FieldEquals(name string, v any) *Binary    { return Eq(Field(name), Value(v)) }
func FieldNotEquals(name string, v any) *Binary { return Ne(Field(name), Value(v)) }
func FieldGreaterThan(name string, v any) *Binary {
	return Gt(Field(name), Value(v))
}
func FieldGreaterOrEqual(name string, v any) *Binary {
	return Ge(Field(name), Value(v))
}
func FieldLessThan(name string, v any) *Binary   { return Lt(Field(name), Value(v)) }
func FieldLessOrEqual(name string, v any) *Binary { return Le(Field(name), Value(v)) }
func FieldIsNull(name string) *Binary            { return Eq(Field(name), Null()) }

// Fields builds a record projection over the named fields.
func Fields(names ...string) *Record {
	fields := make([]Expr, len(names))
	for i, n := range names {
		fields[i] = Field(n)
	}
	return &Record{Fields: fields}
}

// IsNil reports whether e is absent: a nil interface or a nil node pointer.
func IsNil(e Expr) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
