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
	"cmp"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Match evaluates a filter against entity. A nil filter matches everything.
func Match(filter Expr, entity any) (bool, error) {
	if IsNil(filter) {
		return true, nil
	}
	v, err := Evaluate(filter, entity)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("filter evaluated to %T, want bool", v)
	}
	return b, nil
}

// Evaluate computes the value of e for entity. Member nodes resolve exported
// struct fields by case-insensitive name.
func Evaluate(e Expr, entity any) (any, error) {
	if IsNil(e) {
		return nil, fmt.Errorf("nil expression")
	}
	switch n := e.(type) {
	case *Constant:
		return n.Value, nil
	case *Parameter:
		return entity, nil
	case *Member:
		var obj any = entity
		if n.Object != nil {
			v, err := Evaluate(n.Object, entity)
			if err != nil {
				return nil, err
			}
			obj = v
		}
		return FieldValue(obj, n.Name)
	case *Unary:
		if n.Op != KindNot {
			return nil, unsupported(n.Op)
		}
		v, err := Evaluate(n.Operand, entity)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("operand of '!' is %T, want bool", v)
		}
		return !b, nil
	case *Binary:
		return evalBinary(n, entity)
	default:
		return nil, unsupported(e.Kind())
	}
}

func evalBinary(n *Binary, entity any) (any, error) {
	if n.Op.IsLogical() {
		left, err := evalBool(n.Left, entity)
		if err != nil {
			return nil, err
		}
		if n.Op == KindAndAlso && !left {
			return false, nil
		}
		if n.Op == KindOrElse && left {
			return true, nil
		}
		return evalBool(n.Right, entity)
	}
	if !n.Op.IsComparison() {
		return nil, unsupported(n.Op)
	}
	left, err := Evaluate(n.Left, entity)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(n.Right, entity)
	if err != nil {
		return nil, err
	}
	if n.Op == KindEqual || n.Op == KindNotEqual {
		eq, err := equal(left, right)
		if err != nil {
			return nil, err
		}
		return eq == (n.Op == KindEqual), nil
	}
	c, err := Compare(left, right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case KindGreaterThan:
		return c > 0, nil
	case KindGreaterThanOrEqual:
		return c >= 0, nil
	case KindLessThan:
		return c < 0, nil
	default:
		return c <= 0, nil
	}
}

func evalBool(e Expr, entity any) (bool, error) {
	v, err := Evaluate(e, entity)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("logical operand is %T, want bool", v)
	}
	return b, nil
}

// FieldValue returns the exported field of obj whose name matches name
// case-insensitively. Nil pointers along the way yield nil.
func FieldValue(obj any, name string) (any, error) {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && strings.EqualFold(f.Name, name) {
				return v.Field(i).Interface(), nil
			}
		}
		return nil, fmt.Errorf("field %s not found on %s", name, t.Name())
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		iter := v.MapRange()
		for iter.Next() {
			if strings.EqualFold(iter.Key().String(), name) {
				return iter.Value().Interface(), nil
			}
		}
		return nil, nil
	case reflect.Invalid:
		return nil, nil
	}
	return nil, fmt.Errorf("cannot access field %s on %s", name, v.Type())
}

func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func equal(a, b any) (bool, error) {
	a, b = indirect(a), indirect(b)
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return ab == bb, nil
	}
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// Compare orders two values: numbers numerically, strings lexically, times
// chronologically. It returns -1, 0 or 1.
func Compare(a, b any) (int, error) {
	a, b = indirect(a), indirect(b)
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	if c, ok := compareIntegers(a, b); ok {
		return c, nil
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return sign(af - bf), nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return at.Compare(bt), nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() == reflect.String && bv.Kind() == reflect.String {
		return strings.Compare(av.String(), bv.String()), nil
	}
	if av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool {
		x, y := av.Bool(), bv.Bool()
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		default:
			return 1, nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

// compareIntegers orders two integer values of any signedness without
// going through float64.
func compareIntegers(a, b any) (int, bool) {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	ai, aSigned, aok := integer(av)
	bi, bSigned, bok := integer(bv)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case aSigned && bSigned:
		return cmp.Compare(av.Int(), bv.Int()), true
	case !aSigned && !bSigned:
		return cmp.Compare(av.Uint(), bv.Uint()), true
	case aSigned:
		if ai < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(ai), bv.Uint()), true
	default:
		if bi < 0 {
			return 1, true
		}
		return cmp.Compare(av.Uint(), uint64(bi)), true
	}
}

func integer(v reflect.Value) (i int64, signed, ok bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return 0, false, true
	}
	return 0, false, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func sign(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	default:
		return 0
	}
}
