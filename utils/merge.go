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
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// IdentityField is the name of the entity identity field, matched
// case-insensitively.
const IdentityField = "id"

// Merge overwrites every eligible field of target with the same-named field
// of source. Eligible fields are exported, declared directly on the struct
// (embedded structs are skipped) and not the identity field. target must be a
// pointer to a struct; source may be a struct or a pointer to one.
func Merge(target, source any) error {
	tv, err := structTarget(target)
	if err != nil {
		return err
	}
	sv := reflect.ValueOf(source)
	for sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return fmt.Errorf("merge: source is nil")
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return fmt.Errorf("merge: source must be a struct, got %s", sv.Kind())
	}
	for _, f := range eligibleFields(tv.Type()) {
		sf := sv.FieldByName(f.Name)
		if !sf.IsValid() {
			continue
		}
		if err := AssignValue(tv.FieldByIndex(f.Index), sf.Interface()); err != nil {
			return fmt.Errorf("merge: field %s: %w", f.Name, err)
		}
	}
	return nil
}

// MergeValues overwrites the fields of target whose names match a key of
// values case-insensitively. Unmatched keys are ignored and the identity
// field is never written.
func MergeValues(target any, values map[string]any) error {
	tv, err := structTarget(target)
	if err != nil {
		return err
	}
	fields := eligibleFields(tv.Type())
	for key, v := range values {
		for _, f := range fields {
			if !strings.EqualFold(f.Name, key) {
				continue
			}
			if err := AssignValue(tv.FieldByIndex(f.Index), v); err != nil {
				return fmt.Errorf("merge: field %s: %w", f.Name, err)
			}
			break
		}
	}
	return nil
}

// AssignValue stores v into field, converting between numeric kinds and
// between convertible types of the same kind. A nil v stores the zero value.
// Numeric values that overflow the field or lose a fraction are rejected.
func AssignValue(field reflect.Value, v any) error {
	if !field.CanSet() {
		return fmt.Errorf("field is not settable")
	}
	if v == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	ft := field.Type()
	switch {
	case rv.Type().AssignableTo(ft):
		field.Set(rv)
	case isNumeric(rv.Kind()) && isNumeric(ft.Kind()):
		n, err := convertNumber(rv, ft)
		if err != nil {
			return err
		}
		field.Set(n)
	case rv.Kind() == ft.Kind() && rv.Type().ConvertibleTo(ft):
		field.Set(rv.Convert(ft))
	case ft.Kind() == reflect.Pointer && rv.Type().AssignableTo(ft.Elem()):
		p := reflect.New(ft.Elem())
		p.Elem().Set(rv)
		field.Set(p)
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(ft):
		field.Set(rv.Elem())
	default:
		return fmt.Errorf("cannot assign %s to %s", rv.Type(), ft)
	}
	return nil
}

func structTarget(target any) (reflect.Value, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("merge: target must be a non-nil pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("merge: target must point to a struct, got %s", v.Kind())
	}
	return v, nil
}

func eligibleFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous || strings.EqualFold(f.Name, IdentityField) {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// convertNumber converts rv to the numeric type ft when the value is
// representable there exactly.
func convertNumber(rv reflect.Value, ft reflect.Type) (reflect.Value, error) {
	target := reflect.New(ft).Elem()
	switch k := rv.Kind(); {
	case k >= reflect.Int && k <= reflect.Int64:
		i := rv.Int()
		switch {
		case isInt(ft.Kind()) && target.OverflowInt(i),
			isUint(ft.Kind()) && (i < 0 || target.OverflowUint(uint64(i))):
			return target, fmt.Errorf("value %d overflows %s", i, ft)
		}
	case k >= reflect.Uint && k <= reflect.Uint64:
		u := rv.Uint()
		switch {
		case isInt(ft.Kind()) && (u > math.MaxInt64 || target.OverflowInt(int64(u))),
			isUint(ft.Kind()) && target.OverflowUint(u):
			return target, fmt.Errorf("value %d overflows %s", u, ft)
		}
	default:
		f := rv.Float()
		if isInt(ft.Kind()) || isUint(ft.Kind()) {
			if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
				return target, fmt.Errorf("value %v is not a whole number for %s", f, ft)
			}
			if isInt(ft.Kind()) && (f < math.MinInt64 || f >= math.MaxInt64 || target.OverflowInt(int64(f))) ||
				isUint(ft.Kind()) && (f < 0 || f >= math.MaxUint64 || target.OverflowUint(uint64(f))) {
				return target, fmt.Errorf("value %v overflows %s", f, ft)
			}
		} else if target.OverflowFloat(f) {
			return target, fmt.Errorf("value %v overflows %s", f, ft)
		}
	}
	target.Set(rv.Convert(ft))
	return target, nil
}

func isInt(k reflect.Kind) bool  { return k >= reflect.Int && k <= reflect.Int64 }
func isUint(k reflect.Kind) bool { return k >= reflect.Uint && k <= reflect.Uint64 }

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// identityValue locates the identity field of a struct entity.
func identityValue(entity any) (reflect.Value, bool) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && !f.Anonymous && strings.EqualFold(f.Name, IdentityField) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// IdentityOf returns the identity of entity as a string.
func IdentityOf(entity any) (string, bool) {
	f, ok := identityValue(entity)
	if !ok {
		return "", false
	}
	return fmt.Sprint(f.Interface()), true
}

// EnsureID assigns a new UUID to a string identity field that is empty. It
// reports whether an identity was assigned.
func EnsureID(entity any) bool {
	f, ok := identityValue(entity)
	if !ok || f.Kind() != reflect.String || !f.CanSet() || f.String() != "" {
		return false
	}
	f.SetString(uuid.NewString())
	return true
}

// Readable renders a map as `{ "k": v, ... }` with sorted keys.
func Readable(m map[string]any) string {
	if len(m) == 0 {
		return "{ }"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q: %v", k, m[k])
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
