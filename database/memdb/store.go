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

package memdb

import (
	"reflect"
	"sync"
)

// Store holds committed rows per entity type, keyed by identity. Rows are
// stored as struct values so callers never share memory with the store.
type Store struct {
	mu     sync.RWMutex
	tables tables
}

type table struct {
	rows  map[string]reflect.Value
	order []string
}

type tables map[reflect.Type]*table

func NewStore() *Store {
	return &Store{tables: make(tables)}
}

func (s *Store) snapshot() tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.clone()
}

func (s *Store) replace(t tables) {
	s.mu.Lock()
	s.tables = t
	s.mu.Unlock()
}

// Len returns the number of committed rows of the entity type of model.
func (s *Store) Len(model any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[structType(model)]; ok {
		return len(t.rows)
	}
	return 0
}

func (ts tables) clone() tables {
	out := make(tables, len(ts))
	for typ, t := range ts {
		rows := make(map[string]reflect.Value, len(t.rows))
		for id, v := range t.rows {
			rows[id] = v
		}
		out[typ] = &table{rows: rows, order: append([]string(nil), t.order...)}
	}
	return out
}

func (ts tables) table(typ reflect.Type) *table {
	t, ok := ts[typ]
	if !ok {
		t = &table{rows: make(map[string]reflect.Value)}
		ts[typ] = t
	}
	return t
}

// values returns the rows of typ in insertion order.
func (ts tables) values(typ reflect.Type) []reflect.Value {
	t, ok := ts[typ]
	if !ok {
		return nil
	}
	out := make([]reflect.Value, 0, len(t.rows))
	for _, id := range t.order {
		if v, ok := t.rows[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (t *table) put(id string, v reflect.Value) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = copyValue(v)
}

func (t *table) remove(id string) {
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			return
		}
	}
}

func copyValue(v reflect.Value) reflect.Value {
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func structType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	return t
}
