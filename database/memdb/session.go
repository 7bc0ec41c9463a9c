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
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/utils"
)

type changeOp int

const (
	opInsert changeOp = iota
	opUpdate
	opDelete
)

var opNames = [...]string{opInsert: "insert", opUpdate: "update", opDelete: "delete"}

type change struct {
	op     changeOp
	entity any
}

// Session is an in-memory database.Session. Filters run through the expr
// evaluator; relations are recorded but not loaded since stored rows already
// carry their nested values. Transactions work on a private copy of the
// store that replaces it on commit.
type Session struct {
	store     *Store
	name      string
	staged    []change
	tx        *transaction
	lastQuery *database.Query
}

var _ database.Session = (*Session)(nil)

func NewSession(store *Store, name string) *Session {
	if store == nil {
		store = NewStore()
	}
	return &Session{store: store, name: name}
}

func (s *Session) Name() string { return s.name }

// Store returns the backing store.
func (s *Session) Store() *Store { return s.store }

// Pending returns the number of staged writes.
func (s *Session) Pending() int { return len(s.staged) }

// LastQuery returns the most recent query run through the session.
func (s *Session) LastQuery() *database.Query { return s.lastQuery }

func (s *Session) view() tables {
	if s.tx != nil {
		return s.tx.tables
	}
	return s.store.snapshot()
}

func (s *Session) Find(ctx context.Context, id string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() || dv.Elem().Kind() != reflect.Struct {
		return false, fmt.Errorf("find: dest must be a struct pointer, got %T", dest)
	}
	t, ok := s.view()[dv.Elem().Type()]
	if !ok {
		return false, nil
	}
	row, ok := t.rows[id]
	if !ok {
		return false, nil
	}
	dv.Elem().Set(copyValue(row))
	return true, nil
}

func (s *Session) Exists(ctx context.Context, q *database.Query) (bool, error) {
	n, err := s.Count(ctx, q)
	return n > 0, err
}

func (s *Session) Count(ctx context.Context, q *database.Query) (int, error) {
	unpaged := *q
	unpaged.Offset, unpaged.Limit = 0, 0
	rows, err := s.rows(ctx, &unpaged)
	if err != nil {
		return 0, err
	}
	s.lastQuery = q
	return len(rows), nil
}

func (s *Session) Select(ctx context.Context, q *database.Query, dest any) error {
	rows, err := s.rows(ctx, q)
	if err != nil {
		return err
	}
	s.lastQuery = q
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("select: dest must be a slice pointer, got %T", dest)
	}
	slice := dv.Elem()
	elemType := slice.Type().Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(rows))
	for _, row := range rows {
		item := reflect.New(elemType).Elem()
		if err := s.assign(q, row, item); err != nil {
			return err
		}
		out = reflect.Append(out, item)
	}
	slice.Set(out)
	return nil
}

func (s *Session) First(ctx context.Context, q *database.Query, dest any) (bool, error) {
	first := *q
	first.Limit = 1
	rows, err := s.rows(ctx, &first)
	if err != nil {
		return false, err
	}
	s.lastQuery = q
	if len(rows) == 0 {
		return false, nil
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return false, fmt.Errorf("first: dest must be a pointer, got %T", dest)
	}
	if err := s.assign(q, rows[0], dv.Elem()); err != nil {
		return false, err
	}
	return true, nil
}

// assign stores row into out: the whole entity when the query has no
// projection, otherwise the projected fields.
func (s *Session) assign(q *database.Query, row reflect.Value, out reflect.Value) error {
	if expr.IsNil(q.Projection) {
		if out.Kind() == reflect.Pointer {
			p := reflect.New(row.Type())
			p.Elem().Set(copyValue(row))
			out.Set(p)
			return nil
		}
		out.Set(copyValue(row))
		return nil
	}
	fields, err := database.ProjectionFields(q.Projection)
	if err != nil {
		return err
	}
	if out.Kind() == reflect.Pointer {
		p := reflect.New(out.Type().Elem())
		out.Set(p)
		out = p.Elem()
	}
	if out.Kind() != reflect.Struct {
		if len(fields) != 1 {
			return fmt.Errorf("projection of %d fields needs a struct result, got %s", len(fields), out.Type())
		}
		v, err := expr.FieldValue(row.Interface(), fields[0])
		if err != nil {
			return err
		}
		return utils.AssignValue(out, v)
	}
	for _, name := range fields {
		v, err := expr.FieldValue(row.Interface(), name)
		if err != nil {
			return err
		}
		target := fieldByNameFold(out, name)
		if !target.IsValid() {
			return fmt.Errorf("projection result %s has no field %s", out.Type(), name)
		}
		if err := utils.AssignValue(target, v); err != nil {
			return fmt.Errorf("projection field %s: %w", name, err)
		}
	}
	return nil
}

func (s *Session) rows(ctx context.Context, q *database.Query) ([]reflect.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	typ, err := q.ModelType()
	if err != nil {
		return nil, err
	}
	var out []reflect.Value
	for _, row := range s.view().values(typ) {
		ok, err := expr.Match(q.Filter, row.Interface())
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", expr.Readable(q.Filter), err)
		}
		if ok {
			out = append(out, row)
		}
	}
	if len(q.Orders) > 0 {
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Orders {
				a, err := expr.FieldValue(out[i].Interface(), o.Field)
				if err != nil {
					sortErr = err
					return false
				}
				b, err := expr.FieldValue(out[j].Interface(), o.Field)
				if err != nil {
					sortErr = err
					return false
				}
				c, err := expr.Compare(a, b)
				if err != nil {
					sortErr = err
					return false
				}
				if c != 0 {
					return (c < 0) != o.Desc
				}
			}
			return false
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Session) Add(entity any)    { s.staged = append(s.staged, change{opInsert, entity}) }
func (s *Session) Update(entity any) { s.staged = append(s.staged, change{opUpdate, entity}) }
func (s *Session) Remove(entity any) { s.staged = append(s.staged, change{opDelete, entity}) }

func (s *Session) DiscardChanges() { s.staged = nil }

// SaveChanges applies every staged write or none of them.
func (s *Session) SaveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.staged) == 0 {
		return nil
	}
	working := s.view()
	if s.tx != nil {
		working = working.clone()
	}
	for _, c := range s.staged {
		if err := s.apply(working, c); err != nil {
			return err
		}
	}
	if s.tx != nil {
		s.tx.tables = working
	} else {
		s.store.replace(working)
	}
	s.staged = nil
	return nil
}

func (s *Session) apply(ts tables, c change) error {
	v := reflect.ValueOf(c.entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return s.saveError(c, fmt.Errorf("nil entity"), database.UnknownErr)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return s.saveError(c, fmt.Errorf("entity must be a struct, got %s", v.Kind()), database.InvalidTypeCastErr)
	}
	id, ok := utils.IdentityOf(c.entity)
	if !ok || id == "" {
		return s.saveError(c, fmt.Errorf("entity has no identity"), database.NotNullViolationErr)
	}
	t := ts.table(v.Type())
	_, exists := t.rows[id]
	switch c.op {
	case opInsert:
		if exists {
			return s.saveError(c, fmt.Errorf("duplicate identity %s", id), database.DuplicateKeyErr)
		}
		t.put(id, v)
	case opUpdate:
		if !exists {
			return s.saveError(c, sql.ErrNoRows, database.NoRowsErr)
		}
		t.put(id, v)
	case opDelete:
		if !exists {
			return s.saveError(c, sql.ErrNoRows, database.NoRowsErr)
		}
		t.remove(id)
	}
	return nil
}

func (s *Session) saveError(c change, err error, kind database.SQLError) error {
	return &database.SaveError{
		Op:       opNames[c.op],
		Entity:   structType(c.entity).Name(),
		Database: s.name,
		Kind:     kind,
		Err:      err,
	}
}

func (s *Session) BeginTx(ctx context.Context) (database.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.tx != nil {
		return nil, fmt.Errorf("database %s already has an open transaction", s.name)
	}
	s.tx = &transaction{session: s, tables: s.store.snapshot()}
	return s.tx, nil
}

type transaction struct {
	session *Session
	tables  tables
	done    bool
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.done = true
	t.session.store.replace(t.tables)
	t.release()
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.release()
	return nil
}

func (t *transaction) Close() error {
	if !t.done {
		t.done = true
		t.release()
	}
	return nil
}

func (t *transaction) release() {
	if t.session.tx == t {
		t.session.tx = nil
	}
}

func fieldByNameFold(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() && strings.EqualFold(f.Name, name) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}
