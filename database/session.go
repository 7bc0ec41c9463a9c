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

package database

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/types"
)

// Session is a storage session: it runs typed queries, stages writes until
// SaveChanges and opens transactions. A Session is not safe for concurrent
// use.
type Session interface {
	// Name identifies the database in logs and errors.
	Name() string

	// Find loads the record whose identity is id into dest (*T).
	Find(ctx context.Context, id string, dest any) (bool, error)
	Exists(ctx context.Context, q *Query) (bool, error)
	Count(ctx context.Context, q *Query) (int, error)
	// Select loads every matching record into dest (*[]*T, or *[]R when the
	// query carries a projection).
	Select(ctx context.Context, q *Query, dest any) error
	// First loads the first matching record into dest (*T or *R).
	First(ctx context.Context, q *Query, dest any) (bool, error)

	Add(entity any)
	Update(entity any)
	Remove(entity any)
	// SaveChanges persists staged writes, inside the active transaction when
	// there is one and in an implicit transaction otherwise.
	SaveChanges(ctx context.Context) error
	// DiscardChanges drops staged writes that were not saved.
	DiscardChanges()

	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction is an open transaction scope on a Session. Close releases it,
// rolling back if neither Commit nor Rollback ran; it is safe to call more
// than once.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}

// Query describes a read against one entity type.
type Query struct {
	// Model is a typed nil pointer, (*T)(nil), naming the entity type.
	Model      any
	Filter     expr.Expr
	Relations  []string
	Projection expr.Expr
	Orders     []types.Order
	Offset     int
	Limit      int
}

// NewQuery returns a query scoped to the entity type of model.
func NewQuery(model any) *Query {
	return &Query{Model: model}
}

// ModelType returns the struct type named by q.Model.
func (q *Query) ModelType() (reflect.Type, error) {
	if q == nil || q.Model == nil {
		return nil, fmt.Errorf("query has no model")
	}
	t := reflect.TypeOf(q.Model)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("query model must be a struct, got %s", t.Kind())
	}
	return t, nil
}

// ProjectionFields returns the field names selected by a projection. A nil
// projection yields nil.
func ProjectionFields(p expr.Expr) ([]string, error) {
	if expr.IsNil(p) {
		return nil, nil
	}
	switch n := p.(type) {
	case *expr.Record:
		names := n.Names()
		if len(names) != len(n.Fields) || len(names) == 0 {
			return nil, fmt.Errorf("projection record must list member fields only")
		}
		return names, nil
	case *expr.Member:
		return []string{n.Name}, nil
	default:
		return nil, fmt.Errorf("unsupported projection %s", p.Kind())
	}
}
