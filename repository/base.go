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

package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/types"
	"github.com/tomoncle/unitwork/utils"
)

const loggerName = "REPOSITORY"

type baseRepositoryImpl[T any] struct {
	session database.Session
	logger  database.Logger
	name    string
}

type Option func(*options)

type options struct {
	logger database.Logger
}

// WithLogger replaces the repository's named logger.
func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewRepository returns a repository for T bound to session.
func NewRepository[T any](session database.Session, opts ...Option) Repository[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = database.NewDefaultLogger(loggerName)
	}
	return &baseRepositoryImpl[T]{
		session: session,
		logger:  o.logger,
		name:    reflect.TypeOf((*T)(nil)).Elem().Name(),
	}
}

func (r *baseRepositoryImpl[T]) Session() database.Session { return r.session }

func (r *baseRepositoryImpl[T]) EntityName() string { return r.name }

func (r *baseRepositoryImpl[T]) SaveChanges(ctx context.Context) error {
	return r.session.SaveChanges(ctx)
}

func (r *baseRepositoryImpl[T]) Insert(entity *T) {
	r.logger.Trace("Staged insert", "entity", r.name, "record", entity)
	r.session.Add(entity)
}

func (r *baseRepositoryImpl[T]) Update(entity *T) {
	r.logger.Trace("Staged update", "entity", r.name, "record", entity)
	r.session.Update(entity)
}

func (r *baseRepositoryImpl[T]) Delete(entity *T) {
	r.logger.Trace("Staged delete", "entity", r.name, "record", entity)
	r.session.Remove(entity)
}

func (r *baseRepositoryImpl[T]) UpdateByID(ctx context.Context, id string, entity *T) (*T, error) {
	current, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.Merge(current, entity); err != nil {
		return nil, fmt.Errorf("failed to merge %s %s: %w", r.name, id, err)
	}
	r.Update(current)
	return current, nil
}

func (r *baseRepositoryImpl[T]) UpdateFieldsByID(ctx context.Context, id string, fields map[string]any) (*T, error) {
	current, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Merging fields", "entity", r.name, "id", id, "fields", utils.Readable(fields))
	if err := utils.MergeValues(current, fields); err != nil {
		return nil, fmt.Errorf("failed to merge %s %s: %w", r.name, id, err)
	}
	r.Update(current)
	return current, nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id string) error {
	current, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	r.Delete(current)
	return nil
}

// load finds the current record for an identity-addressed write.
func (r *baseRepositoryImpl[T]) load(ctx context.Context, id string) (*T, error) {
	var current T
	found, err := r.session.Find(ctx, id, &current)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", r.name, id, err)
	}
	if !found {
		return nil, &RecordNotFoundError{Entity: r.name, ID: id}
	}
	return &current, nil
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, filter expr.Expr) (bool, error) {
	q, err := r.query("Exists", filter, nil, "")
	if err != nil {
		return false, err
	}
	return r.session.Exists(ctx, q)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filter expr.Expr) (int, error) {
	q, err := r.query("Count", filter, nil, "")
	if err != nil {
		return 0, err
	}
	return r.session.Count(ctx, q)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter expr.Expr, includes string) ([]*T, error) {
	q, err := r.query("List", filter, nil, includes)
	if err != nil {
		return nil, err
	}
	var entities []*T
	if err := r.session.Select(ctx, q, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id string, includes string) (*T, error) {
	filter, err := r.identityFilter(id)
	if err != nil {
		return nil, err
	}
	q, err := r.query("GetByID", filter, nil, includes)
	if err != nil {
		return nil, err
	}
	var entity T
	found, err := r.session.First(ctx, q, &entity)
	if err != nil {
		return nil, err
	}
	if !found {
		r.logger.Error("Record not found", "entity", r.name, "id", id)
		return nil, nil
	}
	r.logger.Debug("Record found", "entity", r.name, "id", id)
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetFirst(ctx context.Context, filter expr.Expr, includes string) (*T, error) {
	q, err := r.query("GetFirst", filter, nil, includes)
	if err != nil {
		return nil, err
	}
	var entity T
	found, err := r.session.First(ctx, q, &entity)
	if err != nil {
		return nil, err
	}
	if !found {
		r.logger.Error("No record matched filter", "entity", r.name, "filter", expr.Readable(filter))
		return nil, nil
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, page *types.PageRequest, includes string) (*types.Pagination[T], error) {
	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	total, err := r.Count(ctx, page.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	orders, err := types.ParseOrders(page.GetOrders())
	if err != nil {
		return nil, err
	}
	q, err := r.query("Page", page.GetFilter(), nil, includes)
	if err != nil {
		return nil, err
	}
	q.Orders = orders
	q.Offset = page.GetOffset()
	q.Limit = page.GetPageSize()

	var entities []*T
	if err := r.session.Select(ctx, q, &entities); err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

// query scopes a read to T: the filter, then the resolved includes, then
// the projection. The filter and projection are described for the trace log
// first, so a malformed tree fails before reaching the session.
func (r *baseRepositoryImpl[T]) query(op string, filter, projection expr.Expr, includes string) (*database.Query, error) {
	if expr.IsNil(filter) {
		filter = nil
	}
	if expr.IsNil(projection) {
		projection = nil
	}
	filterText, err := expr.Describe(filter)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.name, op, err)
	}
	projectionText, err := expr.Describe(projection)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.name, op, err)
	}
	relations := ResolveIncludes(ParseIncludes(includes))
	r.logger.Debug("Querying", "entity", r.name, "operation", op, "filter", filterText,
		"includes", strings.Join(relations, ","), "projection", projectionText)
	return &database.Query{
		Model:      (*T)(nil),
		Filter:     filter,
		Relations:  relations,
		Projection: projection,
	}, nil
}

func (r *baseRepositoryImpl[T]) identityFilter(id string) (expr.Expr, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && !f.Anonymous && strings.EqualFold(f.Name, utils.IdentityField) {
				return expr.FieldEquals(f.Name, id), nil
			}
		}
	}
	return nil, fmt.Errorf("%s has no identity field", r.name)
}
