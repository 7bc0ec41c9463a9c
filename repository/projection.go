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

	"github.com/tomoncle/unitwork/expr"
)

// projector is implemented by repositories created with NewRepository.
type projector interface {
	selectAs(ctx context.Context, op string, projection, filter expr.Expr, includes string, dest any) error
	firstAs(ctx context.Context, op string, projection, filter expr.Expr, includes string, dest any) (bool, error)
	idFilter(id string) (expr.Expr, error)
}

func (r *baseRepositoryImpl[T]) selectAs(ctx context.Context, op string, projection, filter expr.Expr, includes string, dest any) error {
	q, err := r.query(op, filter, projection, includes)
	if err != nil {
		return err
	}
	return r.session.Select(ctx, q, dest)
}

func (r *baseRepositoryImpl[T]) firstAs(ctx context.Context, op string, projection, filter expr.Expr, includes string, dest any) (bool, error) {
	q, err := r.query(op, filter, projection, includes)
	if err != nil {
		return false, err
	}
	found, err := r.session.First(ctx, q, dest)
	if err != nil {
		return false, err
	}
	if !found {
		r.logger.Error("No record matched filter", "entity", r.name, "operation", op, "filter", expr.Readable(filter))
	}
	return found, nil
}

func (r *baseRepositoryImpl[T]) idFilter(id string) (expr.Expr, error) {
	return r.identityFilter(id)
}

func asProjector[T any](repo Repository[T]) (projector, error) {
	p, ok := repo.(projector)
	if !ok {
		return nil, fmt.Errorf("repository %T does not support projections", repo)
	}
	return p, nil
}

// ListAs returns every T matching filter mapped through projection into R.
// A record projection fills the same-named fields of R; a single member
// projection fills R itself.
//
//	names, err := repository.ListAs[UserName](ctx, users, expr.Fields("Name"), nil, "")
func ListAs[R, T any](ctx context.Context, repo Repository[T], projection, filter expr.Expr, includes string) ([]R, error) {
	if expr.IsNil(projection) {
		return nil, fmt.Errorf("projection is required")
	}
	p, err := asProjector(repo)
	if err != nil {
		return nil, err
	}
	var out []R
	if err := p.selectAs(ctx, "ListAs", projection, filter, includes, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAs projects the record with the given identity. found is false when
// no record has it.
func GetByIDAs[R, T any](ctx context.Context, repo Repository[T], id string, projection expr.Expr, includes string) (result R, found bool, err error) {
	if expr.IsNil(projection) {
		return result, false, fmt.Errorf("projection is required")
	}
	p, err := asProjector(repo)
	if err != nil {
		return result, false, err
	}
	filter, err := p.idFilter(id)
	if err != nil {
		return result, false, err
	}
	found, err = p.firstAs(ctx, "GetByIDAs", projection, filter, includes, &result)
	return result, found, err
}

// GetFirstAs projects the first record matching filter.
func GetFirstAs[R, T any](ctx context.Context, repo Repository[T], projection, filter expr.Expr, includes string) (result R, found bool, err error) {
	if expr.IsNil(projection) {
		return result, false, fmt.Errorf("projection is required")
	}
	p, err := asProjector(repo)
	if err != nil {
		return result, false, err
	}
	found, err = p.firstAs(ctx, "GetFirstAs", projection, filter, includes, &result)
	return result, found, err
}
