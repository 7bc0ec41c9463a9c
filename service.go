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

package unitwork

import (
	"context"
	"sync"

	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/repository"
	"github.com/tomoncle/unitwork/types"
	"github.com/tomoncle/unitwork/utils"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil when absent.
	Get(ctx context.Context, id string, includes string) (*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter expr.Expr, includes string) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest, includes string) (*types.Pagination[T], error)

	// Create inserts one or more new entities, assigning identities where
	// they are empty.
	Create(ctx context.Context, models ...*T) error

	// Update replaces the stored fields of the entity with the given identifier.
	Update(ctx context.Context, id string, model *T) (*T, error)

	// Patch overwrites only the named fields.
	Patch(ctx context.Context, id string, fields map[string]any) (*T, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id string) error
}

type baseServiceImpl[T any, S database.Session] struct {
	uow  *UnitOfWork[S]
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a default Service implementation that saves every
// write immediately through uow.
func NewService[T any, S database.Session](uow *UnitOfWork[S]) Service[T] {
	return &baseServiceImpl[T, S]{uow: uow}
}

func (s *baseServiceImpl[T, S]) baseRepo() repository.Repository[T] {
	s.once.Do(func() { s.repo = GetRepository[T](s.uow) })
	return s.repo
}

func (s *baseServiceImpl[T, S]) Get(ctx context.Context, id string, includes string) (*T, error) {
	return s.baseRepo().GetByID(ctx, id, includes)
}

func (s *baseServiceImpl[T, S]) List(ctx context.Context, filter expr.Expr, includes string) ([]*T, error) {
	return s.baseRepo().List(ctx, filter, includes)
}

func (s *baseServiceImpl[T, S]) Page(ctx context.Context, page *types.PageRequest, includes string) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page, includes)
}

func (s *baseServiceImpl[T, S]) Create(ctx context.Context, models ...*T) error {
	for _, m := range models {
		utils.EnsureID(m)
		s.baseRepo().Insert(m)
	}
	return s.save(ctx)
}

func (s *baseServiceImpl[T, S]) Update(ctx context.Context, id string, model *T) (*T, error) {
	updated, err := s.baseRepo().UpdateByID(ctx, id, model)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *baseServiceImpl[T, S]) Patch(ctx context.Context, id string, fields map[string]any) (*T, error) {
	updated, err := s.baseRepo().UpdateFieldsByID(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *baseServiceImpl[T, S]) Delete(ctx context.Context, id string) error {
	if err := s.baseRepo().DeleteByID(ctx, id); err != nil {
		return err
	}
	return s.save(ctx)
}

// save persists the writes staged by the current call. They are discarded
// when saving fails so later calls do not replay them.
func (s *baseServiceImpl[T, S]) save(ctx context.Context) error {
	if err := s.uow.SaveChanges(ctx); err != nil {
		s.uow.Session().DiscardChanges()
		return err
	}
	return nil
}
