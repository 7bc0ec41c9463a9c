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

	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/types"
)

// StagingRepository stages writes on the session. Nothing is persisted until
// the owning unit of work saves.
type StagingRepository[T any] interface {
	Insert(entity *T)
	Update(entity *T)
	Delete(entity *T)
}

// IdentityRepository stages writes addressed by identity. Each call loads the
// current record first and fails with a RecordNotFoundError when it is absent.
type IdentityRepository[T any] interface {
	// UpdateByID merges the non-identity fields of entity onto the stored
	// record and stages it.
	UpdateByID(ctx context.Context, id string, entity *T) (*T, error)
	// UpdateFieldsByID merges the named fields onto the stored record and
	// stages it. Keys match field names case-insensitively.
	UpdateFieldsByID(ctx context.Context, id string, fields map[string]any) (*T, error)
	DeleteByID(ctx context.Context, id string) error
}

// QueryRepository reads entities. includes is a comma-separated list of
// relations to eager-load; an empty string loads none. A nil filter matches
// every record.
type QueryRepository[T any] interface {
	Exists(ctx context.Context, filter expr.Expr) (bool, error)
	Count(ctx context.Context, filter expr.Expr) (int, error)
	List(ctx context.Context, filter expr.Expr, includes string) ([]*T, error)
	// GetByID returns nil without error when no record has the identity.
	GetByID(ctx context.Context, id string, includes string) (*T, error)
	// GetFirst returns nil without error when nothing matches.
	GetFirst(ctx context.Context, filter expr.Expr, includes string) (*T, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest, includes string) (*types.Pagination[T], error)
}

// Repository is the typed CRUD and query surface for one entity type, bound
// to one session.
type Repository[T any] interface {
	StagingRepository[T]
	IdentityRepository[T]
	QueryRepository[T]
	PageQueryRepository[T]
	SaveChanges(ctx context.Context) error
	Session() database.Session
	EntityName() string
}
