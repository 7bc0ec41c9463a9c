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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/database/memdb"
	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/repository"
	"github.com/tomoncle/unitwork/types"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	session := memdb.NewSession(nil, "ledger")
	svc := NewService[account](NewUnitOfWork(session))

	a := &account{Owner: "ada", Balance: 10}
	require.NoError(t, svc.Create(ctx, a, &account{ID: "fixed", Owner: "linus", Balance: 3}))
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 2, session.Store().Len((*account)(nil)))

	got, err := svc.Get(ctx, a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Owner)

	_, err = svc.Update(ctx, "fixed", &account{Owner: "torvalds", Balance: 4})
	require.NoError(t, err)
	patched, err := svc.Patch(ctx, "fixed", map[string]any{"balance": 7})
	require.NoError(t, err)
	assert.Equal(t, "torvalds", patched.Owner)
	assert.Equal(t, 7, patched.Balance)

	rich, err := svc.List(ctx, expr.FieldGreaterThan("Balance", 5), "")
	require.NoError(t, err)
	assert.Len(t, rich, 2)

	page, err := svc.Page(ctx, types.NewPageRequestWithOrders(2, 1, []string{"Balance"}), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 10, page.Items[0].Balance)

	require.NoError(t, svc.Delete(ctx, "fixed"))
	assert.ErrorIs(t, svc.Delete(ctx, "fixed"), repository.ErrRecordNotFound)
	assert.Equal(t, 1, session.Store().Len((*account)(nil)))
}

func TestServiceDiscardsWritesOfFailedSave(t *testing.T) {
	ctx := context.Background()
	session := memdb.NewSession(nil, "ledger")
	svc := NewService[account](NewUnitOfWork(session))

	require.NoError(t, svc.Create(ctx, &account{ID: "a", Owner: "ada"}))

	err := svc.Create(ctx, &account{ID: "a", Owner: "again"})
	var saveErr *database.SaveError
	require.True(t, errors.As(err, &saveErr))
	assert.Equal(t, database.DuplicateKeyErr, saveErr.Kind)
	assert.Equal(t, 0, session.Pending())

	require.NoError(t, svc.Create(ctx, &account{ID: "b", Owner: "linus"}))
	patched, err := svc.Patch(ctx, "a", map[string]any{"Balance": 9})
	require.NoError(t, err)
	assert.Equal(t, 9, patched.Balance)
	assert.Equal(t, 2, session.Store().Len((*account)(nil)))
}
