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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/database/memdb"
	"github.com/tomoncle/unitwork/expr"
	"github.com/tomoncle/unitwork/types"
)

type user struct {
	ID    string
	Name  string
	Age   int
	Email string
}

type userName struct {
	Name string
}

type logEntry struct {
	level  string
	msg    string
	fields []interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) SetLevel(database.LogLevel)                  {}
func (l *recordingLogger) Trace(msg string, fields ...interface{}) { l.record("trace", msg, fields) }
func (l *recordingLogger) Debug(msg string, fields ...interface{}) { l.record("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...interface{})  { l.record("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...interface{})  { l.record("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...interface{}) { l.record("error", msg, fields) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

func newUsers(t *testing.T) (Repository[user], *memdb.Session, *recordingLogger) {
	t.Helper()
	session := memdb.NewSession(nil, "accounts")
	log := &recordingLogger{}
	repo := NewRepository[user](session, WithLogger(log))

	repo.Insert(&user{ID: "u1", Name: "Ada", Age: 36, Email: "ada@example.com"})
	repo.Insert(&user{ID: "u2", Name: "Linus", Age: 21, Email: "linus@example.com"})
	repo.Insert(&user{ID: "u3", Name: "Grace", Age: 85, Email: "grace@example.com"})
	require.NoError(t, repo.SaveChanges(context.Background()))
	return repo, session, log
}

func TestRepositoryStagesUntilSave(t *testing.T) {
	ctx := context.Background()
	repo, session, log := newUsers(t)

	repo.Insert(&user{ID: "u4", Name: "Ken"})
	assert.Equal(t, 1, session.Pending())
	assert.Equal(t, 3, session.Store().Len((*user)(nil)))
	assert.Contains(t, log.messages("trace"), "Staged insert")

	require.NoError(t, repo.SaveChanges(ctx))
	assert.Equal(t, 4, session.Store().Len((*user)(nil)))
	assert.Equal(t, "user", repo.EntityName())
	assert.Same(t, session, repo.Session())
}

func TestRepositoryReads(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newUsers(t)

	ok, err := repo.Exists(ctx, expr.FieldEquals("Name", "Grace"))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.Count(ctx, expr.FieldGreaterThan("Age", 30))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := repo.List(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	u, err := repo.GetByID(ctx, "u2", "")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Linus", u.Name)

	first, err := repo.GetFirst(ctx, expr.FieldLessThan("Age", 40), "")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "u1", first.ID)
}

func TestRepositoryAbsenceIsLoggedAtError(t *testing.T) {
	ctx := context.Background()
	repo, _, log := newUsers(t)

	u, err := repo.GetByID(ctx, "missing", "")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Contains(t, log.messages("error"), "Record not found")

	u, err = repo.GetFirst(ctx, expr.FieldEquals("Name", "nobody"), "")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Contains(t, log.messages("error"), "No record matched filter")
}

func TestRepositoryResolvesIncludes(t *testing.T) {
	ctx := context.Background()
	repo, session, _ := newUsers(t)

	_, err := repo.List(ctx, nil, " Orders , ,Profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"Orders", "Profile"}, session.LastQuery().Relations)

	assert.Equal(t, []string{"a"}, ResolveIncludes([]string{"a,b"}))
	assert.Empty(t, ParseIncludes("  "))
}

func TestRepositoryRejectsUnsupportedFilter(t *testing.T) {
	ctx := context.Background()
	repo, session, _ := newUsers(t)
	_, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	before := session.LastQuery()

	filter := &expr.Binary{Op: expr.KindAdd, Left: expr.Field("Age"), Right: expr.Value(1)}
	_, err = repo.List(ctx, filter, "")
	assert.ErrorIs(t, err, expr.ErrUnsupportedOperator)
	assert.Same(t, before, session.LastQuery(), "session is not queried")
}

func TestRepositoryUpdateByID(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newUsers(t)

	updated, err := repo.UpdateByID(ctx, "u1", &user{ID: "other", Name: "Ada L.", Age: 37})
	require.NoError(t, err)
	assert.Equal(t, "u1", updated.ID)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, "", updated.Email, "every declared field is copied")
	require.NoError(t, repo.SaveChanges(ctx))

	stored, err := repo.GetByID(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 37, stored.Age)

	patched, err := repo.UpdateFieldsByID(ctx, "u2", map[string]any{"age": 22, "id": "x", "unknown": 1})
	require.NoError(t, err)
	assert.Equal(t, "u2", patched.ID)
	assert.Equal(t, 22, patched.Age)
	assert.Equal(t, "Linus", patched.Name)
}

func TestRepositoryIdentityWritesReportMissingRecords(t *testing.T) {
	ctx := context.Background()
	repo, session, _ := newUsers(t)

	_, err := repo.UpdateByID(ctx, "missing", &user{Name: "x"})
	var notFound *RecordNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "user", notFound.Entity)
	assert.Equal(t, "missing", notFound.ID)
	assert.EqualError(t, err, "user record missing not found")

	_, err = repo.UpdateFieldsByID(ctx, "missing", map[string]any{"Name": "x"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, repo.DeleteByID(ctx, "missing"), ErrRecordNotFound)
	assert.Equal(t, 0, session.Pending())

	require.NoError(t, repo.DeleteByID(ctx, "u3"))
	require.NoError(t, repo.SaveChanges(ctx))
	assert.Equal(t, 2, session.Store().Len((*user)(nil)))
}

func TestRepositoryProjections(t *testing.T) {
	ctx := context.Background()
	repo, _, log := newUsers(t)

	names, err := ListAs[userName](ctx, repo, expr.Fields("Name"), expr.FieldGreaterThan("Age", 30), "")
	require.NoError(t, err)
	assert.Equal(t, []userName{{"Ada"}, {"Grace"}}, names)

	ages, err := ListAs[int](ctx, repo, expr.Field("Age"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, []int{36, 21, 85}, ages)

	name, found, err := GetByIDAs[userName](ctx, repo, "u3", expr.Fields("Name"), "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Grace", name.Name)

	email, found, err := GetFirstAs[string](ctx, repo, expr.Field("Email"), expr.FieldEquals("Name", "nobody"), "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, email)
	assert.Contains(t, log.messages("error"), "No record matched filter")

	_, err = ListAs[userName](ctx, repo, nil, nil, "")
	assert.Error(t, err)
}

func TestRepositoryPage(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newUsers(t)

	page, err := repo.Page(ctx, types.NewPageRequestWithOrders(1, 2, []string{"Age DESC"}), "")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Grace", page.Items[0].Name)
	assert.Equal(t, "Ada", page.Items[1].Name)

	page, err = repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, expr.FieldEquals("Name", "nobody")), "")
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)

	_, err = repo.Page(ctx, types.NewPageRequestWithOrders(1, 2, []string{"Age SIDEWAYS"}), "")
	assert.Error(t, err)
}

func TestRepositoryTreatsNilNodeFilterAsAbsent(t *testing.T) {
	ctx := context.Background()
	repo, session, _ := newUsers(t)

	var filter *expr.Binary
	all, err := repo.List(ctx, filter, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Nil(t, session.LastQuery().Filter)

	n, err := repo.Count(ctx, (*expr.Unary)(nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = ListAs[userName](ctx, repo, (*expr.Record)(nil), nil, "")
	assert.Error(t, err)
}
