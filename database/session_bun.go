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
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/unitwork/expr"
	"github.com/uptrace/bun"
)

type changeOp int

const (
	opInsert changeOp = iota
	opUpdate
	opDelete
)

func (o changeOp) String() string {
	switch o {
	case opInsert:
		return "insert"
	case opUpdate:
		return "update"
	default:
		return "delete"
	}
}

type stagedChange struct {
	op     changeOp
	entity any
}

// BunSession is a Session over a bun database. Staged writes are replayed on
// SaveChanges through the open transaction, or through RunInTx when none is
// open.
type BunSession struct {
	db     *bun.DB
	name   string
	logger Logger
	tx     *bun.Tx
	staged []stagedChange
}

var _ Session = (*BunSession)(nil)

// NewBunSession binds a session to db. name identifies the database in logs
// and errors.
func NewBunSession(db *bun.DB, name string, logger Logger) *BunSession {
	if logger == nil {
		logger = GetLogger()
	}
	return &BunSession{db: db, name: name, logger: logger}
}

func (s *BunSession) Name() string { return s.name }

// DB returns the underlying bun database.
func (s *BunSession) DB() *bun.DB { return s.db }

// Pending returns the number of staged writes.
func (s *BunSession) Pending() int { return len(s.staged) }

func (s *BunSession) DiscardChanges() { s.staged = nil }

func (s *BunSession) idb() bun.IDB {
	if s.tx != nil {
		return *s.tx
	}
	return s.db
}

func (s *BunSession) Find(ctx context.Context, id string, dest any) (bool, error) {
	t := reflect.TypeOf(dest)
	if t == nil || t.Kind() != reflect.Pointer {
		return false, fmt.Errorf("find: dest must be a pointer, got %T", dest)
	}
	table := s.db.Table(t.Elem())
	if len(table.PKs) != 1 {
		return false, fmt.Errorf("find: %s must have exactly one primary key", table.Type.Name())
	}
	err := s.idb().NewSelect().
		Model(dest).
		Where("?TableAlias.? = ?", bun.Ident(table.PKs[0].Name), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BunSession) Exists(ctx context.Context, q *Query) (bool, error) {
	sq, err := s.selectQuery(q, q.Model, false)
	if err != nil {
		return false, err
	}
	return sq.Exists(ctx)
}

func (s *BunSession) Count(ctx context.Context, q *Query) (int, error) {
	sq, err := s.selectQuery(q, q.Model, false)
	if err != nil {
		return 0, err
	}
	return sq.Count(ctx)
}

func (s *BunSession) Select(ctx context.Context, q *Query, dest any) error {
	if expr.IsNil(q.Projection) {
		sq, err := s.selectQuery(q, dest, true)
		if err != nil {
			return err
		}
		return sq.Scan(ctx)
	}
	sq, err := s.selectQuery(q, q.Model, true)
	if err != nil {
		return err
	}
	return sq.Scan(ctx, dest)
}

func (s *BunSession) First(ctx context.Context, q *Query, dest any) (bool, error) {
	first := *q
	first.Limit = 1
	var err error
	if expr.IsNil(q.Projection) {
		var sq *bun.SelectQuery
		if sq, err = s.selectQuery(&first, dest, true); err == nil {
			err = sq.Scan(ctx)
		}
	} else {
		var sq *bun.SelectQuery
		if sq, err = s.selectQuery(&first, q.Model, true); err == nil {
			err = sq.Scan(ctx, dest)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// selectQuery builds a select over the query's model. Relations, ordering
// and paging only apply to row reads.
func (s *BunSession) selectQuery(q *Query, model any, rows bool) (*bun.SelectQuery, error) {
	typ, err := q.ModelType()
	if err != nil {
		return nil, err
	}
	table := s.db.Table(typ)
	sq := s.idb().NewSelect().Model(model)
	if !expr.IsNil(q.Filter) {
		where, args, err := compileFilter(table, q.Filter)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		sq = sq.Where(where, args...)
	}
	if !rows {
		return sq, nil
	}
	fields, err := ProjectionFields(q.Projection)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		for _, rel := range q.Relations {
			sq = sq.Relation(rel)
		}
	}
	for _, f := range fields {
		col, err := resolveColumn(table, f)
		if err != nil {
			return nil, err
		}
		sq = sq.ColumnExpr("?TableAlias.?", bun.Ident(col))
	}
	for _, o := range q.Orders {
		col, err := resolveColumn(table, o.Field)
		if err != nil {
			return nil, err
		}
		if o.Desc {
			sq = sq.OrderExpr("?TableAlias.? DESC", bun.Ident(col))
		} else {
			sq = sq.OrderExpr("?TableAlias.? ASC", bun.Ident(col))
		}
	}
	if q.Offset > 0 {
		sq = sq.Offset(q.Offset)
	}
	if q.Limit > 0 {
		sq = sq.Limit(q.Limit)
	}
	return sq, nil
}

func (s *BunSession) Add(entity any)    { s.stage(opInsert, entity) }
func (s *BunSession) Update(entity any) { s.stage(opUpdate, entity) }
func (s *BunSession) Remove(entity any) { s.stage(opDelete, entity) }

func (s *BunSession) stage(op changeOp, entity any) {
	s.staged = append(s.staged, stagedChange{op: op, entity: entity})
}

func (s *BunSession) SaveChanges(ctx context.Context) error {
	if len(s.staged) == 0 {
		return nil
	}
	var err error
	if s.tx != nil {
		err = s.apply(ctx, *s.tx)
	} else {
		err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return s.apply(ctx, tx)
		})
	}
	if err != nil {
		return err
	}
	s.logger.Debug("Saved staged changes", "database", s.name, "count", len(s.staged))
	s.staged = nil
	return nil
}

func (s *BunSession) apply(ctx context.Context, db bun.IDB) error {
	for _, c := range s.staged {
		var err error
		switch c.op {
		case opInsert:
			_, err = db.NewInsert().Model(c.entity).Exec(ctx)
		case opUpdate:
			_, err = db.NewUpdate().Model(c.entity).WherePK().Exec(ctx)
		case opDelete:
			_, err = db.NewDelete().Model(c.entity).WherePK().Exec(ctx)
		}
		if err != nil {
			return newSaveError(s.name, c.op.String(), c.entity, err)
		}
	}
	return nil
}

func (s *BunSession) BeginTx(ctx context.Context) (Transaction, error) {
	if s.tx != nil {
		return nil, fmt.Errorf("database %s already has an open transaction", s.name)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction on %s: %w", s.name, err)
	}
	s.tx = &tx
	return &bunTransaction{session: s, tx: tx}, nil
}

type bunTransaction struct {
	session *BunSession
	tx      bun.Tx
	done    bool
}

func (t *bunTransaction) Commit(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	defer t.release()
	return t.tx.Commit()
}

func (t *bunTransaction) Rollback(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	defer t.release()
	return t.tx.Rollback()
}

func (t *bunTransaction) Close() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.release()
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *bunTransaction) release() {
	t.session.tx = nil
}

func entityName(entity any) string {
	t := reflect.TypeOf(entity)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t.Name()
}
