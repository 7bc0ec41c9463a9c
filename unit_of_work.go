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
	"fmt"

	"github.com/tomoncle/unitwork/database"
	"github.com/tomoncle/unitwork/repository"
)

const loggerName = "UNIT-OF-WORK"

// txState is either idleState or activeState.
type txState interface {
	isTxState()
}

type idleState struct{}

type activeState struct {
	tx database.Transaction
}

func (idleState) isTxState()   {}
func (activeState) isTxState() {}

// UnitOfWork groups the repositories of one session and controls the
// session's explicit transaction. It is meant for one logical caller at a
// time.
type UnitOfWork[S database.Session] struct {
	session S
	logger  database.Logger
	state   txState
}

type Option func(*options)

type options struct {
	logger database.Logger
}

// WithLogger sets the logger shared by the unit of work and its repositories.
func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func NewUnitOfWork[S database.Session](session S, opts ...Option) *UnitOfWork[S] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = database.NewDefaultLogger(loggerName)
	}
	return &UnitOfWork[S]{session: session, logger: o.logger, state: idleState{}}
}

// GetRepository returns a new repository for T bound to the unit of work's
// session. Repositories are not cached.
func GetRepository[T any, S database.Session](u *UnitOfWork[S]) repository.Repository[T] {
	return repository.NewRepository[T](u.session, repository.WithLogger(u.logger))
}

func (u *UnitOfWork[S]) Session() S { return u.session }

// Name returns the database name used in logs and errors.
func (u *UnitOfWork[S]) Name() string { return u.session.Name() }

func (u *UnitOfWork[S]) InTransaction() bool {
	_, ok := u.state.(activeState)
	return ok
}

func (u *UnitOfWork[S]) BeginTransaction(ctx context.Context) error {
	if u.InTransaction() {
		return &TransactionError{Op: "begin", Database: u.Name(), Err: ErrTransactionConflict}
	}
	u.logger.Debug("Starting a new transaction", "database", u.Name())
	tx, err := u.session.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction on database %s: %w", u.Name(), err)
	}
	u.state = activeState{tx: tx}
	return nil
}

// Commit saves staged changes and commits the active transaction. The
// transaction is released whether or not either step succeeds.
func (u *UnitOfWork[S]) Commit(ctx context.Context) (err error) {
	active, ok := u.state.(activeState)
	if !ok {
		return &TransactionError{Op: "commit", Database: u.Name(), Err: ErrNoActiveTransaction}
	}
	defer func() { err = errors.Join(err, u.release(active)) }()

	u.logger.Debug("Committing current transaction", "database", u.Name())
	if err := u.session.SaveChanges(ctx); err != nil {
		return err
	}
	return active.tx.Commit(ctx)
}

// Rollback rolls back the active transaction. Staged changes that were
// never saved stay on the session.
func (u *UnitOfWork[S]) Rollback(ctx context.Context) (err error) {
	active, ok := u.state.(activeState)
	if !ok {
		return &TransactionError{Op: "rollback", Database: u.Name(), Err: ErrNoActiveTransaction}
	}
	defer func() { err = errors.Join(err, u.release(active)) }()

	u.logger.Debug("Rolling back current transaction", "database", u.Name())
	return active.tx.Rollback(ctx)
}

// SaveChanges persists staged changes, inside the active transaction if
// there is one.
func (u *UnitOfWork[S]) SaveChanges(ctx context.Context) error {
	return u.session.SaveChanges(ctx)
}

// Do runs fn inside a transaction. The transaction is rolled back when fn
// fails and committed otherwise.
func (u *UnitOfWork[S]) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := u.BeginTransaction(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := u.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return u.Commit(ctx)
}

// Close releases any held transaction without committing it.
func (u *UnitOfWork[S]) Close() error {
	active, ok := u.state.(activeState)
	if !ok {
		return nil
	}
	u.logger.Debug("Releasing open transaction", "database", u.Name())
	return u.release(active)
}

func (u *UnitOfWork[S]) release(active activeState) error {
	u.state = idleState{}
	if err := active.tx.Close(); err != nil {
		u.logger.Warn("Failed to release transaction", "database", u.Name(), "error", err)
		return err
	}
	return nil
}
