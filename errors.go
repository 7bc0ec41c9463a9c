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
	"errors"
	"fmt"
)

var (
	// ErrTransactionConflict is returned when a transaction is begun while
	// another one is active.
	ErrTransactionConflict = errors.New("transaction already in progress")
	// ErrNoActiveTransaction is returned by Commit and Rollback while idle.
	ErrNoActiveTransaction = errors.New("no active transaction")
)

// TransactionError reports a transaction call made in the wrong state.
type TransactionError struct {
	Op       string
	Database string
	Err      error
}

func (e *TransactionError) Error() string {
	switch e.Err {
	case ErrTransactionConflict:
		return fmt.Sprintf("a transaction is already in progress for database %s", e.Database)
	case ErrNoActiveTransaction:
		return fmt.Sprintf("no active transaction for database %s", e.Database)
	}
	return fmt.Sprintf("%s on database %s: %v", e.Op, e.Database, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
