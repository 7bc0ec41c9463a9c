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
)

// Loader runs startup work against one database: pending migrations first,
// then an optional seed step.
type Loader struct {
	name     string
	migrator Migrator
	logger   Logger
	seed     func(ctx context.Context) error
}

type LoaderOption func(*Loader)

// WithSeed runs fn after migrations on every Execute.
func WithSeed(fn func(ctx context.Context) error) LoaderOption {
	return func(l *Loader) { l.seed = fn }
}

// WithLoaderLogger replaces the global logger.
func WithLoaderLogger(logger Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(name string, migrator Migrator, opts ...LoaderOption) *Loader {
	l := &Loader{name: name, migrator: migrator, logger: GetLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Execute applies pending migrations when allowMigration is set, then runs
// the seed step. Errors are returned unchanged in meaning, never retried.
func (l *Loader) Execute(ctx context.Context, allowMigration bool) error {
	if allowMigration {
		if err := l.handleMigrations(ctx); err != nil {
			return err
		}
	}
	if l.seed != nil {
		if err := l.seed(ctx); err != nil {
			return fmt.Errorf("failed to seed database %s: %w", l.name, err)
		}
	}
	return nil
}

func (l *Loader) handleMigrations(ctx context.Context) error {
	if l.migrator == nil {
		return fmt.Errorf("no migrator configured for database %s", l.name)
	}
	l.logger.Info("Checking migration status", "database", l.name)

	pending, err := l.migrator.PendingMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending migrations for database %s: %w", l.name, err)
	}
	if len(pending) == 0 {
		l.logger.Info("There are no pending migrations", "database", l.name)
		return nil
	}

	l.logger.Info("Discovered pending migrations", "database", l.name, "count", len(pending))
	if err := l.migrator.ApplyMigrations(ctx); err != nil {
		return fmt.Errorf("failed to migrate database %s: %w", l.name, err)
	}
	l.logger.Info("All migrations have been applied", "database", l.name)
	return nil
}
